package lwp

import (
	"errors"

	"go.uber.org/zap"
)

// maxFrameLen is the largest total frame length the two-byte prefix encodes:
// 15 bits of biased length.
const maxFrameLen = 1<<15 - 1 + 127

// Encode produces one complete frame: length prefix, hub id, type byte,
// request payload. Totals up to 127 use the one-byte prefix; larger frames
// use two bytes holding the total minus 127, low seven bits first with the
// high bit of the first byte set.
func Encode(hubID byte, req RequestBody) ([]byte, error) {
	body, err := req.Marshal()
	if err != nil {
		return nil, err
	}
	if total := 3 + len(body); total <= 127 {
		b := make([]byte, total)
		b[0] = byte(total)
		b[1] = hubID
		b[2] = byte(req.MessageType())
		copy(b[3:], body)
		return b, nil
	}
	total := 4 + len(body)
	if total > maxFrameLen {
		return nil, errors.New("frame too large")
	}
	v := total - 127
	b := make([]byte, total)
	b[0] = 0x80 | byte(v&0x7F)
	b[1] = byte(v >> 7)
	b[2] = hubID
	b[3] = byte(req.MessageType())
	copy(b[4:], body)
	return b, nil
}

// Response is one decoded downstream frame.
type Response struct {
	HubID byte
	Type  MessageType
	Raw   []byte
	Body  ResponseBody
}

// Decoder reassembles frames from a notification stream. Chunk boundaries
// carry no meaning: a chunk may hold part of a frame or several frames, and
// unconsumed bytes stay buffered until the rest arrives.
type Decoder struct {
	pending []byte
}

// Decode appends p to the pending buffer and extracts every complete frame.
// It never fails: frames with an uncataloged type byte are skipped and
// recognized frames with malformed payloads decode to an UnknownResponse.
func (d *Decoder) Decode(p []byte) []*Response {
	d.pending = append(d.pending, p...)
	var out []*Response
	for {
		r, n := d.next()
		if n == 0 {
			return out
		}
		d.pending = d.pending[n:]
		if r != nil {
			out = append(out, r)
		}
	}
}

// next inspects the pending buffer for one frame. It returns the consumed
// byte count, zero meaning more bytes are needed.
func (d *Decoder) next() (*Response, int) {
	if len(d.pending) == 0 {
		return nil, 0
	}
	prefix := 1
	total := int(d.pending[0])
	if d.pending[0]&0x80 != 0 {
		if len(d.pending) < 2 {
			return nil, 0
		}
		prefix = 2
		total = int(d.pending[0]&0x7F) | int(d.pending[1])<<7
		total += 127
	}
	if total < prefix+2 {
		// A frame cannot be shorter than its own header. Drop one byte and
		// let the stream resynchronize on the next length prefix.
		zap.L().Debug("dropping undersized frame prefix", zap.Int("total", total))
		return nil, 1
	}
	if len(d.pending) < total {
		return nil, 0
	}
	// Copy the frame out before parsing: body payloads alias the frame and
	// the pending buffer is reused across calls.
	raw := make([]byte, total)
	copy(raw, d.pending)
	hubID := raw[prefix]
	t := MessageType(raw[prefix+1])
	body, ok := UnmarshalResponseBody(t, raw[prefix+2:])
	if !ok {
		zap.L().Debug("skipping unrecognized message type",
			zap.Uint8("type", uint8(t)), zap.Int("len", total))
		return nil, total
	}
	return &Response{HubID: hubID, Type: t, Raw: raw, Body: body}, total
}

// Pending is the number of buffered bytes awaiting the rest of a frame.
func (d *Decoder) Pending() int {
	return len(d.pending)
}
