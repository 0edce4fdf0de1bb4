package lwp

import (
	"bytes"
	"testing"
)

func TestEncodeShortPrefix(t *testing.T) {
	for _, tt := range []struct {
		name string
		hub  byte
		req  RequestBody
		want []byte
	}{
		{
			name: "disable alert updates",
			req:  &AlertRequest{Alert: AlertLowVoltage, Operation: AlertOperationDisableUpdates},
			want: []byte{0x05, 0x00, 0x03, 0x01, 0x03},
		},
		{
			name: "disconnect action",
			req:  &ActionRequest{Action: ActionDisconnect},
			want: []byte{0x04, 0x00, 0x02, 0x01},
		},
		{
			name: "lock status",
			req:  &LockStatusRequest{},
			want: []byte{0x03, 0x00, 0x12},
		},
		{
			name: "input format setup",
			hub:  0x01,
			req:  &InputFormatRequest{Port: 0x02, Mode: 0x01, Delta: 5, Notify: true},
			want: []byte{0x0A, 0x01, 0x41, 0x02, 0x01, 0x05, 0x00, 0x00, 0x00, 0x01},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.hub, tt.req)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("Encode = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEncodeLongPrefix(t *testing.T) {
	payload := make([]byte, 150)
	frame, err := Encode(0, &PropertyRequest{
		Property:  PropertyAdvertisingName,
		Operation: PropertyOperationSet,
		Payload:   payload,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Header is four bytes for totals above 127: two length bytes, hub id,
	// type byte, then the two-byte property body.
	total := 4 + 2 + len(payload)
	if len(frame) != total {
		t.Fatalf("frame length = %d, want %d", len(frame), total)
	}
	if frame[0]&0x80 == 0 {
		t.Fatal("long form must set the high bit of the first length byte")
	}
	decoded := int(frame[0]&0x7F) | int(frame[1])<<7
	if decoded+127 != total {
		t.Fatalf("prefix decodes to %d, want %d", decoded+127, total)
	}
	if frame[2] != 0 || frame[3] != byte(MessageTypeProperties) {
		t.Fatalf("header = %#v", frame[2:4])
	}
}

func TestEncodeLongPrefixRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 300)
	frame, err := Encode(0x07, &PropertyRequest{
		Property:  PropertyAdvertisingName,
		Operation: PropertyOperationSet,
		Payload:   payload,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var d Decoder
	out := d.Decode(frame)
	if len(out) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(out))
	}
	if out[0].HubID != 0x07 || out[0].Type != MessageTypeProperties {
		t.Fatalf("decoded header = %#x/%#x", out[0].HubID, out[0].Type)
	}
	u, ok := out[0].Body.(*PropertyUpdateResponse)
	if !ok {
		t.Fatalf("body = %T", out[0].Body)
	}
	if !bytes.Equal(u.Payload, payload) {
		t.Fatal("payload corrupted through long-form round trip")
	}
}

// allRequests is one instance of every request kind, in catalog order.
func allRequests() []RequestBody {
	return []RequestBody{
		&PropertyRequest{Property: PropertyAdvertisingName, Operation: PropertyOperationRequestUpdate},
		&ActionRequest{Action: ActionSwitchOff},
		&AlertRequest{Alert: AlertHighCurrent, Operation: AlertOperationEnableUpdates},
		&NetworkRequest{Command: NetworkCommandGetFamily},
		&BootModeRequest{},
		&LockMemoryRequest{},
		&LockStatusRequest{},
		&PortInfoRequest{Port: 0x01, Info: PortInfoModeInfo},
		&PortModeInfoRequest{Port: 0x01, Mode: 0x02, Info: ModeInfoName},
		&InputFormatRequest{Port: 0x01, Mode: 0x02, Delta: 1, Notify: true},
		&CombinedFormatRequest{Port: 0x01, Sub: CombinedFormatSet, Pairs: []ModeDataset{{Mode: 1, Dataset: 0}}},
		&VirtualPortRequest{Connect: true, PortA: 0x00, PortB: 0x01},
		NewStartPower(0x00, 50, OutputFlagFeedback),
	}
}

func TestDecodeEncodedRequests(t *testing.T) {
	// Every encoded request decodes back with its hub id and type intact,
	// whether or not the type has a structural downstream model.
	for _, req := range allRequests() {
		frame, err := Encode(0x05, req)
		if err != nil {
			t.Fatalf("%#x: Encode: %v", req.MessageType(), err)
		}
		var d Decoder
		out := d.Decode(frame)
		if len(out) != 1 {
			t.Fatalf("%#x: decoded %d frames, want 1", req.MessageType(), len(out))
		}
		if out[0].HubID != 0x05 {
			t.Errorf("%#x: hub id = %#x", req.MessageType(), out[0].HubID)
		}
		if out[0].Type != req.MessageType() {
			t.Errorf("%#x: type = %#x", req.MessageType(), out[0].Type)
		}
		if out[0].Body == nil {
			t.Errorf("%#x: nil body", req.MessageType())
		}
	}
}

func TestDecodeChunkIndependence(t *testing.T) {
	var stream []byte
	for _, req := range allRequests() {
		frame, err := Encode(0, req)
		if err != nil {
			t.Fatal(err)
		}
		stream = append(stream, frame...)
	}

	var whole Decoder
	want := whole.Decode(stream)

	for _, chunk := range []int{1, 2, 3, 5, 7, len(stream)} {
		var d Decoder
		var got []*Response
		for off := 0; off < len(stream); off += chunk {
			end := off + chunk
			if end > len(stream) {
				end = len(stream)
			}
			got = append(got, d.Decode(stream[off:end])...)
		}
		if len(got) != len(want) {
			t.Fatalf("chunk %d: decoded %d frames, want %d", chunk, len(got), len(want))
		}
		for i := range got {
			if got[i].Type != want[i].Type || !bytes.Equal(got[i].Raw, want[i].Raw) {
				t.Fatalf("chunk %d: frame %d differs", chunk, i)
			}
		}
		if d.Pending() != 0 {
			t.Fatalf("chunk %d: %d bytes left pending", chunk, d.Pending())
		}
	}
}

func TestDecodeLockStatus(t *testing.T) {
	var d Decoder
	out := d.Decode([]byte{0x03, 0x00, 0x13})
	if len(out) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(out))
	}
	u, ok := out[0].Body.(*LockStatusResponse)
	if !ok {
		t.Fatalf("body = %T", out[0].Body)
	}
	if !u.Locked {
		t.Fatal("empty lock status payload must report locked")
	}
}

func TestDecodeCoalescedFrames(t *testing.T) {
	var d Decoder
	out := d.Decode([]byte{0x05, 0x00, 0x03, 0x01, 0x03, 0x04, 0x00, 0x02, 0x01})
	if len(out) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(out))
	}
	if _, ok := out[0].Body.(*AlertResponse); !ok {
		t.Fatalf("first body = %T", out[0].Body)
	}
	a, ok := out[1].Body.(*ActionResponse)
	if !ok {
		t.Fatalf("second body = %T", out[1].Body)
	}
	if a.Action != ActionDisconnect {
		t.Fatalf("action = %#x", a.Action)
	}
}

func TestDecodeUnknownTypeSkipped(t *testing.T) {
	var d Decoder
	// An uncataloged type byte between two valid frames must not stall the
	// stream or surface as a response.
	stream := []byte{
		0x04, 0x00, 0x02, 0x01, // action
		0x05, 0x00, 0x7E, 0xAA, 0xBB, // uncataloged
		0x03, 0x00, 0x13, // lock status
	}
	out := d.Decode(stream)
	if len(out) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(out))
	}
	if out[0].Type != MessageTypeActions || out[1].Type != MessageTypeLockStatus {
		t.Fatalf("types = %#x, %#x", out[0].Type, out[1].Type)
	}
}

func TestDecodePartialFrameBuffers(t *testing.T) {
	var d Decoder
	if out := d.Decode([]byte{0x05, 0x00}); len(out) != 0 {
		t.Fatalf("decoded %d frames from a partial header", len(out))
	}
	if d.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", d.Pending())
	}
	out := d.Decode([]byte{0x03, 0x01, 0x00})
	if len(out) != 1 {
		t.Fatalf("decoded %d frames after completion, want 1", len(out))
	}
	if d.Pending() != 0 {
		t.Fatalf("pending = %d after full frame", d.Pending())
	}
}

func TestDecodeMalformedPayloadIsUnknown(t *testing.T) {
	var d Decoder
	// A properties frame with no payload is recognized but structurally
	// invalid; it must decode to UnknownResponse, not disappear.
	out := d.Decode([]byte{0x03, 0x00, 0x01})
	if len(out) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(out))
	}
	u, ok := out[0].Body.(*UnknownResponse)
	if !ok {
		t.Fatalf("body = %T", out[0].Body)
	}
	if u.Type != MessageTypeProperties {
		t.Fatalf("type = %#x", u.Type)
	}
}

func TestDecodeResynchronizes(t *testing.T) {
	var d Decoder
	// A length byte below the minimum frame size is dropped so a later valid
	// frame still decodes.
	stream := append([]byte{0x01}, 0x04, 0x00, 0x02, 0x01)
	out := d.Decode(stream)
	if len(out) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(out))
	}
	if out[0].Type != MessageTypeActions {
		t.Fatalf("type = %#x", out[0].Type)
	}
}
