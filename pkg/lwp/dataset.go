package lwp

import (
	"encoding/binary"
	"io"
	"math"
)

// DatasetType selects the raw encoding of one dataset inside a port value.
type DatasetType uint8

const (
	DatasetInt8    DatasetType = 0x00
	DatasetInt16   DatasetType = 0x01
	DatasetInt32   DatasetType = 0x02
	DatasetFloat32 DatasetType = 0x03
)

// Size is the byte width of one dataset, zero for unrecognized types.
func (t DatasetType) Size() int {
	switch t {
	case DatasetInt8:
		return 1
	case DatasetInt16:
		return 2
	case DatasetInt32, DatasetFloat32:
		return 4
	}
	return 0
}

// Decode reads one dataset at off. Integer types are two's complement,
// float32 is IEEE-754, both little-endian.
func (t DatasetType) Decode(buf []byte, off int) (float64, error) {
	if off < 0 || off+t.Size() > len(buf) || t.Size() == 0 {
		return 0, io.ErrShortBuffer
	}
	switch t {
	case DatasetInt8:
		return float64(int8(buf[off])), nil
	case DatasetInt16:
		return float64(int16(binary.LittleEndian.Uint16(buf[off:]))), nil
	case DatasetInt32:
		return float64(int32(binary.LittleEndian.Uint32(buf[off:]))), nil
	case DatasetFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))), nil
	}
	return 0, io.ErrShortBuffer
}

// DecodeInt reads one dataset at off as an integer. Float datasets are
// truncated toward zero.
func (t DatasetType) DecodeInt(buf []byte, off int) (int64, error) {
	v, err := t.Decode(buf, off)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}
