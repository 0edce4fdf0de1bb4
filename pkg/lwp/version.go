package lwp

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Version is the 4-byte packed firmware/hardware version: build in the low
// two bytes, patch in the third, major and minor nibbles in the fourth.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
	Build uint16
}

func ParseVersion(buf []byte) (Version, error) {
	if len(buf) < 4 {
		return Version{}, io.ErrShortBuffer
	}
	return Version{
		Major: buf[3] >> 4,
		Minor: buf[3] & 0x0F,
		Patch: buf[2],
		Build: binary.LittleEndian.Uint16(buf),
	}, nil
}

func (v Version) Marshal() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b, v.Build)
	b[2] = v.Patch
	b[3] = v.Major<<4 | v.Minor&0x0F
	return b
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}
