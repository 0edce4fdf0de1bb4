package lwp

// ModeBitmask is a 16-bit little-endian mask on the wire where bit i marks
// mode or dataset i as participating.
type ModeBitmask uint16

// NewModeBitmask sets the bit for each index. Indices above 15 are ignored.
func NewModeBitmask(indices ...byte) ModeBitmask {
	var m ModeBitmask
	for _, i := range indices {
		if i < 16 {
			m |= 1 << i
		}
	}
	return m
}

// Indices returns the set bit positions in ascending order.
func (m ModeBitmask) Indices() []byte {
	var out []byte
	for i := byte(0); i < 16; i++ {
		if m&(1<<i) != 0 {
			out = append(out, i)
		}
	}
	return out
}

// Has reports whether bit i is set.
func (m ModeBitmask) Has(i byte) bool {
	return i < 16 && m&(1<<i) != 0
}

// Contains reports whether every bit of o is also set in m.
func (m ModeBitmask) Contains(o ModeBitmask) bool {
	return m&o == o
}

// Count is the number of set bits.
func (m ModeBitmask) Count() int {
	n := 0
	for i := byte(0); i < 16; i++ {
		if m&(1<<i) != 0 {
			n++
		}
	}
	return n
}
