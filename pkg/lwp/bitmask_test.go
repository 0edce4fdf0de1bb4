package lwp

import "testing"

func TestModeBitmaskRoundTrip(t *testing.T) {
	for _, indices := range [][]byte{
		nil,
		{0},
		{15},
		{0, 1},
		{1, 3, 5, 7},
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	} {
		m := NewModeBitmask(indices...)
		got := m.Indices()
		if len(got) != len(indices) {
			t.Fatalf("%v: Indices = %v", indices, got)
		}
		for i := range got {
			if got[i] != indices[i] {
				t.Fatalf("%v: Indices = %v", indices, got)
			}
		}
		if m.Count() != len(indices) {
			t.Fatalf("%v: Count = %d", indices, m.Count())
		}
		for _, i := range indices {
			if !m.Has(i) {
				t.Fatalf("%v: Has(%d) = false", indices, i)
			}
		}
	}
}

func TestModeBitmaskIgnoresHighIndices(t *testing.T) {
	if m := NewModeBitmask(16, 200); m != 0 {
		t.Fatalf("mask = %#x, want 0", m)
	}
	if NewModeBitmask(5).Has(16) {
		t.Fatal("Has above 15 must be false")
	}
}

func TestModeBitmaskContains(t *testing.T) {
	m := NewModeBitmask(0, 2, 5)
	if !m.Contains(NewModeBitmask(0, 5)) {
		t.Fatal("subset must be contained")
	}
	if !m.Contains(0) {
		t.Fatal("empty mask is contained in everything")
	}
	if m.Contains(NewModeBitmask(0, 1)) {
		t.Fatal("mask with a foreign bit must not be contained")
	}
}
