package lwp

import (
	"bytes"
	"testing"
)

func TestVersionRoundTrip(t *testing.T) {
	for _, v := range []Version{
		{},
		{Major: 1, Minor: 2, Patch: 3, Build: 4},
		{Major: 15, Minor: 15, Patch: 255, Build: 65535},
	} {
		got, err := ParseVersion(v.Marshal())
		if err != nil {
			t.Fatalf("%v: ParseVersion: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip = %v, want %v", got, v)
		}
	}
}

func TestVersionParse(t *testing.T) {
	v, err := ParseVersion([]byte{0x34, 0x12, 0x05, 0x21})
	if err != nil {
		t.Fatal(err)
	}
	want := Version{Major: 2, Minor: 1, Patch: 5, Build: 0x1234}
	if v != want {
		t.Fatalf("got %v, want %v", v, want)
	}
	if v.String() != "2.1.5.4660" {
		t.Fatalf("String = %q", v.String())
	}
	if !bytes.Equal(v.Marshal(), []byte{0x34, 0x12, 0x05, 0x21}) {
		t.Fatalf("Marshal = %#v", v.Marshal())
	}

	if _, err := ParseVersion([]byte{1, 2, 3}); err == nil {
		t.Fatal("want error for short buffer")
	}
}
