package hub

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/smartbotkit/lwp/pkg/lwp"
)

func TestFloatValueUpdate(t *testing.T) {
	var got []float64
	v := NewFloatValue(0, func(vals []float64) { got = vals })

	f := lwp.ValueFormat{Datasets: 3, Type: lwp.DatasetInt16}
	raw := []byte{0x64, 0x00, 0x9C, 0xFF, 0x00, 0x01}
	if err := v.Update(raw, f); err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := []float64{100, -100, 256}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("callback got %v, want %v", got, want)
		}
		if v.Latest()[i] != want[i] {
			t.Fatalf("Latest = %v, want %v", v.Latest(), want)
		}
	}
}

func TestIntValueTruncates(t *testing.T) {
	v := NewIntValue(0, nil)
	raw := make([]byte, 4)
	putFloat32(raw, 9.75)
	if err := v.Update(raw, lwp.ValueFormat{Datasets: 1, Type: lwp.DatasetFloat32}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if v.Latest()[0] != 9 {
		t.Fatalf("Latest = %v, want [9]", v.Latest())
	}
}

func TestValueUpdateValidation(t *testing.T) {
	v := NewFloatValue(0, nil)
	if err := v.Update([]byte{0x01}, lwp.ValueFormat{Datasets: 2, Type: lwp.DatasetInt8}); err == nil {
		t.Fatal("short payload must be rejected")
	}
	if err := v.Update([]byte{0x01}, lwp.ValueFormat{}); err == nil {
		t.Fatal("unresolved format must be rejected")
	}
	if v.Latest() != nil {
		t.Fatalf("rejected updates must not touch Latest, got %v", v.Latest())
	}
}

func putFloat32(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}
