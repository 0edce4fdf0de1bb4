package hub

import (
	"sync"

	"github.com/efficientgo/core/errors"

	"github.com/smartbotkit/lwp/pkg/lwp"
)

// PortValue is a numeric sink bound to one mode of one port. Update decodes
// a raw reading using that mode's resolved value format.
type PortValue interface {
	Mode() byte
	Update(raw []byte, f lwp.ValueFormat) error
}

// FloatPortValue accumulates float readings for one mode.
type FloatPortValue struct {
	mode     byte
	onUpdate func([]float64)

	mu     sync.Mutex
	latest []float64
}

// NewFloatValue builds a float sink; onUpdate may be nil.
func NewFloatValue(mode byte, onUpdate func([]float64)) *FloatPortValue {
	return &FloatPortValue{mode: mode, onUpdate: onUpdate}
}

func (v *FloatPortValue) Mode() byte { return v.mode }

func (v *FloatPortValue) Update(raw []byte, f lwp.ValueFormat) error {
	vals, err := decodeDatasets(raw, f)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.latest = vals
	v.mu.Unlock()
	if v.onUpdate != nil {
		v.onUpdate(vals)
	}
	return nil
}

// Latest returns the most recent reading, nil before the first update.
func (v *FloatPortValue) Latest() []float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest
}

// IntPortValue accumulates integer readings for one mode. Float datasets are
// truncated toward zero.
type IntPortValue struct {
	mode     byte
	onUpdate func([]int64)

	mu     sync.Mutex
	latest []int64
}

// NewIntValue builds an integer sink; onUpdate may be nil.
func NewIntValue(mode byte, onUpdate func([]int64)) *IntPortValue {
	return &IntPortValue{mode: mode, onUpdate: onUpdate}
}

func (v *IntPortValue) Mode() byte { return v.mode }

func (v *IntPortValue) Update(raw []byte, f lwp.ValueFormat) error {
	vals, err := decodeDatasets(raw, f)
	if err != nil {
		return err
	}
	ints := make([]int64, len(vals))
	for i, x := range vals {
		ints[i] = int64(x)
	}
	v.mu.Lock()
	v.latest = ints
	v.mu.Unlock()
	if v.onUpdate != nil {
		v.onUpdate(ints)
	}
	return nil
}

// Latest returns the most recent reading, nil before the first update.
func (v *IntPortValue) Latest() []int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest
}

func decodeDatasets(raw []byte, f lwp.ValueFormat) ([]float64, error) {
	width := f.Type.Size()
	if width == 0 || f.Datasets == 0 {
		return nil, errors.New("unresolved value format")
	}
	if len(raw) < int(f.Datasets)*width {
		return nil, errors.Newf("value payload %d bytes, format needs %d", len(raw), int(f.Datasets)*width)
	}
	out := make([]float64, f.Datasets)
	for i := range out {
		x, err := f.Type.Decode(raw, i*width)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}
