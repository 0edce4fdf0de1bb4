package hub

import (
	"github.com/efficientgo/core/errors"

	"github.com/smartbotkit/lwp/pkg/lwp"
)

type VirtualKind int

const (
	VirtualGeneric VirtualKind = iota
	VirtualDualLinearMotor
)

// VirtualPort is a firmware-made composite of two already-attached ports.
// The references to the constituents are non-exclusive: both stay registered
// in the hub's table and keep their own lifetimes.
type VirtualPort struct {
	*Port
	A    *Port
	B    *Port
	Kind VirtualKind
}

func newVirtualPort(h *Hub, id byte, t lwp.DeviceType, a, b *Port) *VirtualPort {
	kind := VirtualGeneric
	if t.IsMotor() {
		kind = VirtualDualLinearMotor
	}
	return &VirtualPort{
		Port: newPort(h, id, t, a.hardwareRev, a.softwareRev),
		A:    a,
		B:    b,
		Kind: kind,
	}
}

// StartPower drives both constituents of a dual linear motor pair with one
// command.
func (v *VirtualPort) StartPower(powerA, powerB int8, flags byte, handler Handler) error {
	if v.Kind != VirtualDualLinearMotor {
		return errors.Newf("virtual port %#x is not a dual linear motor", v.id)
	}
	v.hub.Send(lwp.NewStartPowerDual(v.id, powerA, powerB, flags), handler)
	return nil
}

// Disconnect asks the firmware to tear the virtual port down; the removal
// arrives as a detach event.
func (v *VirtualPort) Disconnect(handler Handler) {
	v.hub.Send(&lwp.VirtualPortRequest{Connect: false, PortA: v.id}, handler)
}
