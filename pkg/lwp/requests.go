package lwp

import (
	"encoding/binary"
)

// bootModeToken and lockMemoryToken are safety tokens appended after the
// header so a corrupted frame cannot reboot or lock a hub by accident.
var (
	bootModeToken   = []byte("LPF2-Boot")
	lockMemoryToken = []byte("Lock-Mem")
)

type PropertyRequest struct {
	Property  HubProperty
	Operation PropertyOperation
	Payload   []byte
}

func (r *PropertyRequest) Marshal() ([]byte, error) {
	b := make([]byte, 2+len(r.Payload))
	b[0] = byte(r.Property)
	b[1] = byte(r.Operation)
	copy(b[2:], r.Payload)
	return b, nil
}

func (r *PropertyRequest) MessageType() MessageType { return MessageTypeProperties }

func (r *PropertyRequest) ExpectsResponse() bool {
	return r.Operation == PropertyOperationRequestUpdate
}

func (r *PropertyRequest) Matches(resp ResponseBody) bool {
	u, ok := resp.(*PropertyUpdateResponse)
	return ok && u.Property == r.Property
}

type ActionRequest struct {
	Action HubAction
}

func (r *ActionRequest) Marshal() ([]byte, error) {
	return []byte{byte(r.Action)}, nil
}

func (r *ActionRequest) MessageType() MessageType  { return MessageTypeActions }
func (r *ActionRequest) ExpectsResponse() bool     { return false }
func (r *ActionRequest) Matches(ResponseBody) bool { return false }

type AlertRequest struct {
	Alert     AlertType
	Operation AlertOperation
}

func (r *AlertRequest) Marshal() ([]byte, error) {
	return []byte{byte(r.Alert), byte(r.Operation)}, nil
}

func (r *AlertRequest) MessageType() MessageType { return MessageTypeAlerts }

func (r *AlertRequest) ExpectsResponse() bool {
	return r.Operation == AlertOperationEnableUpdates || r.Operation == AlertOperationRequestUpdate
}

func (r *AlertRequest) Matches(resp ResponseBody) bool {
	u, ok := resp.(*AlertResponse)
	return ok && u.Alert == r.Alert
}

type NetworkRequest struct {
	Command NetworkCommand
	Payload []byte
}

func (r *NetworkRequest) Marshal() ([]byte, error) {
	b := make([]byte, 1+len(r.Payload))
	b[0] = byte(r.Command)
	copy(b[1:], r.Payload)
	return b, nil
}

func (r *NetworkRequest) MessageType() MessageType { return MessageTypeNetwork }

func (r *NetworkRequest) ExpectsResponse() bool {
	switch r.Command {
	case NetworkCommandGetFamily, NetworkCommandGetSubfamily, NetworkCommandGetExtendedFamily:
		return true
	}
	return false
}

func (r *NetworkRequest) Matches(resp ResponseBody) bool {
	u, ok := resp.(*NetworkResponse)
	if !ok {
		return false
	}
	switch r.Command {
	case NetworkCommandGetFamily:
		return u.Command == NetworkCommandFamily
	case NetworkCommandGetSubfamily:
		return u.Command == NetworkCommandSubfamily
	case NetworkCommandGetExtendedFamily:
		return u.Command == NetworkCommandExtendedFamily
	}
	return false
}

type BootModeRequest struct{}

func (r *BootModeRequest) Marshal() ([]byte, error) {
	return bootModeToken, nil
}

func (r *BootModeRequest) MessageType() MessageType { return MessageTypeBootMode }
func (r *BootModeRequest) ExpectsResponse() bool    { return true }

func (r *BootModeRequest) Matches(resp ResponseBody) bool {
	u, ok := resp.(*CommandFeedbackResponse)
	return ok && u.Command == MessageTypeBootMode
}

type LockMemoryRequest struct{}

func (r *LockMemoryRequest) Marshal() ([]byte, error) {
	return lockMemoryToken, nil
}

func (r *LockMemoryRequest) MessageType() MessageType  { return MessageTypeLockMemory }
func (r *LockMemoryRequest) ExpectsResponse() bool     { return false }
func (r *LockMemoryRequest) Matches(ResponseBody) bool { return false }

type LockStatusRequest struct{}

func (r *LockStatusRequest) Marshal() ([]byte, error) {
	return nil, nil
}

func (r *LockStatusRequest) MessageType() MessageType { return MessageTypeLockStatusRequest }
func (r *LockStatusRequest) ExpectsResponse() bool    { return true }

func (r *LockStatusRequest) Matches(resp ResponseBody) bool {
	_, ok := resp.(*LockStatusResponse)
	return ok
}

type PortInfoRequest struct {
	Port byte
	Info PortInfoType
}

func (r *PortInfoRequest) Marshal() ([]byte, error) {
	return []byte{r.Port, byte(r.Info)}, nil
}

func (r *PortInfoRequest) MessageType() MessageType { return MessageTypePortInfoRequest }
func (r *PortInfoRequest) ExpectsResponse() bool    { return true }

func (r *PortInfoRequest) Matches(resp ResponseBody) bool {
	if r.Info == PortInfoValue {
		u, ok := resp.(*PortValueSingleResponse)
		return ok && u.Port == r.Port
	}
	u, ok := resp.(*PortInformationResponse)
	return ok && u.Port == r.Port && u.Info == r.Info
}

type PortModeInfoRequest struct {
	Port byte
	Mode byte
	Info ModeInfoType
}

func (r *PortModeInfoRequest) Marshal() ([]byte, error) {
	return []byte{r.Port, r.Mode, byte(r.Info)}, nil
}

func (r *PortModeInfoRequest) MessageType() MessageType { return MessageTypePortModeInfoRequest }
func (r *PortModeInfoRequest) ExpectsResponse() bool    { return true }

func (r *PortModeInfoRequest) Matches(resp ResponseBody) bool {
	u, ok := resp.(*PortModeInformationResponse)
	return ok && u.Port == r.Port && u.Mode == r.Mode && u.Info == r.Info
}

type InputFormatRequest struct {
	Port   byte
	Mode   byte
	Delta  uint32
	Notify bool
}

func (r *InputFormatRequest) Marshal() ([]byte, error) {
	b := make([]byte, 7)
	b[0] = r.Port
	b[1] = r.Mode
	binary.LittleEndian.PutUint32(b[2:], r.Delta)
	if r.Notify {
		b[6] = 1
	}
	return b, nil
}

func (r *InputFormatRequest) MessageType() MessageType { return MessageTypeInputFormatSetup }
func (r *InputFormatRequest) ExpectsResponse() bool    { return true }

func (r *InputFormatRequest) Matches(resp ResponseBody) bool {
	u, ok := resp.(*InputFormatResponse)
	return ok && u.Port == r.Port && u.Mode == r.Mode
}

// ModeDataset names one dataset of one mode inside a combined-format setup.
type ModeDataset struct {
	Mode    byte
	Dataset byte
}

func (d ModeDataset) pack() byte {
	return d.Mode<<4 | d.Dataset&0x0F
}

type CombinedFormatRequest struct {
	Port             byte
	Sub              CombinedFormatSub
	CombinationIndex byte
	Pairs            []ModeDataset
}

func (r *CombinedFormatRequest) Marshal() ([]byte, error) {
	b := []byte{r.Port, byte(r.Sub)}
	if r.Sub != CombinedFormatSet {
		return b, nil
	}
	b = append(b, r.CombinationIndex)
	for _, p := range r.Pairs {
		b = append(b, p.pack())
	}
	return b, nil
}

func (r *CombinedFormatRequest) MessageType() MessageType { return MessageTypeCombinedFormatSetup }

func (r *CombinedFormatRequest) ExpectsResponse() bool {
	return r.Sub == CombinedFormatUnlockEnabled || r.Sub == CombinedFormatUnlockDisabled
}

func (r *CombinedFormatRequest) Matches(resp ResponseBody) bool {
	u, ok := resp.(*CombinedFormatResponse)
	return ok && u.Port == r.Port
}

type VirtualPortRequest struct {
	Connect bool
	PortA   byte
	PortB   byte
}

func (r *VirtualPortRequest) Marshal() ([]byte, error) {
	if r.Connect {
		return []byte{0x01, r.PortA, r.PortB}, nil
	}
	return []byte{0x00, r.PortA}, nil
}

func (r *VirtualPortRequest) MessageType() MessageType { return MessageTypeVirtualPortSetup }
func (r *VirtualPortRequest) ExpectsResponse() bool    { return true }

// Matches accepts either the generic command acknowledgement for 0x61 or the
// attach/detach event naming the same ports; firmware answers with one or the
// other depending on revision.
func (r *VirtualPortRequest) Matches(resp ResponseBody) bool {
	switch u := resp.(type) {
	case *CommandFeedbackResponse:
		return u.Command == MessageTypeVirtualPortSetup
	case *AttachedIOResponse:
		if r.Connect {
			return u.Event == IOEventAttachedVirtual &&
				(u.PortA == r.PortA && u.PortB == r.PortB ||
					u.PortA == r.PortB && u.PortB == r.PortA)
		}
		return u.Event == IOEventDetached && u.Port == r.PortA
	}
	return false
}

type OutputCommandRequest struct {
	Port    byte
	Flags   byte
	Payload []byte
}

func (r *OutputCommandRequest) Marshal() ([]byte, error) {
	b := make([]byte, 2+len(r.Payload))
	b[0] = r.Port
	b[1] = r.Flags
	copy(b[2:], r.Payload)
	return b, nil
}

func (r *OutputCommandRequest) MessageType() MessageType { return MessageTypeOutputCommand }

func (r *OutputCommandRequest) ExpectsResponse() bool {
	return r.Flags&OutputFlagFeedback != 0
}

func (r *OutputCommandRequest) Matches(resp ResponseBody) bool {
	u, ok := resp.(*OutputFeedbackResponse)
	if !ok {
		return false
	}
	for _, f := range u.Feedback {
		if f.Port == r.Port {
			return true
		}
	}
	return false
}

// NewStartPower builds a single-output power command. Power is -100..100.
func NewStartPower(port byte, power int8, flags byte) *OutputCommandRequest {
	return &OutputCommandRequest{
		Port:    port,
		Flags:   flags,
		Payload: []byte{OutputSubStartPower, byte(power)},
	}
}

// NewStartPowerDual builds a two-output power command for virtual ports.
func NewStartPowerDual(port byte, powerA, powerB int8, flags byte) *OutputCommandRequest {
	return &OutputCommandRequest{
		Port:    port,
		Flags:   flags,
		Payload: []byte{OutputSubStartPowerDual, byte(powerA), byte(powerB)},
	}
}

// NewWriteDirect builds a write-direct-mode-data command.
func NewWriteDirect(port, mode byte, data []byte, flags byte) *OutputCommandRequest {
	return &OutputCommandRequest{
		Port:    port,
		Flags:   flags,
		Payload: append([]byte{OutputSubWriteDirect, mode}, data...),
	}
}
