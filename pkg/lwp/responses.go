package lwp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// UnmarshalResponseBody parses the payload of a downstream frame. The second
// return is false only for type bytes outside the catalog; a recognized type
// with a malformed payload yields an UnknownResponse so decoding never fails.
func UnmarshalResponseBody(t MessageType, buf []byte) (ResponseBody, bool) {
	var b ResponseBody
	switch t {
	case MessageTypeProperties:
		b = &PropertyUpdateResponse{}
	case MessageTypeActions:
		b = &ActionResponse{}
	case MessageTypeAlerts:
		b = &AlertResponse{}
	case MessageTypeAttachedIO:
		b = &AttachedIOResponse{}
	case MessageTypeFeedback:
		b = &CommandFeedbackResponse{}
	case MessageTypeNetwork:
		b = &NetworkResponse{}
	case MessageTypeLockStatus:
		b = &LockStatusResponse{}
	case MessageTypePortInformation:
		b = &PortInformationResponse{}
	case MessageTypePortModeInformation:
		b = &PortModeInformationResponse{}
	case MessageTypePortValueSingle:
		b = &PortValueSingleResponse{}
	case MessageTypePortValueCombined:
		b = &PortValueCombinedResponse{}
	case MessageTypeInputFormat:
		b = &InputFormatResponse{}
	case MessageTypeCombinedFormat:
		b = &CombinedFormatResponse{}
	case MessageTypeOutputCommand:
		b = &OutputFeedbackResponse{}
	case MessageTypeBootMode, MessageTypeLockMemory, MessageTypeLockStatusRequest,
		MessageTypePortInfoRequest, MessageTypePortModeInfoRequest,
		MessageTypeInputFormatSetup, MessageTypeCombinedFormatSetup,
		MessageTypeVirtualPortSetup:
		// Upstream-only kinds still occupy the type space; a frame carrying
		// one is recognized but not structurally modeled downstream.
		return &UnknownResponse{Type: t, Payload: buf}, true
	default:
		return nil, false
	}
	if err := b.Unmarshal(buf); err != nil {
		return &UnknownResponse{Type: t, Payload: buf}, true
	}
	return b, true
}

// UnknownResponse stands in for any recognized frame whose payload failed
// structural validation. It preserves stream progress instead of erroring.
type UnknownResponse struct {
	Type    MessageType
	Payload []byte
}

func (r *UnknownResponse) Unmarshal(buf []byte) error {
	r.Payload = buf
	return nil
}

func (r *UnknownResponse) MessageType() MessageType { return r.Type }

type PropertyUpdateResponse struct {
	Property  HubProperty
	Operation PropertyOperation
	Payload   []byte
}

func (r *PropertyUpdateResponse) Unmarshal(buf []byte) error {
	if len(buf) < 2 {
		return io.ErrShortBuffer
	}
	r.Property = HubProperty(buf[0])
	r.Operation = PropertyOperation(buf[1])
	r.Payload = buf[2:]
	return nil
}

func (r *PropertyUpdateResponse) MessageType() MessageType { return MessageTypeProperties }

// Text returns the payload as a NUL-trimmed string, for name-like properties.
func (r *PropertyUpdateResponse) Text() string {
	return string(bytes.TrimRight(r.Payload, "\x00"))
}

// Version parses the payload as a packed version, for version properties.
func (r *PropertyUpdateResponse) Version() (Version, error) {
	return ParseVersion(r.Payload)
}

type ActionResponse struct {
	Action HubAction
}

func (r *ActionResponse) Unmarshal(buf []byte) error {
	if len(buf) < 1 {
		return io.ErrShortBuffer
	}
	r.Action = HubAction(buf[0])
	return nil
}

func (r *ActionResponse) MessageType() MessageType { return MessageTypeActions }

type AlertResponse struct {
	Alert     AlertType
	Operation AlertOperation
	Payload   []byte
}

func (r *AlertResponse) Unmarshal(buf []byte) error {
	if len(buf) < 2 {
		return io.ErrShortBuffer
	}
	r.Alert = AlertType(buf[0])
	r.Operation = AlertOperation(buf[1])
	r.Payload = buf[2:]
	return nil
}

func (r *AlertResponse) MessageType() MessageType { return MessageTypeAlerts }

// Raised reports whether the alert condition is active. The hub sends 0x00
// for all-clear and 0xFF for raised.
func (r *AlertResponse) Raised() bool {
	return len(r.Payload) > 0 && r.Payload[0] != 0x00
}

type AttachedIOResponse struct {
	Port  byte
	Event IOEvent

	// Attached only.
	IOType      DeviceType
	HardwareRev Version
	SoftwareRev Version

	// AttachedVirtual only.
	PortA byte
	PortB byte
}

func (r *AttachedIOResponse) Unmarshal(buf []byte) error {
	if len(buf) < 2 {
		return io.ErrShortBuffer
	}
	r.Port = buf[0]
	r.Event = IOEvent(buf[1])
	switch r.Event {
	case IOEventDetached:
		return nil
	case IOEventAttached:
		if len(buf) < 4 {
			return io.ErrShortBuffer
		}
		r.IOType = DeviceType(binary.LittleEndian.Uint16(buf[2:]))
		if len(buf) >= 12 {
			hw, err := ParseVersion(buf[4:8])
			if err != nil {
				return err
			}
			sw, err := ParseVersion(buf[8:12])
			if err != nil {
				return err
			}
			r.HardwareRev, r.SoftwareRev = hw, sw
		}
		return nil
	case IOEventAttachedVirtual:
		if len(buf) < 6 {
			return io.ErrShortBuffer
		}
		r.IOType = DeviceType(binary.LittleEndian.Uint16(buf[2:]))
		r.PortA = buf[4]
		r.PortB = buf[5]
		return nil
	}
	return errors.New("invalid io event")
}

func (r *AttachedIOResponse) MessageType() MessageType { return MessageTypeAttachedIO }

// CommandFeedbackResponse is the hub's generic acknowledgement or error,
// keyed by the type byte of the command it answers.
type CommandFeedbackResponse struct {
	Command MessageType
	Code    FeedbackCode
}

func (r *CommandFeedbackResponse) Unmarshal(buf []byte) error {
	if len(buf) < 2 {
		return io.ErrShortBuffer
	}
	r.Command = MessageType(buf[0])
	r.Code = FeedbackCode(buf[1])
	return nil
}

func (r *CommandFeedbackResponse) MessageType() MessageType { return MessageTypeFeedback }

// OK reports whether the feedback is a plain acknowledgement.
func (r *CommandFeedbackResponse) OK() bool { return r.Code == FeedbackACK }

type NetworkResponse struct {
	Command NetworkCommand
	Payload []byte
}

func (r *NetworkResponse) Unmarshal(buf []byte) error {
	if len(buf) < 1 {
		return io.ErrShortBuffer
	}
	r.Command = NetworkCommand(buf[0])
	r.Payload = buf[1:]
	return nil
}

func (r *NetworkResponse) MessageType() MessageType { return MessageTypeNetwork }

type LockStatusResponse struct {
	Locked bool
}

func (r *LockStatusResponse) Unmarshal(buf []byte) error {
	// 0xFF means unlocked; anything else, including an empty payload on
	// older firmware, means locked.
	r.Locked = len(buf) == 0 || buf[0] != 0xFF
	return nil
}

func (r *LockStatusResponse) MessageType() MessageType { return MessageTypeLockStatus }

// Port capability bits reported by the mode-info form of 0x43.
const (
	PortCapabilityOutput         byte = 0x01
	PortCapabilityInput          byte = 0x02
	PortCapabilityCombinable     byte = 0x04
	PortCapabilitySynchronizable byte = 0x08
)

type PortInformationResponse struct {
	Port byte
	Info PortInfoType

	// ModeInfo form.
	Capabilities byte
	ModeCount    byte
	InputModes   ModeBitmask
	OutputModes  ModeBitmask

	// Combinations form.
	Combinations []ModeBitmask
}

func (r *PortInformationResponse) Unmarshal(buf []byte) error {
	if len(buf) < 2 {
		return io.ErrShortBuffer
	}
	r.Port = buf[0]
	r.Info = PortInfoType(buf[1])
	switch r.Info {
	case PortInfoModeInfo:
		if len(buf) < 8 {
			return io.ErrShortBuffer
		}
		r.Capabilities = buf[2]
		r.ModeCount = buf[3]
		r.InputModes = ModeBitmask(binary.LittleEndian.Uint16(buf[4:]))
		r.OutputModes = ModeBitmask(binary.LittleEndian.Uint16(buf[6:]))
		return nil
	case PortInfoCombinations:
		if (len(buf)-2)%2 != 0 {
			return io.ErrShortBuffer
		}
		for i := 2; i < len(buf); i += 2 {
			m := ModeBitmask(binary.LittleEndian.Uint16(buf[i:]))
			if m == 0 {
				break
			}
			r.Combinations = append(r.Combinations, m)
		}
		return nil
	}
	return errors.New("invalid port info type")
}

func (r *PortInformationResponse) MessageType() MessageType { return MessageTypePortInformation }

func (r *PortInformationResponse) Combinable() bool {
	return r.Capabilities&PortCapabilityCombinable != 0
}

// ValueFormat describes how a mode's raw value bytes are laid out.
type ValueFormat struct {
	Datasets byte
	Type     DatasetType
	Figures  byte
	Decimals byte
}

// Size is the total raw byte width of one value in this format.
func (f ValueFormat) Size() int {
	return int(f.Datasets) * f.Type.Size()
}

type PortModeInformationResponse struct {
	Port byte
	Mode byte
	Info ModeInfoType

	Name    string
	Symbol  string
	Min     float32
	Max     float32
	Mapping [2]byte
	Bias    byte
	Format  ValueFormat
	Payload []byte
}

func (r *PortModeInformationResponse) Unmarshal(buf []byte) error {
	if len(buf) < 3 {
		return io.ErrShortBuffer
	}
	r.Port = buf[0]
	r.Mode = buf[1]
	r.Info = ModeInfoType(buf[2])
	r.Payload = buf[3:]
	switch r.Info {
	case ModeInfoName:
		r.Name = string(bytes.TrimRight(r.Payload, "\x00"))
		return nil
	case ModeInfoSymbol:
		r.Symbol = string(bytes.TrimRight(r.Payload, "\x00"))
		return nil
	case ModeInfoRawRange, ModeInfoPercentRange, ModeInfoSIRange:
		if len(r.Payload) < 8 {
			return io.ErrShortBuffer
		}
		r.Min = math.Float32frombits(binary.LittleEndian.Uint32(r.Payload[0:]))
		r.Max = math.Float32frombits(binary.LittleEndian.Uint32(r.Payload[4:]))
		return nil
	case ModeInfoMapping:
		if len(r.Payload) < 2 {
			return io.ErrShortBuffer
		}
		r.Mapping[0] = r.Payload[0]
		r.Mapping[1] = r.Payload[1]
		return nil
	case ModeInfoMotorBias:
		if len(r.Payload) < 1 {
			return io.ErrShortBuffer
		}
		r.Bias = r.Payload[0]
		return nil
	case ModeInfoCapabilityBits:
		if len(r.Payload) < 6 {
			return io.ErrShortBuffer
		}
		return nil
	case ModeInfoValueFormat:
		if len(r.Payload) < 4 {
			return io.ErrShortBuffer
		}
		r.Format = ValueFormat{
			Datasets: r.Payload[0],
			Type:     DatasetType(r.Payload[1]),
			Figures:  r.Payload[2],
			Decimals: r.Payload[3],
		}
		if r.Format.Type.Size() == 0 {
			return errors.New("invalid dataset type")
		}
		return nil
	}
	return errors.New("invalid mode info type")
}

func (r *PortModeInformationResponse) MessageType() MessageType {
	return MessageTypePortModeInformation
}

type PortValueSingleResponse struct {
	Port    byte
	Payload []byte
}

func (r *PortValueSingleResponse) Unmarshal(buf []byte) error {
	if len(buf) < 1 {
		return io.ErrShortBuffer
	}
	r.Port = buf[0]
	r.Payload = buf[1:]
	return nil
}

func (r *PortValueSingleResponse) MessageType() MessageType { return MessageTypePortValueSingle }

type PortValueCombinedResponse struct {
	Port    byte
	Entries ModeBitmask
	Payload []byte
}

func (r *PortValueCombinedResponse) Unmarshal(buf []byte) error {
	if len(buf) < 3 {
		return io.ErrShortBuffer
	}
	r.Port = buf[0]
	r.Entries = ModeBitmask(binary.LittleEndian.Uint16(buf[1:]))
	r.Payload = buf[3:]
	return nil
}

func (r *PortValueCombinedResponse) MessageType() MessageType { return MessageTypePortValueCombined }

type InputFormatResponse struct {
	Port   byte
	Mode   byte
	Delta  uint32
	Notify bool
}

func (r *InputFormatResponse) Unmarshal(buf []byte) error {
	if len(buf) < 7 {
		return io.ErrShortBuffer
	}
	r.Port = buf[0]
	r.Mode = buf[1]
	r.Delta = binary.LittleEndian.Uint32(buf[2:])
	r.Notify = buf[6] != 0
	return nil
}

func (r *InputFormatResponse) MessageType() MessageType { return MessageTypeInputFormat }

type CombinedFormatResponse struct {
	Port             byte
	CombinationIndex byte
	Enabled          ModeBitmask
}

func (r *CombinedFormatResponse) Unmarshal(buf []byte) error {
	if len(buf) < 4 {
		return io.ErrShortBuffer
	}
	r.Port = buf[0]
	r.CombinationIndex = buf[1]
	r.Enabled = ModeBitmask(binary.LittleEndian.Uint16(buf[2:]))
	return nil
}

func (r *CombinedFormatResponse) MessageType() MessageType { return MessageTypeCombinedFormat }

// PortFeedback is one port's completion bits inside an output feedback frame.
type PortFeedback struct {
	Port byte
	Bits byte
}

func (f PortFeedback) Completed() bool { return f.Bits&OutputFeedbackCompleted != 0 }
func (f PortFeedback) Discarded() bool { return f.Bits&OutputFeedbackDiscarded != 0 }

type OutputFeedbackResponse struct {
	Feedback []PortFeedback
}

func (r *OutputFeedbackResponse) Unmarshal(buf []byte) error {
	if len(buf) < 2 || len(buf)%2 != 0 {
		return io.ErrShortBuffer
	}
	r.Feedback = make([]PortFeedback, len(buf)/2)
	for i := range r.Feedback {
		r.Feedback[i] = PortFeedback{Port: buf[i*2], Bits: buf[i*2+1]}
	}
	return nil
}

func (r *OutputFeedbackResponse) MessageType() MessageType { return MessageTypeOutputCommand }
