package lwp

// MessageType is the type byte that follows the hub id in every frame.
type MessageType uint8

const (
	MessageTypeProperties          MessageType = 0x01
	MessageTypeActions             MessageType = 0x02
	MessageTypeAlerts              MessageType = 0x03
	MessageTypeAttachedIO          MessageType = 0x04
	MessageTypeFeedback            MessageType = 0x05
	MessageTypeNetwork             MessageType = 0x08
	MessageTypeBootMode            MessageType = 0x10
	MessageTypeLockMemory          MessageType = 0x11
	MessageTypeLockStatusRequest   MessageType = 0x12
	MessageTypeLockStatus          MessageType = 0x13
	MessageTypePortInfoRequest     MessageType = 0x21
	MessageTypePortModeInfoRequest MessageType = 0x22
	MessageTypeInputFormatSetup    MessageType = 0x41
	MessageTypeCombinedFormatSetup MessageType = 0x42
	MessageTypePortInformation     MessageType = 0x43
	MessageTypePortModeInformation MessageType = 0x44
	MessageTypePortValueSingle     MessageType = 0x45
	MessageTypePortValueCombined   MessageType = 0x46
	MessageTypeInputFormat         MessageType = 0x47
	MessageTypeCombinedFormat      MessageType = 0x48
	MessageTypeVirtualPortSetup    MessageType = 0x61
	MessageTypeOutputCommand       MessageType = 0x81
)

// RequestBody is one of the upstream message bodies. The set is closed: every
// request kind declares its own layout, whether the hub answers it, and what
// an answer looks like.
type RequestBody interface {
	// Marshal returns the type-specific payload that follows the
	// [length, hub, type] header.
	Marshal() ([]byte, error)
	MessageType() MessageType
	// ExpectsResponse reports whether the hub sends a correlated reply.
	ExpectsResponse() bool
	// Matches reports whether a decoded downstream body answers this request.
	Matches(ResponseBody) bool
}

// ResponseBody is one of the downstream message bodies.
type ResponseBody interface {
	// Unmarshal parses the type-specific payload that follows the
	// [length, hub, type] header.
	Unmarshal([]byte) error
	MessageType() MessageType
}

type HubProperty uint8

const (
	PropertyAdvertisingName      HubProperty = 0x01
	PropertyButton               HubProperty = 0x02
	PropertyFirmwareVersion      HubProperty = 0x03
	PropertyHardwareVersion      HubProperty = 0x04
	PropertyRSSI                 HubProperty = 0x05
	PropertyBatteryVoltage       HubProperty = 0x06
	PropertyBatteryType          HubProperty = 0x07
	PropertyManufacturerName     HubProperty = 0x08
	PropertyRadioFirmwareVersion HubProperty = 0x09
	PropertyProtocolVersion      HubProperty = 0x0A
	PropertySystemTypeID         HubProperty = 0x0B
	PropertyNetworkID            HubProperty = 0x0C
	PropertyPrimaryMACAddress    HubProperty = 0x0D
	PropertySecondaryMACAddress  HubProperty = 0x0E
	PropertyNetworkFamily        HubProperty = 0x0F
)

type PropertyOperation uint8

const (
	PropertyOperationSet            PropertyOperation = 0x01
	PropertyOperationEnableUpdates  PropertyOperation = 0x02
	PropertyOperationDisableUpdates PropertyOperation = 0x03
	PropertyOperationReset          PropertyOperation = 0x04
	PropertyOperationRequestUpdate  PropertyOperation = 0x05
	PropertyOperationUpdate         PropertyOperation = 0x06
)

type HubAction uint8

const (
	ActionDisconnect        HubAction = 0x01
	ActionSwitchOff         HubAction = 0x02
	ActionVCCPortOn         HubAction = 0x03
	ActionVCCPortOff        HubAction = 0x04
	ActionBusyIndicationOn  HubAction = 0x05
	ActionBusyIndicationOff HubAction = 0x06
)

type AlertType uint8

const (
	AlertLowVoltage        AlertType = 0x01
	AlertHighCurrent       AlertType = 0x02
	AlertLowSignalStrength AlertType = 0x03
	AlertOverPower         AlertType = 0x04
)

type AlertOperation uint8

const (
	AlertOperationEnableUpdates  AlertOperation = 0x01
	AlertOperationRequestUpdate  AlertOperation = 0x02
	AlertOperationDisableUpdates AlertOperation = 0x03
	AlertOperationUpdate         AlertOperation = 0x04
)

type NetworkCommand uint8

const (
	NetworkCommandConnectionRequest NetworkCommand = 0x02
	NetworkCommandSetFamily         NetworkCommand = 0x04
	NetworkCommandJoinDenied        NetworkCommand = 0x05
	NetworkCommandGetFamily         NetworkCommand = 0x06
	NetworkCommandFamily            NetworkCommand = 0x07
	NetworkCommandGetSubfamily      NetworkCommand = 0x08
	NetworkCommandSubfamily         NetworkCommand = 0x09
	NetworkCommandSetSubfamily      NetworkCommand = 0x0A
	NetworkCommandGetExtendedFamily NetworkCommand = 0x0B
	NetworkCommandExtendedFamily    NetworkCommand = 0x0C
	NetworkCommandSetExtendedFamily NetworkCommand = 0x0D
	NetworkCommandResetLongPress    NetworkCommand = 0x0E
)

type PortInfoType uint8

const (
	PortInfoValue        PortInfoType = 0x00
	PortInfoModeInfo     PortInfoType = 0x01
	PortInfoCombinations PortInfoType = 0x02
)

type ModeInfoType uint8

const (
	ModeInfoName           ModeInfoType = 0x00
	ModeInfoRawRange       ModeInfoType = 0x01
	ModeInfoPercentRange   ModeInfoType = 0x02
	ModeInfoSIRange        ModeInfoType = 0x03
	ModeInfoSymbol         ModeInfoType = 0x04
	ModeInfoMapping        ModeInfoType = 0x05
	ModeInfoMotorBias      ModeInfoType = 0x07
	ModeInfoCapabilityBits ModeInfoType = 0x08
	ModeInfoValueFormat    ModeInfoType = 0x80
)

type CombinedFormatSub uint8

const (
	CombinedFormatSet            CombinedFormatSub = 0x01
	CombinedFormatLock           CombinedFormatSub = 0x02
	CombinedFormatUnlockEnabled  CombinedFormatSub = 0x03
	CombinedFormatUnlockDisabled CombinedFormatSub = 0x04
	CombinedFormatReset          CombinedFormatSub = 0x06
)

// Output command flags. Feedback requests a correlated 0x81 feedback message.
const (
	OutputFlagFeedback           byte = 0x01
	OutputFlagExecuteImmediately byte = 0x10
)

// Output command subcommands.
const (
	OutputSubStartPower     byte = 0x01
	OutputSubStartPowerDual byte = 0x02
	OutputSubWriteDirect    byte = 0x51
)

type IOEvent uint8

const (
	IOEventDetached        IOEvent = 0x00
	IOEventAttached        IOEvent = 0x01
	IOEventAttachedVirtual IOEvent = 0x02
)

type FeedbackCode uint8

const (
	FeedbackACK               FeedbackCode = 0x01
	FeedbackNACK              FeedbackCode = 0x02
	FeedbackBufferOverflow    FeedbackCode = 0x03
	FeedbackTimeout           FeedbackCode = 0x04
	FeedbackInvalidCommand    FeedbackCode = 0x05
	FeedbackInvalidParameters FeedbackCode = 0x06
	FeedbackOverCurrent       FeedbackCode = 0x07
	FeedbackInternalError     FeedbackCode = 0x08
)

func (c FeedbackCode) String() string {
	switch c {
	case FeedbackACK:
		return "ack"
	case FeedbackNACK:
		return "nack"
	case FeedbackBufferOverflow:
		return "buffer overflow"
	case FeedbackTimeout:
		return "timeout"
	case FeedbackInvalidCommand:
		return "invalid command"
	case FeedbackInvalidParameters:
		return "invalid parameters"
	case FeedbackOverCurrent:
		return "over-current"
	case FeedbackInternalError:
		return "internal error"
	}
	return "unknown"
}

// Port output feedback bits.
const (
	OutputFeedbackInProgress byte = 0x01
	OutputFeedbackCompleted  byte = 0x02
	OutputFeedbackDiscarded  byte = 0x04
	OutputFeedbackIdle       byte = 0x08
	OutputFeedbackBusyFull   byte = 0x10
)

// DeviceType identifies the hardware attached to a port.
type DeviceType uint16

const (
	DeviceTypeMotor               DeviceType = 0x0001
	DeviceTypeTrainMotor          DeviceType = 0x0002
	DeviceTypeLight               DeviceType = 0x0008
	DeviceTypeVoltageSensor       DeviceType = 0x0014
	DeviceTypeCurrentSensor       DeviceType = 0x0015
	DeviceTypePiezoTone           DeviceType = 0x0016
	DeviceTypeRGBLight            DeviceType = 0x0017
	DeviceTypeTiltSensor          DeviceType = 0x0022
	DeviceTypeMotionSensor        DeviceType = 0x0023
	DeviceTypeColorDistanceSensor DeviceType = 0x0025
	DeviceTypeInteractiveMotor    DeviceType = 0x0026
	DeviceTypeBuiltInMotor        DeviceType = 0x0027
	DeviceTypeBuiltInTiltSensor   DeviceType = 0x0028
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeMotor:
		return "motor"
	case DeviceTypeTrainMotor:
		return "train motor"
	case DeviceTypeLight:
		return "light"
	case DeviceTypeVoltageSensor:
		return "voltage sensor"
	case DeviceTypeCurrentSensor:
		return "current sensor"
	case DeviceTypePiezoTone:
		return "piezo tone"
	case DeviceTypeRGBLight:
		return "rgb light"
	case DeviceTypeTiltSensor:
		return "tilt sensor"
	case DeviceTypeMotionSensor:
		return "motion sensor"
	case DeviceTypeColorDistanceSensor:
		return "color/distance sensor"
	case DeviceTypeInteractiveMotor:
		return "interactive motor"
	case DeviceTypeBuiltInMotor:
		return "built-in motor"
	case DeviceTypeBuiltInTiltSensor:
		return "built-in tilt sensor"
	}
	return "unknown"
}

// IsMotor reports whether the device drives an output shaft. Virtual port
// pairs of these get the dual linear motor treatment.
func (t DeviceType) IsMotor() bool {
	switch t {
	case DeviceTypeMotor, DeviceTypeTrainMotor, DeviceTypeInteractiveMotor, DeviceTypeBuiltInMotor:
		return true
	}
	return false
}
