package pylon

// Features maps parameter names to kinds for remote cameras.  The remote
// protocol is untyped on the wire; this table is how the client knows
// which accessor to hand out, in the same way a GenICam nodemap does.
var Features = map[string]ParamKind{
	// ints
	"Gain":              KindInt,
	"GainRaw":           KindInt,
	"BlackLevelRaw":     KindInt,
	"Width":             KindInt,
	"Height":            KindInt,
	"OffsetX":           KindInt,
	"OffsetY":           KindInt,
	"BinningHorizontal": KindInt,
	"BinningVertical":   KindInt,

	// floats
	"ExposureTimeAbs":         KindFloat,
	"AcquisitionFrameRateAbs": KindFloat,
	"ResultingFrameRateAbs":   KindFloat,
	"TriggerDelayAbs":         KindFloat,
	"AutoTargetValue":         KindFloat,

	// bools
	"AcquisitionFrameRateEnable": KindBool,
	"ReverseX":                   KindBool,
	"ReverseY":                   KindBool,
	"GammaEnable":                KindBool,

	// enums
	"TriggerMode":       KindEnum,
	"TriggerSource":     KindEnum,
	"ExposureAuto":      KindEnum,
	"GainAuto":          KindEnum,
	"PixelFormat":       KindEnum,
	"TestImageSelector": KindEnum,

	// commands
	"TimestampReset":  KindCommand,
	"SoftwareTrigger": KindCommand,

	// strings
	"DeviceModelName":    KindString,
	"DeviceSerialNumber": KindString,
	"DeviceVersion":      KindString,
}
