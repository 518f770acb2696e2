package kfly

import "fmt"

// Command is the 8-bit wire identifier. Zero ("None") is reserved and
// must never appear on the wire.
type Command uint8

// The closed command enumeration. Integer values are part of the wire
// format and must never change.
const (
	None                       Command = 0
	Ack                        Command = 1
	Ping                       Command = 2
	DebugMessage               Command = 3
	GetRunningMode             Command = 4
	ManageSubscriptions        Command = 5
	GetSystemStrings           Command = 16
	GetSystemStatus            Command = 17
	SetDeviceStrings           Command = 18
	SaveToFlash                Command = 19
	EraseFlash                 Command = 20
	MotorOverride              Command = 23
	GetControllerReferences    Command = 24
	GetControlSignals          Command = 25
	GetControllerLimits        Command = 26
	SetControllerLimits        Command = 27
	GetArmSettings             Command = 28
	SetArmSettings             Command = 29
	GetRateControllerData      Command = 30
	SetRateControllerData      Command = 31
	GetAttitudeControllerData  Command = 32
	SetAttitudeControllerData  Command = 33
	GetVelocityControllerData  Command = 34
	SetVelocityControllerData  Command = 35
	GetPositionControllerData  Command = 36
	SetPositionControllerData  Command = 37
	GetChannelMix              Command = 39
	SetChannelMix              Command = 40
	GetRCInputSettings         Command = 41
	SetRCInputSettings         Command = 42
	GetRCOutputSettings        Command = 43
	SetRCOutputSettings        Command = 44
	GetRCValues                Command = 45
	GetIMUData                 Command = 46
	GetRawIMUData              Command = 47
	GetIMUCalibration          Command = 48
	SetIMUCalibration          Command = 49
	GetEstimationRate          Command = 50
	GetEstimationAttitude      Command = 51
	GetEstimationVelocity      Command = 52
	GetEstimationPosition      Command = 53
	GetEstimationAllStates     Command = 54
	ResetEstimation            Command = 55
	GetControlFilters          Command = 56
	SetControlFilters          Command = 57
	ComputerControlReference   Command = 126
	MotionCaptureMeasurement   Command = 127
)

var commandNames = map[Command]string{
	None:                      "None",
	Ack:                       "Ack",
	Ping:                      "Ping",
	DebugMessage:              "DebugMessage",
	GetRunningMode:            "GetRunningMode",
	ManageSubscriptions:       "ManageSubscriptions",
	GetSystemStrings:          "GetSystemStrings",
	GetSystemStatus:           "GetSystemStatus",
	SetDeviceStrings:          "SetDeviceStrings",
	SaveToFlash:               "SaveToFlash",
	EraseFlash:                "EraseFlash",
	MotorOverride:             "MotorOverride",
	GetControllerReferences:   "GetControllerReferences",
	GetControlSignals:         "GetControlSignals",
	GetControllerLimits:       "GetControllerLimits",
	SetControllerLimits:       "SetControllerLimits",
	GetArmSettings:            "GetArmSettings",
	SetArmSettings:            "SetArmSettings",
	GetRateControllerData:     "GetRateControllerData",
	SetRateControllerData:     "SetRateControllerData",
	GetAttitudeControllerData: "GetAttitudeControllerData",
	SetAttitudeControllerData: "SetAttitudeControllerData",
	GetVelocityControllerData: "GetVelocityControllerData",
	SetVelocityControllerData: "SetVelocityControllerData",
	GetPositionControllerData: "GetPositionControllerData",
	SetPositionControllerData: "SetPositionControllerData",
	GetChannelMix:             "GetChannelMix",
	SetChannelMix:             "SetChannelMix",
	GetRCInputSettings:        "GetRCInputSettings",
	SetRCInputSettings:        "SetRCInputSettings",
	GetRCOutputSettings:       "GetRCOutputSettings",
	SetRCOutputSettings:       "SetRCOutputSettings",
	GetRCValues:               "GetRCValues",
	GetIMUData:                "GetIMUData",
	GetRawIMUData:             "GetRawIMUData",
	GetIMUCalibration:         "GetIMUCalibration",
	SetIMUCalibration:         "SetIMUCalibration",
	GetEstimationRate:         "GetEstimationRate",
	GetEstimationAttitude:     "GetEstimationAttitude",
	GetEstimationVelocity:     "GetEstimationVelocity",
	GetEstimationPosition:     "GetEstimationPosition",
	GetEstimationAllStates:    "GetEstimationAllStates",
	ResetEstimation:           "ResetEstimation",
	GetControlFilters:         "GetControlFilters",
	SetControlFilters:         "SetControlFilters",
	ComputerControlReference:  "ComputerControlReference",
	MotionCaptureMeasurement:  "MotionCaptureMeasurement",
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(0x%02X)", uint8(c))
}

// Direction describes which side of the link may transmit a command.
type Direction int

const (
	DirHostToDevice Direction = iota
	DirDeviceToHost
	DirBidirectional
)

// direction reports the transmission direction of cmd. Commands not
// present in the table are treated as unknown by callers via ok=false.
func direction(cmd Command) (Direction, bool) {
	d, ok := commandDirections[cmd]
	return d, ok
}
