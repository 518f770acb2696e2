package kfly

// Fixed-layout datagram records. Every field is a primitive scalar, a
// fixed array, or a nested packed struct — no variable-length data, no
// pointers, no interfaces — so the codec can byte-copy them directly
// with encoding/binary and little-endian byte order, matching the
// device's own struct layout.

const rcInputChannels = 16

// Port selects which link a subscription is published on.
type Port uint8

const (
	PortUSB  Port = 0
	PortAux1 Port = 1
	PortAux2 Port = 2
	PortAux3 Port = 3
	PortSame Port = 0xFF
)

// FlightMode selects which union member of ComputerControlReference is
// active.
type FlightMode uint8

const (
	FlightModeMotorDirect   FlightMode = 1
	FlightModeMotorIndirect FlightMode = 2
	FlightModeRate          FlightMode = 3
	FlightModeAttitudeEuler FlightMode = 4
	FlightModeAttitude      FlightMode = 5
)

type ArmingStickDirection uint8

const (
	StickNone ArmingStickDirection = iota
	StickPitchMin
	StickPitchMax
	StickRollMin
	StickRollMax
	StickYawMin
	StickYawMax
	StickNonLatchingSwitch
)

type RCInputRole uint8

const (
	RoleThrottle            RCInputRole = 0
	RolePitch               RCInputRole = 1
	RoleRoll                RCInputRole = 2
	RoleYaw                 RCInputRole = 3
	RoleAux1                RCInputRole = 4
	RoleAux2                RCInputRole = 5
	RoleAux3                RCInputRole = 6
	RoleArmNonlatch         RCInputRole = 7
	RoleEnableSerialControl RCInputRole = 8
	RoleFlightMode          RCInputRole = 9
	RoleOff                 RCInputRole = 0xFF
)

type RCInputType uint8

const (
	InputTypeAnalog  RCInputType = 1
	InputType3State  RCInputType = 2
	InputTypeOnOff   RCInputType = 3
)

type RCInputMode uint16

const (
	InputModeCPPM RCInputMode = 1
	InputModePWM  RCInputMode = 2
)

type RCInputSwitchPosition uint8

const (
	SwitchUndefined     RCInputSwitchPosition = 0
	SwitchNotSwitch     RCInputSwitchPosition = 1
	SwitchPositionBottom RCInputSwitchPosition = 2
	SwitchPositionCenter RCInputSwitchPosition = 3
	SwitchPositionTop    RCInputSwitchPosition = 4
)

type RCOutputMode uint8

const (
	RCOutputMode400HzPWM RCOutputMode = 0
	RCOutputMode50HzPWM  RCOutputMode = 1
	RCOutputModeOneShot  RCOutputMode = 2
)

// BiquadMode selects a D-term filter shape. Not present in the
// reference header; values chosen to match the firmware's known filter
// bank (off / low-pass / notch).
type BiquadMode uint8

const (
	BiquadOff      BiquadMode = 0
	BiquadLowPass  BiquadMode = 1
	BiquadNotch    BiquadMode = 2
)

// Vector3f is a packed 3-component float vector, x/y/z order.
type Vector3f struct {
	X, Y, Z float32
}

// Quaternion is a packed w/x/y/z quaternion, scalar-first.
type Quaternion struct {
	W, X, Y, Z float32
}

// PIDGains is a packed P/I/D gain triple.
type PIDGains struct {
	P, I, D float32
}

// ControllerGains bundles PID gains for all three axes.
type ControllerGains struct {
	Roll, Pitch, Yaw PIDGains
}

// -- payload-free datagrams --------------------------------------------

// AckPayload carries no data; Ack is a bare acknowledgement.
type AckPayload struct{}

// PingPayload carries no data.
type PingPayload struct{}

// SaveToFlashPayload carries no data.
type SaveToFlashPayload struct{}

// EraseFlashPayload carries no data.
type EraseFlashPayload struct{}

// ResetEstimationPayload carries no data.
type ResetEstimationPayload struct{}

// -- general ------------------------------------------------------------

// RunningMode reports whether the device booted into the bootloader or
// the flight firmware.
type RunningMode struct {
	Sel byte // 'B' bootloader, 'P' program
}

// ManageSubscription adds or removes a periodic publish subscription.
type ManageSubscription struct {
	Port      Port
	Cmd       Command
	Subscribe bool
	DeltaMs   uint32
}

// DebugMessagePayload carries a short NUL-padded diagnostic string.
type DebugMessagePayload struct {
	Text [64]byte
}

// SystemStrings reports identification and build information.
type SystemStrings struct {
	VehicleName [48]byte
	VehicleType [48]byte
	UniqueID    [12]byte
	KFlyVersion [96]byte
}

// SystemStatus reports live health telemetry.
type SystemStatus struct {
	FlightTime              float32
	UpTime                  float32
	CPUUsage                float32
	BatteryVoltage          float32
	MotorsArmed             bool
	InAir                   bool
	SerialInterfaceEnabled  bool
}

// SetDeviceStrings assigns the user-visible vehicle name and type.
type SetDeviceStrings struct {
	VehicleName [48]byte
	VehicleType [48]byte
}

// -- control --------------------------------------------------------

// MotorOverridePayload drives each motor output directly, used for ESC
// calibration and bench testing.
type MotorOverridePayload struct {
	Values [8]float32
}

// ControlSignals reports the actuator commands currently being applied.
type ControlSignals struct {
	Throttle     float32
	Torque       Vector3f
	MotorCommand [8]float32
}

// ControllerReferences reports the active attitude/rate/throttle
// reference the controller is tracking.
type ControllerReferences struct {
	Attitude Quaternion
	Rate     Vector3f
	Throttle float32
}

type rateLimit struct{ Roll, Pitch, Yaw float32 }
type angleLimit struct{ Roll, Pitch float32 }
type velocityLimit struct{ Horizontal, Vertical float32 }

type rateLimitPair struct {
	MaxRate    rateLimit
	CenterRate rateLimit
}

// GetControllerLimits and SetControllerLimits carry the exponential
// rate/angle/velocity limits used by the flight controller. The fields
// are duplicated rather than shared through embedding so each remains a
// distinct registry-dispatchable type, matching spec.md's "exactly one
// command per datagram type" invariant even though the device accepts
// and reports the identical byte layout for both directions.
type GetControllerLimits struct {
	MaxRate     rateLimitPair
	MaxAngle    angleLimit
	MaxVelocity velocityLimit
}
type SetControllerLimits struct {
	MaxRate     rateLimitPair
	MaxAngle    angleLimit
	MaxVelocity velocityLimit
}

type GetArmSettings struct {
	StickThreshold          float32
	ArmedMinThrottle        float32
	StickDirection          ArmingStickDirection
	ArmStickTimeS           uint8
	ArmZeroThrottleTimeoutS uint8
}
type SetArmSettings struct {
	StickThreshold          float32
	ArmedMinThrottle        float32
	StickDirection          ArmingStickDirection
	ArmStickTimeS           uint8
	ArmZeroThrottleTimeoutS uint8
}

type GetRateControllerData struct{ Gains ControllerGains }
type SetRateControllerData struct{ Gains ControllerGains }

type GetAttitudeControllerData struct{ Gains ControllerGains }
type SetAttitudeControllerData struct{ Gains ControllerGains }

type GetVelocityControllerData struct{ Gains ControllerGains }
type SetVelocityControllerData struct{ Gains ControllerGains }

type GetPositionControllerData struct{ Gains ControllerGains }
type SetPositionControllerData struct{ Gains ControllerGains }

type GetControlFilters struct {
	DtermCutoff     [3]float32
	DtermFilterMode [3]BiquadMode
}
type SetControlFilters struct {
	DtermCutoff     [3]float32
	DtermFilterMode [3]BiquadMode
}

type GetChannelMix struct {
	Weights [8][4]float32
	Offset  [8]float32
}
type SetChannelMix struct {
	Weights [8][4]float32
	Offset  [8]float32
}

type GetRCInputSettings struct {
	ChTop     [rcInputChannels]uint16
	ChCenter  [rcInputChannels]uint16
	ChBottom  [rcInputChannels]uint16
	Role      [rcInputChannels]RCInputRole
	Type      [rcInputChannels]RCInputType
	ChReverse [rcInputChannels]bool
	UseRSSI   bool
}
type SetRCInputSettings struct {
	ChTop     [rcInputChannels]uint16
	ChCenter  [rcInputChannels]uint16
	ChBottom  [rcInputChannels]uint16
	Role      [rcInputChannels]RCInputRole
	Type      [rcInputChannels]RCInputType
	ChReverse [rcInputChannels]bool
	UseRSSI   bool
}

type GetRCOutputSettings struct {
	ModeBank1      RCOutputMode
	ModeBank2      RCOutputMode
	ChannelEnabled [8]bool
}
type SetRCOutputSettings struct {
	ModeBank1      RCOutputMode
	ModeBank2      RCOutputMode
	ChannelEnabled [8]bool
}

// RCValues reports the live, calibrated RC receiver state.
type RCValues struct {
	CalibratedValue  [rcInputChannels]float32
	Switches         [3]RCInputSwitchPosition
	ActiveConnection bool
	NumConnections   uint16
	ChannelValue     [rcInputChannels]uint16
	RSSI             uint16
	RSSIFrequency    uint16
	Mode             RCInputMode
}

// -- sensors & estimation --------------------------------------------

// IMUData reports calibrated sensor readings.
type IMUData struct {
	Accelerometer Vector3f
	Gyroscope     Vector3f
	Magnetometer  Vector3f
	Temperature   float32
	Pressure      float32
	TimeStampNs   int64
}

// RawIMUData reports uncalibrated sensor readings in internal units.
type RawIMUData struct {
	Accelerometer [3]int16
	Gyroscope     [3]int16
	Magnetometer  [3]int16
	Temperature   int16
	Pressure      uint32
	TimeStampNs   int64
}

type GetIMUCalibration struct {
	AccelerometerBias [3]float32
	AccelerometerGain [3]float32
	MagnetometerBias  [3]float32
	MagnetometerGain  [3]float32
	Timestamp         uint32
}
type SetIMUCalibration struct {
	AccelerometerBias [3]float32
	AccelerometerGain [3]float32
	MagnetometerBias  [3]float32
	MagnetometerGain  [3]float32
	Timestamp         uint32
}

// EstimationRate reports the estimator's angular rate state.
type EstimationRate struct {
	AngularRate Vector3f
	RateBias    Vector3f
}

// EstimationAttitude reports the estimator's attitude state.
type EstimationAttitude struct {
	Q           Quaternion
	AngularRate Vector3f
	RateBias    Vector3f
}

// EstimationVelocity reports the estimator's velocity state.
type EstimationVelocity struct {
	Velocity Vector3f
	Bias     Vector3f
}

// EstimationPosition reports the estimator's position state.
type EstimationPosition struct {
	Position Vector3f
}

// EstimationAllStates bundles every estimator state in one datagram.
type EstimationAllStates struct {
	Attitude EstimationAttitude
	Velocity EstimationVelocity
	Position EstimationPosition
}

// -- computer control & motion capture --------------------------------

// computerControlUnionSize is the byte size of the largest union member
// (direct control: 8 * uint16 = 16 bytes), used to size the raw blob
// that every ComputerControlReference carries regardless of active
// mode.
const computerControlUnionSize = 16

// ComputerControlReference is a fixed-size envelope overlaying five
// possible control modes, disambiguated by Mode. The raw union bytes
// are always emitted at full size, zero-padded, matching the device's
// expectation of one wire size per command regardless of which variant
// is active.
type ComputerControlReference struct {
	Union [computerControlUnionSize]byte
	Mode  FlightMode
}

// NewDirectControl builds a ComputerControlReference driving all eight
// motors directly.
func NewDirectControl(values [8]uint16) ComputerControlReference {
	var r ComputerControlReference
	r.Mode = FlightModeMotorDirect
	for i, v := range values {
		putUint16(r.Union[i*2:i*2+2], v)
	}
	return r
}

// NewIndirectControl builds a ComputerControlReference driving the
// mixing matrix.
func NewIndirectControl(roll, pitch, yaw, throttle float32) ComputerControlReference {
	return ComputerControlReference{
		Union: packFloats32(roll, pitch, yaw, throttle),
		Mode:  FlightModeMotorIndirect,
	}
}

// NewRateControl builds a ComputerControlReference driving the rate
// controller.
func NewRateControl(roll, pitch, yaw, throttle float32) ComputerControlReference {
	return ComputerControlReference{
		Union: packFloats32(roll, pitch, yaw, throttle),
		Mode:  FlightModeRate,
	}
}

// NewAttitudeEulerControl builds a ComputerControlReference driving
// attitude via roll/pitch/yaw-rate.
func NewAttitudeEulerControl(roll, pitch, yawRate, throttle float32) ComputerControlReference {
	return ComputerControlReference{
		Union: packFloats32(roll, pitch, yawRate, throttle),
		Mode:  FlightModeAttitudeEuler,
	}
}

// NewAttitudeControl builds a ComputerControlReference driving attitude
// via a quaternion plus throttle. Only 16 bytes are available, so the
// union carries w, x, y and throttle; z is not carried. This mirrors the
// device's own 16-byte union.
func NewAttitudeControl(w, x, y, throttle float32) ComputerControlReference {
	return ComputerControlReference{
		Union: packFloats32(w, x, y, throttle),
		Mode:  FlightModeAttitude,
	}
}

// AsDirectControl reinterprets the union as eight direct motor values.
func (c ComputerControlReference) AsDirectControl() (values [8]uint16) {
	for i := range values {
		values[i] = getUint16(c.Union[i*2 : i*2+2])
	}
	return values
}

// AsIndirectControl reinterprets the union as roll/pitch/yaw/throttle.
func (c ComputerControlReference) AsIndirectControl() (roll, pitch, yaw, throttle float32) {
	return unpackFloats32(c.Union)
}

// AsRateControl reinterprets the union as a rate-mode reference.
func (c ComputerControlReference) AsRateControl() (roll, pitch, yaw, throttle float32) {
	return unpackFloats32(c.Union)
}

// AsAttitudeEulerControl reinterprets the union as an euler-mode
// reference.
func (c ComputerControlReference) AsAttitudeEulerControl() (roll, pitch, yawRate, throttle float32) {
	return unpackFloats32(c.Union)
}

// AsAttitudeControl reinterprets the union as a quaternion-mode
// reference (w, x, y, throttle; z is not carried, see NewAttitudeControl).
func (c ComputerControlReference) AsAttitudeControl() (w, x, y, throttle float32) {
	return unpackFloats32(c.Union)
}

// MotionCaptureMeasurementPayload reports an external motion-capture
// pose used to correct the internal estimator.
type MotionCaptureMeasurementPayload struct {
	FrameNumber uint32
	X, Y, Z     float32
	QW, QX, QY, QZ float32
}
