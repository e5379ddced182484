package rover

import "math"

// DriveMode selects how the ModeMixer interprets stick and button input.
type DriveMode int

const (
	// ModeClassicButtons drives fixed forward/reverse speeds from buttons and
	// mixes in steering from the stick.
	ModeClassicButtons DriveMode = iota
	// ModeAnalogDrive maps the throttle stick proportionally.
	ModeAnalogDrive
)

func (m DriveMode) String() string {
	switch m {
	case ModeClassicButtons:
		return "classic"
	case ModeAnalogDrive:
		return "analog"
	default:
		return "unknown"
	}
}

// MixerConfig tunes both mixer strategies. A session keeps one instance, but
// values may be edited between ticks: every Compute call reads the current
// values, so slider changes take effect on the next tick.
type MixerConfig struct {
	MaxSpeedScale       float64 `yaml:"maxSpeedScale"`       // 0..1
	SteeringSensitivity float64 `yaml:"steeringSensitivity"` // 0.5..2.5

	// ModeClassicButtons constants
	ForwardSpeed float64 `yaml:"forwardSpeed"`
	ReverseSpeed float64 `yaml:"reverseSpeed"`
	BoostDelta   float64 `yaml:"boostDelta"`
	BrakeLimit   float64 `yaml:"brakeLimit"`
	SteerBoost   float64 `yaml:"steerBoost"` // extra steering while not moving
}

var DefaultMixerConfig = MixerConfig{
	MaxSpeedScale:       1,
	SteeringSensitivity: 1,
	ForwardSpeed:        50,
	ReverseSpeed:        40,
	BoostDelta:          20,
	BrakeLimit:          20,
	SteerBoost:          10,
}

// sanitized clamps all fields to their documented domains. Out-of-range
// configuration is never an error, it is pulled back into range.
func (c MixerConfig) sanitized() MixerConfig {
	c.MaxSpeedScale = clamp(c.MaxSpeedScale, 0, 1)
	c.SteeringSensitivity = clamp(c.SteeringSensitivity, 0.5, 2.5)
	c.ForwardSpeed = clamp(c.ForwardSpeed, 0, MaxWheelSpeed)
	c.ReverseSpeed = clamp(c.ReverseSpeed, 0, MaxWheelSpeed)
	c.BoostDelta = clamp(c.BoostDelta, 0, MaxWheelSpeed)
	c.BrakeLimit = clamp(c.BrakeLimit, 0, MaxWheelSpeed)
	c.SteerBoost = clamp(c.SteerBoost, 0, MaxWheelSpeed)
	return c
}

// Mixer turns one input sample into one motor command. Compute must be called
// from a single sequential context (the control loop): implementations may
// carry rolling state between ticks. Reset drops all such state, it is called
// whenever a session starts or ends.
type Mixer interface {
	Compute(stick StickSample, buttons ButtonState, config MixerConfig) MotorPacket
	Reset()
}

// responseCurve is the deadzone + nonlinear response mapping shared by both
// mixer strategies. val and deadzone are normalized to -1..1; values inside
// the deadzone map to zero, the rest of the range is renormalized, bent by
// the exponent and scaled to at most max output units, preserving sign.
func responseCurve(val, deadzone, max, exponent float64) float64 {
	mag := math.Abs(val)
	if mag < deadzone {
		return 0
	}
	x := (mag - deadzone) / (1 - deadzone)
	if x > 1 {
		x = 1
	}
	return math.Copysign(math.Pow(x, exponent)*max, val)
}
