package rover

import (
	"math"
	"sync"
)

// Steering response of the mode-switchable controller, applied to the raw
// turn stick in the normalized -1..1 domain.
const (
	steerDeadzone      = 0.07
	steerMaxUnits      = 20
	steerCurveExponent = 1.1

	analogMaxSpeed = 80
)

// ModeMixer emulates the button-based legacy controller. It supports two
// drive modes sharing one steering pipeline and carries no rolling state
// between ticks: every packet is a pure function of the current sample, the
// configuration and the selected mode. The mode may be switched from outside
// the control loop, so it is guarded separately.
type ModeMixer struct {
	lock sync.Mutex
	mode DriveMode
}

func NewModeMixer(mode DriveMode) *ModeMixer {
	return &ModeMixer{mode: mode}
}

func (m *ModeMixer) Mode() DriveMode {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.mode
}

// SetMode switches the drive mode and returns the button state the caller
// must continue with: latched buttons do not survive a mode change.
func (m *ModeMixer) SetMode(mode DriveMode) ButtonState {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.mode = mode
	return ButtonState{}
}

// Reset is a no-op, the mixer keeps no per-tick state.
func (m *ModeMixer) Reset() {}

func (m *ModeMixer) Compute(stick StickSample, buttons ButtonState, config MixerConfig) MotorPacket {
	config = config.sanitized()
	mode := m.Mode()

	var speed float64
	switch mode {
	case ModeAnalogDrive:
		speed = math.Round(clamp1(stick.Throttle) * config.MaxSpeedScale * analogMaxSpeed)
	default: // ModeClassicButtons
		if buttons.Forward {
			speed = config.ForwardSpeed
		} else if buttons.Reverse {
			speed = -config.ReverseSpeed
		}
	}

	mixer := responseCurve(clamp1(stick.Turn), steerDeadzone, steerMaxUnits, steerCurveExponent)
	mixer *= config.SteeringSensitivity

	if mode == ModeClassicButtons {
		// Pivot turns stay effective without forward motion.
		if speed == 0 && mixer != 0 {
			mixer += math.Copysign(config.SteerBoost, mixer)
		}
		if buttons.Boost && speed != 0 {
			speed += math.Copysign(config.BoostDelta, speed)
		}
		// Brake wins over boost and leaves steering untouched.
		if buttons.Brake && math.Abs(speed) > config.BrakeLimit {
			speed = math.Copysign(config.BrakeLimit, speed)
		}
	}

	speed *= config.MaxSpeedScale
	mixer *= config.MaxSpeedScale
	left := speed + mixer
	right := speed - mixer
	return newMotorPacket(wheelByte(left), dirByte(left), wheelByte(right), dirByte(right))
}
