package rover

import "math"

// Constants of the emulated ADC joystick controller. The original hardware
// reads both stick axes through a 12-bit converter centered at 1640 counts;
// all tuning below is expressed in that count domain or in its -80..80 speed
// unit output domain.
const (
	adcCenter        = 1640
	adcHalfRange     = 1640.0
	adcDeadzone      = 120.0 // counts around the center treated as zero
	adcCurveExponent = 1.4

	maxThrottleUnits = 80
	minKickOffset    = 6  // static friction offset added to any base speed
	minMovingSpeed   = 42 // slowest reliable straight-line wheel speed

	throttleSmoothing = 0.85 // weight of the previous tick's output
	turnSmoothing     = 0.72
)

// SmoothMixer emulates the legacy ADC-driven stick controller: synthetic
// 12-bit counts, a 3-sample moving average, a nonlinear response curve and
// exponential smoothing against the previous tick. One instance belongs to
// exactly one session and must only be used from the control loop.
type SmoothMixer struct {
	// 3-slot history of center-relative counts per axis. Both axes share one
	// rotating index: a zeroed buffer is identical to three ticks of a
	// resting stick.
	throttleHistory [3]float64
	turnHistory     [3]float64
	historyIndex    int

	smoothedThrottle float64
	smoothedTurn     float64
}

func NewSmoothMixer() *SmoothMixer {
	return new(SmoothMixer)
}

// Reset zeroes the history buffers and the previous outputs. The next packets
// are computed exactly like after a fresh start.
func (m *SmoothMixer) Reset() {
	*m = SmoothMixer{}
}

func (m *SmoothMixer) Compute(stick StickSample, _ ButtonState, config MixerConfig) MotorPacket {
	config = config.sanitized()
	throttle := clamp1(stick.Throttle) * config.MaxSpeedScale
	turn := clamp1(stick.Turn)

	// The emulated controller mounts its stick upside down: pushing forward
	// produces negative raw counts. Everything downstream keeps that sign.
	throttle = -throttle

	// Convert to center-relative ADC counts and average the last 3 ticks.
	// Both axes advance the same index, so the output is a function of
	// exactly the last three samples.
	m.throttleHistory[m.historyIndex] = math.Round(throttle * adcHalfRange)
	m.turnHistory[m.historyIndex] = math.Round(turn * adcHalfRange)
	m.historyIndex = (m.historyIndex + 1) % 3
	throttleCounts := average3(m.throttleHistory)
	turnCounts := average3(m.turnHistory)

	rawThrottle := responseCurve(throttleCounts/adcHalfRange,
		adcDeadzone/adcHalfRange, maxThrottleUnits, adcCurveExponent)
	speedFactor := math.Abs(rawThrottle) / maxThrottleUnits

	// Steering authority depends on the current speed: little at rest,
	// progressively more as the vehicle moves, with an extra low-speed gain.
	maxTurnUnits := 15 + speedFactor*speedFactor*28
	if maxTurnUnits > 65 {
		maxTurnUnits = 65
	}
	rawTurn := responseCurve(turnCounts/adcHalfRange,
		adcDeadzone/adcHalfRange, maxTurnUnits, adcCurveExponent)
	rawTurn *= 1.15 + (1-speedFactor)*0.45
	rawTurn *= config.SteeringSensitivity

	// Exponential smoothing against the previous tick. A released throttle
	// bypasses the filter: decaying down would feel like coasting.
	if rawThrottle == 0 {
		m.smoothedThrottle = 0
	} else {
		m.smoothedThrottle = throttleSmoothing*m.smoothedThrottle + (1-throttleSmoothing)*rawThrottle
	}
	m.smoothedTurn = turnSmoothing*m.smoothedTurn + (1-turnSmoothing)*rawTurn

	maxTurn := 22 + speedFactor*38
	m.smoothedTurn = clamp(m.smoothedTurn, -maxTurn, maxTurn)

	// Differential combine. The direction bit covers both wheels and follows
	// the inverted throttle sign: negative means forward.
	base := math.Abs(m.smoothedThrottle) + minKickOffset
	var dir byte
	if m.smoothedThrottle < 0 {
		dir = 1
	}
	left := base + m.smoothedTurn
	right := base - m.smoothedTurn

	// Driving straight, make sure the vehicle actually moves. Skipped while
	// steering so the differential between the wheels stays intact.
	if m.smoothedTurn == 0 && m.smoothedThrottle != 0 {
		if math.Abs(left) < minMovingSpeed {
			left = math.Copysign(minMovingSpeed, left)
		}
		if math.Abs(right) < minMovingSpeed {
			right = math.Copysign(minMovingSpeed, right)
		}
	}
	return newMotorPacket(wheelByte(left), dir, wheelByte(right), dir)
}

func average3(history [3]float64) float64 {
	return (history[0] + history[1] + history[2]) / 3
}
