package rover

import "math"

// StickSample is one fresh reading of the drive stick, both axes in -1..1.
// Samples arrive already dead-zoned and quantized by the input side (see
// RadialDeadzone and Quantize); the mixers only clamp them defensively.
type StickSample struct {
	Throttle float64
	Turn     float64
}

// ButtonState holds the discrete drive buttons sampled once per tick.
// Forward and Reverse are mutually exclusive: use PressForward/PressReverse
// to latch them.
type ButtonState struct {
	Forward bool
	Reverse bool
	Boost   bool
	Brake   bool
}

func (b *ButtonState) PressForward() {
	b.Forward = true
	b.Reverse = false
}

func (b *ButtonState) PressReverse() {
	b.Reverse = true
	b.Forward = false
}

// RadialDeadzone clamps the 2D stick position to the unit circle and applies
// a circular deadzone of the given radius around the center. Positions inside
// the deadzone become (0, 0), positions outside are rescaled linearly so the
// full -1..1 range stays reachable past the deadzone boundary.
func RadialDeadzone(x, y, radius float64) (float64, float64) {
	dist := math.Sqrt(x*x + y*y)
	if dist > 1 {
		x /= dist
		y /= dist
		dist = 1
	}
	if dist <= radius || radius >= 1 {
		return 0, 0
	}
	scale := (dist - radius) / ((1 - radius) * dist)
	return x * scale, y * scale
}

// Quantize rounds val to the nearest of 2^bits integer buckets per unit,
// symmetric around zero. This reproduces the limited resolution of the
// emulated hardware sticks.
func Quantize(val float64, bits uint) float64 {
	levels := float64(uint64(1) << bits)
	return math.Round(val*levels) / levels
}

func clamp1(val float64) float64 {
	if val > 1 {
		return 1
	}
	if val < -1 {
		return -1
	}
	return val
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
