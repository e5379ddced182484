package rover

import (
	"fmt"
	"math"
)

const (
	// MaxWheelSpeed is the largest PWM magnitude the vehicle accepts per wheel.
	MaxWheelSpeed = 100

	// PacketDurationTicks is the validity window of one motor command in units
	// of 100ms. The vehicle fail-safe-stops if no fresh packet arrives within
	// this window.
	PacketDurationTicks = 2
)

// MotorPacket is one motor command as it goes over the air:
// [speedA, dirA, speedB, dirB, duration, 0, 0, 0]
// Speeds are 0..100, direction bytes are 1 for forward and 0 for backward.
type MotorPacket [8]byte

// StopPacket halts both motors immediately instead of waiting for the
// packet validity window to expire.
var StopPacket = MotorPacket{0, 0, 0, 0, PacketDurationTicks, 0, 0, 0}

func newMotorPacket(speedA, dirA, speedB, dirB byte) MotorPacket {
	return MotorPacket{speedA, dirA, speedB, dirB, PacketDurationTicks, 0, 0, 0}
}

func (p MotorPacket) SpeedA() byte { return p[0] }
func (p MotorPacket) DirA() byte   { return p[1] }
func (p MotorPacket) SpeedB() byte { return p[2] }
func (p MotorPacket) DirB() byte   { return p[3] }

func (p MotorPacket) String() string {
	return fmt.Sprintf("motors A: %v%% (%v) B: %v%% (%v), valid %vms",
		p[0], dirToText(p[1]), p[2], dirToText(p[3]), uint(p[4])*100)
}

func dirToText(dir byte) string {
	if dir != 0 {
		return "forward"
	} else {
		return "backward"
	}
}

// wheelByte clamps a signed wheel speed to -100..100 and returns its magnitude.
func wheelByte(val float64) byte {
	if val > MaxWheelSpeed {
		val = MaxWheelSpeed
	}
	if val < -MaxWheelSpeed {
		val = -MaxWheelSpeed
	}
	return byte(math.Round(math.Abs(val)))
}

// dirByte maps a signed wheel speed to its direction bit: 1 for forward
// (non-negative), 0 for backward.
func dirByte(val float64) byte {
	if val >= 0 {
		return 1
	}
	return 0
}
