package rover

import (
	"fmt"
	"math"
	"time"
)

var DefaultColorSequence = ColorSequence{
	BaseColor: [3]byte{0, 90, 200},
	SleepTime: 50 * time.Millisecond,
	PulseTime: 1300 * time.Millisecond,
}

// ColorSequence pulses the vehicle lamp by sweeping the brightness of a base
// color through a cosine curve. Used as a connect-time greeting and as a
// manually triggered effect.
type ColorSequence struct {
	BaseColor [3]byte
	SleepTime time.Duration // Time resolution for color updates
	PulseTime time.Duration // Time for one full dark-bright-dark pulse
}

// Run computes the sequence and hands each step to the callback together with
// the time to sleep afterwards. The callback decides where the colors go and
// may abort the sequence by returning an error.
func (s *ColorSequence) Run(numRounds int, callback func(sleepTime time.Duration, r, g, b byte) error) error {
	stepsPerRound := float64(s.PulseTime / s.SleepTime)
	numSteps := stepsPerRound * float64(numRounds)
	for i := float64(0); i < numSteps; i++ {
		v := math.Cos(i / stepsPerRound * 2 * math.Pi)
		brightness := (1 - v) / 2 // 0 at the pulse edges, 1 in the middle
		r := scaleColor(s.BaseColor[0], brightness)
		g := scaleColor(s.BaseColor[1], brightness)
		b := scaleColor(s.BaseColor[2], brightness)
		if err := callback(s.SleepTime, r, g, b); err != nil {
			return fmt.Errorf("Error during color sequence, step %v of %v: %v", i, numSteps, err)
		}
	}
	return nil
}

func scaleColor(base byte, brightness float64) byte {
	return byte(math.Round(float64(base) * brightness))
}
