package main

import (
	"flag"
	"fmt"
	"sync"

	"github.com/antongulenko/rover/rover"
	log "github.com/sirupsen/logrus"
	"github.com/splace/joysticks"
)

// StickInput feeds a physical HID joystick into the control loop. Axis events
// update the latest sample asynchronously; the loop picks it up through
// Sample once per tick. The stick is radially dead-zoned and quantized here,
// the mixers receive clean -1..1 values.
type StickInput struct {
	Axis           int
	DeadzoneRadius float64
	QuantizeBits   uint
	InvertThrottle bool

	ForwardButton int
	ReverseButton int
	BoostButton   int
	BrakeButton   int

	lock    sync.Mutex
	stick   rover.StickSample
	buttons rover.ButtonState
}

func (s *StickInput) RegisterFlags() {
	flag.IntVar(&s.Axis, "axis", s.Axis, "Index of the joystick axis driving the vehicle")
	flag.Float64Var(&s.DeadzoneRadius, "deadzone", s.DeadzoneRadius, "Radius of the circular stick deadzone")
	flag.UintVar(&s.QuantizeBits, "quantize", s.QuantizeBits, "Bit depth to quantize stick values to (0 disables)")
	flag.BoolVar(&s.InvertThrottle, "invertThrottle", s.InvertThrottle, "Invert the throttle direction of the stick")
	flag.IntVar(&s.ForwardButton, "forwardButton", s.ForwardButton, "Joystick button index for driving forward (classic mode)")
	flag.IntVar(&s.ReverseButton, "reverseButton", s.ReverseButton, "Joystick button index for driving backward (classic mode)")
	flag.IntVar(&s.BoostButton, "boostButton", s.BoostButton, "Joystick button index for the speed boost")
	flag.IntVar(&s.BrakeButton, "brakeButton", s.BrakeButton, "Joystick button index for the brake")
}

// Sample returns the latest stick and button state, once per control tick.
func (s *StickInput) Sample() (rover.StickSample, rover.ButtonState) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.stick, s.buttons
}

// ResetButtons overrides the latched button state, used when a mode switch
// invalidates held buttons.
func (s *StickInput) ResetButtons(buttons rover.ButtonState) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.buttons = buttons
}

// Attach subscribes to all stick and button events of the device. The caller
// must run js.ParcelOutEvents afterwards.
func (s *StickInput) Attach(js *joysticks.HID) error {
	if !js.HatExists(uint8(s.Axis)) {
		return fmt.Errorf("Drive stick (axis %v) does not exist on this device", s.Axis)
	}
	moved := js.OnMove(uint8(s.Axis))
	go func() {
		for event := range moved {
			coords := event.(joysticks.CoordsEvent)
			s.handleMove(float64(coords.X), float64(coords.Y))
		}
	}()

	if err := s.attachButton(js, s.ForwardButton, s.pressForward, s.release); err != nil {
		return err
	}
	if err := s.attachButton(js, s.ReverseButton, s.pressReverse, s.release); err != nil {
		return err
	}
	if err := s.attachButton(js, s.BoostButton,
		func() { s.setBoost(true) }, func() { s.setBoost(false) }); err != nil {
		return err
	}
	return s.attachButton(js, s.BrakeButton,
		func() { s.setBrake(true) }, func() { s.setBrake(false) })
}

func (s *StickInput) attachButton(js *joysticks.HID, button int, press, release func()) error {
	if !js.ButtonExists(uint8(button)) {
		return fmt.Errorf("Button %v does not exist on this device", button)
	}
	pressed := js.OnClose(uint8(button))
	released := js.OnOpen(uint8(button))
	go func() {
		for {
			select {
			case <-pressed:
				press()
			case <-released:
				release()
			}
		}
	}()
	return nil
}

func (s *StickInput) handleMove(x, y float64) {
	if s.InvertThrottle {
		y = -y
	}
	turn, throttle := rover.RadialDeadzone(x, y, s.DeadzoneRadius)
	if s.QuantizeBits > 0 {
		turn = rover.Quantize(turn, s.QuantizeBits)
		throttle = rover.Quantize(throttle, s.QuantizeBits)
	}
	log.Debugf("Stick moved: throttle %.3f turn %.3f", throttle, turn)
	s.lock.Lock()
	s.stick = rover.StickSample{Throttle: throttle, Turn: turn}
	s.lock.Unlock()
}

func (s *StickInput) pressForward() {
	s.lock.Lock()
	s.buttons.PressForward()
	s.lock.Unlock()
}

func (s *StickInput) pressReverse() {
	s.lock.Lock()
	s.buttons.PressReverse()
	s.lock.Unlock()
}

func (s *StickInput) release() {
	s.lock.Lock()
	s.buttons.Forward = false
	s.buttons.Reverse = false
	s.lock.Unlock()
}

func (s *StickInput) setBoost(pressed bool) {
	s.lock.Lock()
	s.buttons.Boost = pressed
	s.lock.Unlock()
}

func (s *StickInput) setBrake(pressed bool) {
	s.lock.Lock()
	s.buttons.Brake = pressed
	s.lock.Unlock()
}
