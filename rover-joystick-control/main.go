package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/rover/rover"
	log "github.com/sirupsen/logrus"
	"github.com/splace/joysticks"
	yaml "gopkg.in/yaml.v2"
)

func main() {
	controller := roverController{
		joystickIndex:         1,
		joystickRetryDuration: 2 * time.Second,
		toggleModeButton:      1,
		colorSequenceButton:   2,
		controllerName:        "smooth",
		startupSequenceRounds: 1,
		colorSequence:         rover.DefaultColorSequence,
		config:                rover.DefaultMixerConfig,
		input: StickInput{
			Axis:           1,
			DeadzoneRadius: 0.15,
			QuantizeBits:   6,
			ForwardButton:  4,
			ReverseButton:  5,
			BoostButton:    6,
			BrakeButton:    7,
		},
	}

	controller.registerFlags()
	golib.RegisterFlags(golib.FlagsAll)
	flag.Parse()
	golib.ConfigureLogging()
	golib.Checkerr(controller.loadConfigFile())
	golib.Checkerr(controller.setupMixer())

	// "Clean" shutdown with Ctrl-C signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(controller.stop)
	}
	defer cleanup()
	go func() {
		fmt.Println("Received signal", <-c)
		cleanup()
		os.Exit(0)
	}()

	controller.run() // Does not return
}

type roverController struct {
	joystickIndex         int
	joystickRetryDuration time.Duration
	toggleModeButton      int
	colorSequenceButton   int
	controllerName        string
	configFile            string

	startupSequenceRounds int
	colorSequence         rover.ColorSequence
	sequenceRunning       bool

	input StickInput

	configLock sync.Mutex
	config     rover.MixerConfig

	mixer     rover.Mixer
	modeMixer *rover.ModeMixer // non-nil when the mode-switchable mixer is active
	session   *rover.Session
}

func (c *roverController) registerFlags() {
	c.input.RegisterFlags()
	flag.IntVar(&c.joystickIndex, "js", c.joystickIndex, "Joystick device index")
	flag.DurationVar(&c.joystickRetryDuration, "js-retry", c.joystickRetryDuration, "Time to retry joystick initialization")
	flag.StringVar(&c.controllerName, "controller", c.controllerName, "Controller to emulate: smooth, classic or analog")
	flag.StringVar(&c.configFile, "config", c.configFile, "YAML file overriding the mixer tuning values")
	flag.IntVar(&c.toggleModeButton, "toggleModeButton", c.toggleModeButton, "Joystick button index that toggles between classic and analog mode")
	flag.IntVar(&c.colorSequenceButton, "color-sequence-button", c.colorSequenceButton, "Joystick button index to manually trigger the color sequence")
	flag.IntVar(&c.startupSequenceRounds, "startup-sequence", c.startupSequenceRounds, "Number of startup color sequence rounds (can be disabled)")
	flag.Float64Var(&c.config.MaxSpeedScale, "maxSpeed", c.config.MaxSpeedScale, "Scale for the overall vehicle speed (0..1)")
	flag.Float64Var(&c.config.SteeringSensitivity, "steering", c.config.SteeringSensitivity, "Steering sensitivity (0.5..2.5)")
}

func (c *roverController) loadConfigFile() error {
	if c.configFile == "" {
		return nil
	}
	data, err := ioutil.ReadFile(c.configFile)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, &c.config); err != nil {
		return fmt.Errorf("Failed to parse mixer config %v: %v", c.configFile, err)
	}
	inUse, err := yaml.Marshal(&c.config)
	if err == nil {
		log.Debugf("Mixer config in use:\n%s", inUse)
	}
	return err
}

func (c *roverController) setupMixer() error {
	switch c.controllerName {
	case "smooth":
		c.mixer = rover.NewSmoothMixer()
	case "classic":
		c.modeMixer = rover.NewModeMixer(rover.ModeClassicButtons)
		c.mixer = c.modeMixer
	case "analog":
		c.modeMixer = rover.NewModeMixer(rover.ModeAnalogDrive)
		c.mixer = c.modeMixer
	default:
		return fmt.Errorf("Unknown controller %q (expected smooth, classic or analog)", c.controllerName)
	}
	log.Println("Emulating controller:", c.controllerName)
	return nil
}

func (c *roverController) mixerConfig() rover.MixerConfig {
	c.configLock.Lock()
	defer c.configLock.Unlock()
	return c.config
}

func (c *roverController) run() {
	// The transport is pluggable behind the rover.Transport interface; this
	// binary ships with the logging dummy only.
	transport := rover.DummyTransport{}
	c.session = rover.NewSession(transport, c.mixer, &c.input, c.mixerConfig)
	golib.Checkerr(c.session.Start())
	log.Println("Vehicle session started")

	if c.startupSequenceRounds > 0 {
		if err := c.runColorSequence(c.startupSequenceRounds); err != nil {
			log.Errorf("Startup color sequence failed: %v", err)
		}
	}

	c.waitAndInitJoysticks() // Does not return
}

func (c *roverController) waitAndInitJoysticks() {
	var js *joysticks.HID
	var err error
	for {
		if js, err = c.setupJoysticks(); err != nil {
			log.Errorf("Failed to setup joystick: %v. Retrying in %v...", err, c.joystickRetryDuration)
			time.Sleep(c.joystickRetryDuration)
		} else {
			log.Printf("Opened joystick device index %v (%v buttons, %v axes, %v events)",
				c.joystickIndex, len(js.Buttons), len(js.HatAxes), len(js.Events))
			break
		}
	}
	js.ParcelOutEvents() // Does not return
}

func (c *roverController) setupJoysticks() (*joysticks.HID, error) {
	js := joysticks.Connect(c.joystickIndex)
	if js == nil {
		return nil, fmt.Errorf("Failed to open joystick with index %v", c.joystickIndex)
	}
	if err := c.input.Attach(js); err != nil {
		return nil, err
	}

	toggleButton := uint8(c.toggleModeButton)
	if js.ButtonExists(toggleButton) {
		toggleMode := js.OnLong(toggleButton)
		go func() {
			for range toggleMode {
				c.toggleDriveMode()
			}
		}()
	} else {
		return nil, fmt.Errorf("Button for toggling the drive mode (index %v) does not exist on joystick", toggleButton)
	}
	sequenceButton := uint8(c.colorSequenceButton)
	if js.ButtonExists(sequenceButton) {
		runSequence := js.OnButton(sequenceButton)
		go func() {
			for range runSequence {
				if err := c.runColorSequence(1); err != nil {
					log.Errorf("Triggered color sequence failed: %v", err)
				}
			}
		}()
	} else {
		return nil, fmt.Errorf("Button for triggering the color sequence (index %v) does not exist on joystick", sequenceButton)
	}
	return js, nil
}

func (c *roverController) toggleDriveMode() {
	if c.modeMixer == nil {
		log.Println("The smooth controller has no drive modes to toggle")
		return
	}
	newMode := rover.ModeClassicButtons
	if c.modeMixer.Mode() == rover.ModeClassicButtons {
		newMode = rover.ModeAnalogDrive
	}
	log.Println("Switching drive mode to", newMode)
	// Buttons latched in the old mode do not survive the switch
	c.input.ResetButtons(c.modeMixer.SetMode(newMode))
}

func (c *roverController) runColorSequence(numRounds int) error {
	if c.sequenceRunning {
		return nil
	}
	c.sequenceRunning = true
	defer func() {
		c.sequenceRunning = false
	}()
	return c.colorSequence.Run(numRounds, func(sleepTime time.Duration, r, g, b byte) (err error) {
		err = c.session.SetColor(r, g, b)
		if err == nil {
			time.Sleep(sleepTime)
		}
		return
	})
}

func (c *roverController) stop() {
	if c.session != nil {
		golib.Printerr(c.session.Close())
	}
}
