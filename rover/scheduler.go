package rover

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
)

// DefaultTickInterval is the period of the control loop: one input sample,
// one mixer computation and one motor packet every 50ms.
const DefaultTickInterval = 50 * time.Millisecond

// InputSource supplies the current stick and button state. Sampled exactly
// once per tick by the control loop.
type InputSource interface {
	Sample() (StickSample, ButtonState)
}

// ControlLoop periodically samples an input source, runs the mixer and
// forwards the packet to the transport. Ticks are strictly sequential: the
// mixer's rolling state depends on ordering, so there is never more than one
// compute+send in flight. If a send overruns the period, the next tick runs
// late instead of overlapping or queueing up.
type ControlLoop struct {
	// Interval and Clock may be adjusted before Start. The clock is swappable
	// so tests can drive the loop with a synthetic tick sequence.
	Interval time.Duration
	Clock    clock.Clock

	mixer     Mixer
	input     InputSource
	transport Transport
	config    func() MixerConfig

	lock    sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewControlLoop prepares an idle loop. The config callback is evaluated every
// tick, so live tuning edits apply to the next packet.
func NewControlLoop(mixer Mixer, input InputSource, transport Transport, config func() MixerConfig) *ControlLoop {
	return &ControlLoop{
		Interval:  DefaultTickInterval,
		Clock:     clock.New(),
		mixer:     mixer,
		input:     input,
		transport: transport,
		config:    config,
	}
}

// Start transitions the loop from idle to running. Starting an already
// running loop is an error, so a session can never spawn a second loop.
func (l *ControlLoop) Start() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.running {
		return errors.New("control loop is already running")
	}
	if l.transport == nil {
		return ErrNotConnected
	}
	l.running = true
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	ticker := l.Clock.Ticker(l.Interval)
	go l.run(ticker, l.stop, l.done)
	return nil
}

// Stop halts the loop and resets the mixer state, so a subsequent session
// starts clean. An in-flight send is not aborted: the stop request is
// observed at the loop's next wait point. Stopping an idle loop is a no-op.
func (l *ControlLoop) Stop() {
	l.lock.Lock()
	defer l.lock.Unlock()
	if !l.running {
		return
	}
	close(l.stop)
	<-l.done
	l.running = false
	l.mixer.Reset()
}

func (l *ControlLoop) Running() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.running
}

func (l *ControlLoop) run(ticker *clock.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

func (l *ControlLoop) tick() {
	stick, buttons := l.input.Sample()
	packet := l.mixer.Compute(stick, buttons, l.config())
	if err := l.transport.WriteMotorPacket(packet); err != nil {
		// One lost frame is inconsequential: the packet validity window
		// covers it and the next tick sends a fresh command anyway.
		log.Warnf("Dropped motor packet: %v", err)
	}
}
