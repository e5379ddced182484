package rover

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

type testInput struct {
	lock    sync.Mutex
	stick   StickSample
	buttons ButtonState
}

func (i *testInput) Sample() (StickSample, ButtonState) {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.stick, i.buttons
}

func (i *testInput) set(stick StickSample, buttons ButtonState) {
	i.lock.Lock()
	defer i.lock.Unlock()
	i.stick = stick
	i.buttons = buttons
}

type testTransport struct {
	packets chan MotorPacket
	colors  chan [3]byte

	lock    sync.Mutex
	failing error
	closed  bool
}

func newTestTransport() *testTransport {
	return &testTransport{
		packets: make(chan MotorPacket, 64),
		colors:  make(chan [3]byte, 64),
	}
}

func (t *testTransport) setFailing(err error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.failing = err
}

func (t *testTransport) WriteMotorPacket(packet MotorPacket) error {
	t.lock.Lock()
	failing := t.failing
	t.lock.Unlock()
	if failing != nil {
		return failing
	}
	t.packets <- packet
	return nil
}

func (t *testTransport) WriteColor(r, g, b byte) error {
	t.colors <- [3]byte{r, g, b}
	return nil
}

func (t *testTransport) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.closed = true
	return nil
}

func (t *testTransport) isClosed() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.closed
}

func receivePacket(t *testing.T, packets chan MotorPacket) MotorPacket {
	t.Helper()
	select {
	case packet := <-packets:
		return packet
	case <-time.After(3 * time.Second):
		t.Fatal("no motor packet arrived in time")
		return MotorPacket{}
	}
}

func defaultConfig() MixerConfig {
	return DefaultMixerConfig
}

func TestControlLoopTicks(t *testing.T) {
	a := assert.New(t)
	mock := clock.NewMock()
	transport := newTestTransport()
	loop := NewControlLoop(NewSmoothMixer(), new(testInput), transport, defaultConfig)
	loop.Clock = mock

	a.NoError(loop.Start())
	a.True(loop.Running())
	for i := 0; i < 5; i++ {
		mock.Add(DefaultTickInterval)
		a.Equal(restingPacket, receivePacket(t, transport.packets), "tick %v", i)
	}

	loop.Stop()
	a.False(loop.Running())
	mock.Add(10 * DefaultTickInterval)
	select {
	case packet := <-transport.packets:
		a.Fail("stopped loop still sent a packet", "%v", packet)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestControlLoopLiveConfig(t *testing.T) {
	a := assert.New(t)
	mock := clock.NewMock()
	transport := newTestTransport()
	input := new(testInput)
	input.set(StickSample{}, ButtonState{Forward: true})

	var lock sync.Mutex
	config := DefaultMixerConfig
	loop := NewControlLoop(NewModeMixer(ModeClassicButtons), input, transport, func() MixerConfig {
		lock.Lock()
		defer lock.Unlock()
		return config
	})
	loop.Clock = mock
	a.NoError(loop.Start())
	defer loop.Stop()

	mock.Add(DefaultTickInterval)
	a.Equal(byte(50), receivePacket(t, transport.packets).SpeedA())

	// Config edits apply on the very next tick
	lock.Lock()
	config.ForwardSpeed = 64
	lock.Unlock()
	mock.Add(DefaultTickInterval)
	a.Equal(byte(64), receivePacket(t, transport.packets).SpeedA())
}

func TestControlLoopSingleInstance(t *testing.T) {
	a := assert.New(t)
	loop := NewControlLoop(NewSmoothMixer(), new(testInput), newTestTransport(), defaultConfig)
	loop.Clock = clock.NewMock()

	a.NoError(loop.Start())
	a.Error(loop.Start(), "a running loop must refuse to start a second time")
	loop.Stop()
	loop.Stop() // Stopping an idle loop is harmless
	a.NoError(loop.Start())
	loop.Stop()
}

func TestControlLoopRequiresTransport(t *testing.T) {
	a := assert.New(t)
	loop := NewControlLoop(NewSmoothMixer(), new(testInput), nil, defaultConfig)
	a.Equal(ErrNotConnected, loop.Start())
	a.False(loop.Running())
}

func TestControlLoopStopResetsMixer(t *testing.T) {
	a := assert.New(t)
	mock := clock.NewMock()
	transport := newTestTransport()
	input := new(testInput)
	input.set(StickSample{Throttle: 1}, ButtonState{})
	mixer := NewSmoothMixer()
	loop := NewControlLoop(mixer, input, transport, defaultConfig)
	loop.Clock = mock

	a.NoError(loop.Start())
	for i := 0; i < 10; i++ {
		mock.Add(DefaultTickInterval)
		receivePacket(t, transport.packets)
	}
	loop.Stop()
	a.Equal(SmoothMixer{}, *mixer, "mixer state must be discarded on stop")

	// A restarted loop behaves like a fresh session
	input.set(StickSample{}, ButtonState{})
	a.NoError(loop.Start())
	mock.Add(DefaultTickInterval)
	a.Equal(restingPacket, receivePacket(t, transport.packets))
	loop.Stop()
}

func TestControlLoopSwallowsTransportErrors(t *testing.T) {
	a := assert.New(t)
	mock := clock.NewMock()
	transport := newTestTransport()
	transport.setFailing(errors.New("radio interference"))
	loop := NewControlLoop(NewSmoothMixer(), new(testInput), transport, defaultConfig)
	loop.Clock = mock

	a.NoError(loop.Start())
	for i := 0; i < 3; i++ {
		mock.Add(DefaultTickInterval)
	}
	a.True(loop.Running(), "transient send failures must not halt the loop")

	// Once the link recovers, packets flow again without intervention
	transport.setFailing(nil)
	mock.Add(DefaultTickInterval)
	a.Equal(restingPacket, receivePacket(t, transport.packets))
	loop.Stop()
}

// blockingTransport releases one motor write per token sent to proceed and
// reports every write attempt on started.
type blockingTransport struct {
	*testTransport
	started chan struct{}
	proceed chan struct{}
}

func (t *blockingTransport) WriteMotorPacket(packet MotorPacket) error {
	t.started <- struct{}{}
	<-t.proceed
	return t.testTransport.WriteMotorPacket(packet)
}

func TestControlLoopSequentialSends(t *testing.T) {
	a := assert.New(t)
	mock := clock.NewMock()
	transport := &blockingTransport{
		testTransport: newTestTransport(),
		started:       make(chan struct{}, 16),
		proceed:       make(chan struct{}, 16),
	}
	loop := NewControlLoop(NewSmoothMixer(), new(testInput), transport, defaultConfig)
	loop.Clock = mock
	a.NoError(loop.Start())

	// First tick starts a send that blocks
	mock.Add(DefaultTickInterval)
	select {
	case <-transport.started:
	case <-time.After(3 * time.Second):
		t.Fatal("first send never started")
	}

	// Two more periods elapse while the send is outstanding: no second send
	// may start, the ticks run late instead of overlapping.
	mock.Add(DefaultTickInterval)
	mock.Add(DefaultTickInterval)
	select {
	case <-transport.started:
		t.Fatal("second send overlapped an outstanding one")
	case <-time.After(100 * time.Millisecond):
	}

	// Releasing the first send lets exactly the pending late tick through
	transport.proceed <- struct{}{}
	select {
	case <-transport.started:
	case <-time.After(3 * time.Second):
		t.Fatal("late tick never ran after the send completed")
	}
	transport.proceed <- struct{}{}
	receivePacket(t, transport.packets)
	receivePacket(t, transport.packets)

	go func() {
		for range transport.started {
			transport.proceed <- struct{}{}
		}
	}()
	loop.Stop()
	a.False(loop.Running())
}
