package rover

import (
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Session owns one connected vehicle: the transport, the mixer driving it and
// the control loop between them. Exactly one session is active at a time; the
// previous session must be closed before the next one is created, so mixer
// state never leaks across connections.
type Session struct {
	Loop *ControlLoop

	mixer     Mixer
	transport Transport
}

// NewSession wires a freshly reset mixer to a connected transport. The loop
// is idle until Start is called.
func NewSession(transport Transport, mixer Mixer, input InputSource, config func() MixerConfig) *Session {
	mixer.Reset()
	return &Session{
		Loop:      NewControlLoop(mixer, input, transport, config),
		mixer:     mixer,
		transport: transport,
	}
}

func (s *Session) Start() error {
	return s.Loop.Start()
}

// SetColor writes the vehicle lamp color, independent of the motor loop.
func (s *Session) SetColor(r, g, b byte) error {
	if s.transport == nil {
		return ErrNotConnected
	}
	return s.transport.WriteColor(r, g, b)
}

// Close stops the loop, leaves the vehicle in a stopped state instead of
// waiting for the packet timeout, and tears down the transport.
func (s *Session) Close() error {
	s.Loop.Stop()
	err := s.transport.WriteMotorPacket(StopPacket)
	if err != nil {
		log.Warnf("Failed to send final stop packet: %v", err)
	}
	return multierr.Append(err, s.transport.Close())
}
