package rover

import (
	"errors"

	log "github.com/sirupsen/logrus"
)

// ErrNotConnected is returned when writes are attempted without an active
// vehicle session. The control loop never runs without a session, so hitting
// this from the loop indicates a broken caller contract.
var ErrNotConnected = errors.New("not connected to a vehicle")

// Transport is one established wireless link to the vehicle. Discovery,
// connection handling and characteristic lookup happen behind this interface;
// the control loop only writes commands and closes the link.
type Transport interface {
	// WriteMotorPacket sends one 8-byte motor command. Transient failures are
	// acceptable: the packet expires on its own and a fresh one follows on
	// the next tick.
	WriteMotorPacket(packet MotorPacket) error

	// WriteColor sets the vehicle lamp to the given RGB color. Not time-gated.
	WriteColor(r, g, b byte) error

	Close() error
}

// DummyTransport logs all writes instead of sending them, for running
// without a vehicle nearby.
type DummyTransport struct{}

func (DummyTransport) WriteMotorPacket(packet MotorPacket) error {
	log.Println("Dummy transport:", packet)
	return nil
}

func (DummyTransport) WriteColor(r, g, b byte) error {
	log.Printf("Dummy transport: color #%02x%02x%02x", r, g, b)
	return nil
}

func (DummyTransport) Close() error {
	log.Println("Dummy transport: closed")
	return nil
}
