package cansim

import (
	"errors"

	"github.com/dirtcrusher/cansim/can"
)

// Transport is the simulated bus backend: readiness checks never block,
// ReadFrame assumes Readable reported true. Implemented by socketcan.Socket
// and slcan.Port in production and by Loopback and fakes in tests.
type Transport interface {
	Readable() (bool, error)
	Writable() (bool, error)
	WriteFrame(can.WireFrame) error
	ReadFrame() (can.WireFrame, error)
	Close() error
}

// Sentinel errors used for wrapping so callers can classify via errors.Is.
// All four mark a broken simulated-hardware link with no recovery path in
// this port; callers are expected to halt the owning context.
var (
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrPoll                = errors.New("poll failed")
	ErrTransmit            = errors.New("transmit failed")
	ErrReceive             = errors.New("receive failed")
)
