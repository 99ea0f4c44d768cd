package cansim

import (
	"errors"
	"sync"

	"github.com/dirtcrusher/cansim/can"
)

// ErrClosed is returned by Loopback operations after Close.
var ErrClosed = errors.New("cansim: loopback closed")

// Loopback is an in-memory Transport for tests and simulations. The test
// side injects frames with Inject and observes transmissions with Sent;
// the driver side sees the usual transport contract.
type Loopback struct {
	mu     sync.Mutex
	in     []can.WireFrame // injected, waiting to be read by the driver
	out    []can.WireFrame // written by the driver
	closed bool
}

// NewLoopback creates an open loopback transport.
func NewLoopback() *Loopback { return &Loopback{} }

// Inject queues a wire frame for the driver to receive.
func (l *Loopback) Inject(w can.WireFrame) {
	l.mu.Lock()
	l.in = append(l.in, w)
	l.mu.Unlock()
}

// Sent returns a copy of every frame the driver has transmitted so far.
func (l *Loopback) Sent() []can.WireFrame {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]can.WireFrame, len(l.out))
	copy(out, l.out)
	return out
}

func (l *Loopback) Readable() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false, ErrClosed
	}
	return len(l.in) > 0, nil
}

func (l *Loopback) Writable() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false, ErrClosed
	}
	return true, nil
}

func (l *Loopback) ReadFrame() (can.WireFrame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return can.WireFrame{}, ErrClosed
	}
	if len(l.in) == 0 {
		return can.WireFrame{}, errors.New("cansim: loopback read with nothing injected")
	}
	w := l.in[0]
	l.in = l.in[1:]
	return w, nil
}

func (l *Loopback) WriteFrame(w can.WireFrame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.out = append(l.out, w)
	return nil
}

// Close marks the transport closed; further operations fail with ErrClosed.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.closed = true
	return nil
}
