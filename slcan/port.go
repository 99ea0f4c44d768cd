package slcan

import (
	"bytes"
	"errors"
	"io"
	"time"

	"github.com/tarm/serial"

	"github.com/dirtcrusher/cansim/can"
)

// Conn abstracts the underlying serial port for testability.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// ErrNoFrame is returned by ReadFrame when no complete frame is buffered;
// callers are expected to check Readable first.
var ErrNoFrame = errors.New("slcan: no frame buffered")

// Port adapts an SLCAN serial link to the driver's transport contract.
// Readiness is emulated by draining the port with a short read timeout and
// parsing complete lines into a pending frame queue.
type Port struct {
	c    Conn
	acc  []byte          // unparsed bytes, grows until a CR arrives
	pend []can.WireFrame // parsed frames not yet handed to the driver
}

// Open opens the serial device and puts the adapter on the bus. Bit timing
// is never configured here; the simulated link runs at whatever rate the
// peer was set up with.
func Open(device string, baud int, readTimeout time.Duration) (*Port, error) {
	c, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud, ReadTimeout: readTimeout})
	if err != nil {
		return nil, err
	}
	p := NewPort(c)
	// Close a possibly open channel, then open. Best effort ordering used
	// by most SLCAN adapters.
	if _, err := c.Write([]byte("C\r")); err != nil {
		_ = c.Close()
		return nil, err
	}
	if _, err := c.Write([]byte("O\r")); err != nil {
		_ = c.Close()
		return nil, err
	}
	return p, nil
}

// NewPort wraps an already open connection. Used by tests and by callers
// managing the port themselves.
func NewPort(c Conn) *Port { return &Port{c: c} }

// Close takes the adapter off the bus and closes the port.
func (p *Port) Close() error {
	_, _ = p.c.Write([]byte("C\r"))
	return p.c.Close()
}

// Readable reports whether a complete frame is available, pulling whatever
// bytes the port has buffered. The short serial read timeout bounds the
// stall so the intake loop stays close to non-blocking.
func (p *Port) Readable() (bool, error) {
	if len(p.pend) > 0 {
		return true, nil
	}
	var tmp [256]byte
	n, err := p.c.Read(tmp[:])
	if n > 0 {
		p.acc = append(p.acc, tmp[:n]...)
		p.parse()
	}
	if err != nil && err != io.EOF {
		return false, err
	}
	return len(p.pend) > 0, nil
}

// Writable reports whether a frame can be written. Serial writes buffer in
// the kernel, so the port is always considered ready.
func (p *Port) Writable() (bool, error) { return true, nil }

// WriteFrame sends one frame as an SLCAN line.
func (p *Port) WriteFrame(w can.WireFrame) error {
	line, err := EncodeFrame(w)
	if err != nil {
		return err
	}
	line = append(line, '\r')
	n, err := p.c.Write(line)
	if err != nil {
		return err
	}
	if n != len(line) {
		return io.ErrShortWrite
	}
	return nil
}

// ReadFrame pops the oldest parsed frame.
func (p *Port) ReadFrame() (can.WireFrame, error) {
	if len(p.pend) == 0 {
		if ok, err := p.Readable(); err != nil {
			return can.WireFrame{}, err
		} else if !ok {
			return can.WireFrame{}, ErrNoFrame
		}
	}
	w := p.pend[0]
	p.pend = p.pend[1:]
	if len(p.pend) == 0 {
		p.pend = nil // let the backing array go once drained
	}
	return w, nil
}

// parse splits accumulated bytes on CR and queues every line that decodes
// as a frame. Command acknowledgements and noise ('\a', 'z', empty lines)
// are dropped silently.
func (p *Port) parse() {
	for {
		i := bytes.IndexByte(p.acc, '\r')
		if i < 0 {
			return
		}
		line := p.acc[:i]
		p.acc = p.acc[i+1:]
		if len(line) == 0 {
			continue
		}
		w, err := DecodeFrame(line)
		if err != nil {
			continue
		}
		p.pend = append(p.pend, w)
	}
}
