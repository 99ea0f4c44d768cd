//go:build linux

// Package socketcan owns the raw CAN socket standing in for the transceiver
// hardware. It exposes non-blocking readiness checks and single-frame reads
// and writes; lifecycle and buffering live above it.
package socketcan

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/dirtcrusher/cansim/can"
)

// Socket is a raw AF_CAN socket bound to one network interface.
type Socket struct {
	fd int
}

// Open creates a raw CAN socket and binds it to the named interface. Any
// failing step closes the descriptor and returns the error; a link that
// cannot open is unrecoverable for this driver.
func Open(iface string) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socket(AF_CAN): %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, 0); err != nil {
		// Older kernels may not know this option; ignore ENOPROTOOPT
		if err != unix.ENOPROTOOPT {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("disable CAN FD: %w", err)
		}
	}
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("if %q: %w", iface, err)
	}
	sa := &unix.SockaddrCAN{Ifindex: ifi.Index}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind(can@%s): %w", iface, err)
	}
	return &Socket{fd: fd}, nil
}

// Close releases the socket; the descriptor is invalid afterwards.
func (s *Socket) Close() error { return unix.Close(s.fd) }

// Readable reports whether a frame is waiting, without blocking.
func (s *Socket) Readable() (bool, error) { return s.poll(unix.POLLIN) }

// Writable reports whether a frame can be written, without blocking.
func (s *Socket) Writable() (bool, error) { return s.poll(unix.POLLOUT) }

// poll is a zero-timeout readiness check. A poll syscall failure is distinct
// from "not ready" and is fatal for the caller.
func (s *Socket) poll(events int16) (bool, error) {
	fds := [1]unix.PollFd{{Fd: int32(s.fd), Events: events}}
	for {
		n, err := unix.Poll(fds[:], 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("poll: %w", err)
		}
		return n != 0, nil
	}
}

// WriteFrame writes one classic CAN frame. Anything short of a full frame on
// the wire is an error.
func (s *Socket) WriteFrame(w can.WireFrame) error {
	buf := w.Marshal()
	n, err := unix.Write(s.fd, buf[:])
	if err != nil {
		return err
	}
	if n != can.MTU {
		return fmt.Errorf("short write: %d of %d", n, can.MTU)
	}
	return nil
}

// ReadFrame reads one classic CAN frame. The caller checks readiness first;
// this call assumes data is present.
func (s *Socket) ReadFrame() (can.WireFrame, error) {
	var buf [can.MTU]byte
	n, err := unix.Read(s.fd, buf[:])
	if err != nil {
		return can.WireFrame{}, err
	}
	if n != can.MTU {
		return can.WireFrame{}, fmt.Errorf("short read: %d of %d", n, can.MTU)
	}
	return can.UnmarshalWire(buf), nil
}
