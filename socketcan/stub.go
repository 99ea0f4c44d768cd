//go:build !linux

package socketcan

import (
	"errors"

	"github.com/dirtcrusher/cansim/can"
)

// ErrUnsupported is returned on platforms without SocketCAN so callers can
// compile everywhere and fail only at Open.
var ErrUnsupported = errors.New("socketcan: not supported on this platform")

type Socket struct{}

func Open(iface string) (*Socket, error) { return nil, ErrUnsupported }

func (s *Socket) Close() error { return ErrUnsupported }

func (s *Socket) Readable() (bool, error) { return false, ErrUnsupported }

func (s *Socket) Writable() (bool, error) { return false, ErrUnsupported }

func (s *Socket) WriteFrame(can.WireFrame) error { return ErrUnsupported }

func (s *Socket) ReadFrame() (can.WireFrame, error) { return can.WireFrame{}, ErrUnsupported }
