// Package slcan implements the serial-line CAN (SLCAN) ASCII protocol as an
// alternate transceiver backend, carried over a serial port.
package slcan

import (
	"errors"
	"fmt"

	"github.com/dirtcrusher/cansim/can"
)

var (
	// ErrErrorFrame is returned when asked to encode an error message frame;
	// the SLCAN protocol has no representation for those.
	ErrErrorFrame = errors.New("slcan: error frames not representable")

	// ErrMalformed is returned for lines that do not parse as a frame.
	ErrMalformed = errors.New("slcan: malformed line")
)

const hexDigits = "0123456789ABCDEF"

// EncodeFrame renders one frame as an SLCAN line, without the trailing CR:
// 't'/'T' for standard/extended data frames, 'r'/'R' for remote frames,
// then the hex identifier (3 or 8 digits), the DLC digit and the payload.
func EncodeFrame(w can.WireFrame) ([]byte, error) {
	if w.CANID&can.ERRFlag != 0 {
		return nil, ErrErrorFrame
	}
	remote := w.CANID&can.RTRFlag != 0
	ext := w.CANID&can.EFFFlag != 0

	buf := make([]byte, 0, 1+8+1+2*can.MaxDLC)
	switch {
	case remote && ext:
		buf = append(buf, 'R')
	case remote:
		buf = append(buf, 'r')
	case ext:
		buf = append(buf, 'T')
	default:
		buf = append(buf, 't')
	}
	if ext {
		buf = appendHex(buf, w.CANID&can.EFFMask, 8)
	} else {
		buf = appendHex(buf, w.CANID&can.SFFMask, 3)
	}
	buf = append(buf, '0'+(w.Len&0x0F))
	if !remote {
		for i := uint8(0); i < w.Len && i < can.MaxDLC; i++ {
			buf = append(buf, hexDigits[w.Data[i]>>4], hexDigits[w.Data[i]&0x0F])
		}
	}
	return buf, nil
}

// DecodeFrame parses one SLCAN line (without CR) into a wire frame.
func DecodeFrame(line []byte) (can.WireFrame, error) {
	var w can.WireFrame
	if len(line) == 0 {
		return w, ErrMalformed
	}
	var remote, ext bool
	switch line[0] {
	case 't':
	case 'T':
		ext = true
	case 'r':
		remote = true
	case 'R':
		remote, ext = true, true
	default:
		return w, fmt.Errorf("%w: command %q", ErrMalformed, line[0])
	}
	idLen := 3
	if ext {
		idLen = 8
	}
	if len(line) < 1+idLen+1 {
		return w, fmt.Errorf("%w: truncated header", ErrMalformed)
	}
	id, err := parseHex(line[1 : 1+idLen])
	if err != nil {
		return w, err
	}
	dlc := line[1+idLen] - '0'
	if dlc > can.MaxDLC {
		return w, fmt.Errorf("%w: dlc %d", ErrMalformed, dlc)
	}
	w.CANID = id
	if ext {
		w.CANID |= can.EFFFlag
	}
	if remote {
		w.CANID |= can.RTRFlag
	}
	w.Len = dlc
	if remote {
		return w, nil
	}
	payload := line[1+idLen+1:]
	if len(payload) != 2*int(dlc) {
		return w, fmt.Errorf("%w: payload length %d for dlc %d", ErrMalformed, len(payload), dlc)
	}
	for i := 0; i < int(dlc); i++ {
		b, err := parseHex(payload[i*2 : i*2+2])
		if err != nil {
			return w, err
		}
		w.Data[i] = byte(b)
	}
	return w, nil
}

func appendHex(dst []byte, v uint32, digits int) []byte {
	for i := digits - 1; i >= 0; i-- {
		dst = append(dst, hexDigits[(v>>(uint(i)*4))&0xF])
	}
	return dst
}

func parseHex(s []byte) (uint32, error) {
	var v uint32
	for _, c := range s {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= uint32(c - '0')
		case c >= 'A' && c <= 'F':
			v |= uint32(c-'A') + 10
		case c >= 'a' && c <= 'f':
			v |= uint32(c-'a') + 10
		default:
			return 0, fmt.Errorf("%w: hex %q", ErrMalformed, c)
		}
	}
	return v, nil
}
