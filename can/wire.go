package can

import "encoding/binary"

// WireFrame is the SocketCAN representation of one frame: the EFF/RTR/ERR
// flags are packed into the upper bits of CANID like struct can_frame.
type WireFrame struct {
	CANID uint32
	Len   uint8
	Data  [MaxDLC]byte
}

// Encode packs a Frame into its wire representation. Pure and total; the
// payload is copied whole, only the first Len bytes carry meaning.
func Encode(f Frame) WireFrame {
	var w WireFrame
	w.CANID = f.ID & EFFMask
	if f.ERR {
		w.CANID |= ERRFlag
	}
	if f.RTR {
		w.CANID |= RTRFlag
	}
	if f.IDE {
		w.CANID |= EFFFlag
	}
	w.Len = f.DLC
	w.Data = f.Data
	return w
}

// Decode unpacks a wire frame into the internal representation, stripping
// the flag bits off the identifier.
//
// Len is copied verbatim: a peer sending Len > MaxDLC is not validated here,
// callers rely on the kernel enforcing the classic CAN limit.
func Decode(w WireFrame) Frame {
	var f Frame
	f.ERR = w.CANID&ERRFlag != 0
	f.RTR = w.CANID&RTRFlag != 0
	f.IDE = w.CANID&EFFFlag != 0
	f.ID = w.CANID & EFFMask
	f.DLC = w.Len
	f.Data = w.Data
	return f
}

// Marshal lays the frame out as the kernel's struct can_frame:
//
//	can_id  u32   [0:4]  (includes EFF/RTR/ERR flags)
//	can_dlc u8    [4]
//	pad     3B    [5:8]
//	data    [8]   [8:16]
//
// The kernel exchanges fields in host byte order; on the little-endian hosts
// this port targets that is binary.LittleEndian.
func (w WireFrame) Marshal() [MTU]byte {
	var buf [MTU]byte
	binary.LittleEndian.PutUint32(buf[0:4], w.CANID)
	buf[4] = w.Len
	copy(buf[8:], w.Data[:])
	return buf
}

// UnmarshalWire is the inverse of Marshal.
func UnmarshalWire(buf [MTU]byte) WireFrame {
	var w WireFrame
	w.CANID = binary.LittleEndian.Uint32(buf[0:4])
	w.Len = buf[4]
	copy(w.Data[:], buf[8:])
	return w
}
