// Package can defines the frame model shared by the driver's transmit and
// receive paths, and the pure codec translating it to and from the SocketCAN
// wire layout.
package can

import "encoding/binary"

// SocketCAN flag bits for can_id (same values as <linux/can.h>)
const (
	EFFFlag uint32 = 0x80000000 // extended frame format
	RTRFlag uint32 = 0x40000000 // remote transmission request
	ERRFlag uint32 = 0x20000000 // error message frame
	SFFMask uint32 = 0x000007FF
	EFFMask uint32 = 0x1FFFFFFF
)

// MaxDLC is the classic CAN payload limit in bytes.
const MaxDLC = 8

// MTU is the size of the kernel's struct can_frame.
const MTU = 16

// Frame is the driver-internal CAN frame representation. The flag bits are
// unpacked from the identifier, ID holds the bare 29-bit numeric value and
// Data carries up to MaxDLC payload bytes; only the first DLC are meaningful.
//
// Transmit and receive paths use the same structure.
type Frame struct {
	ERR  bool   // error message frame
	RTR  bool   // remote request frame
	IDE  bool   // extended (29-bit) identifier
	ID   uint32 // numeric identifier, <= EFFMask
	DLC  uint8  // payload length, 0..MaxDLC
	Data [MaxDLC]byte
}

// Word accessors mirror the byte/half/word/dword views hardware mailboxes
// expose over the same 8 payload bytes. Little-endian, matching the kernel
// frame layout on common Linux hosts.

// Data16 returns the i-th 16-bit payload word, i in 0..3.
func (f *Frame) Data16(i int) uint16 {
	return binary.LittleEndian.Uint16(f.Data[i*2:])
}

// Data32 returns the i-th 32-bit payload word, i in 0..1.
func (f *Frame) Data32(i int) uint32 {
	return binary.LittleEndian.Uint32(f.Data[i*4:])
}

// Data64 returns the payload as a single 64-bit word.
func (f *Frame) Data64() uint64 {
	return binary.LittleEndian.Uint64(f.Data[:])
}

// SetData16 stores v as the i-th 16-bit payload word, i in 0..3.
func (f *Frame) SetData16(i int, v uint16) {
	binary.LittleEndian.PutUint16(f.Data[i*2:], v)
}

// SetData32 stores v as the i-th 32-bit payload word, i in 0..1.
func (f *Frame) SetData32(i int, v uint32) {
	binary.LittleEndian.PutUint32(f.Data[i*4:], v)
}

// SetData64 stores v across the whole payload.
func (f *Frame) SetData64(v uint64) {
	binary.LittleEndian.PutUint64(f.Data[:], v)
}
