package can

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func mkFrame(id uint32, n int, ide, rtr, errf bool) Frame {
	var f Frame
	f.ID = id & EFFMask
	f.IDE = ide
	f.RTR = rtr
	f.ERR = errf
	if n < 0 {
		n = 0
	}
	if n > MaxDLC {
		n = MaxDLC
	}
	f.DLC = uint8(n)
	rand.Read(f.Data[:n])
	return f
}

func TestCodec_RoundTrip(t *testing.T) {
	cases := []Frame{
		mkFrame(0x123, 3, false, false, false),
		mkFrame(0x7FF, 8, false, false, false),
		mkFrame(0x1FFFFFFF, 8, true, false, false),
		mkFrame(0x1E5A, 0, true, true, false),
		mkFrame(0x42, 5, false, false, true),
	}
	for i, in := range cases {
		out := Decode(Encode(in))
		if out != in {
			t.Fatalf("case %d: round trip mismatch\nin=%+v\nout=%+v", i, in, out)
		}
	}
}

// Each of the ERR/RTR/IDE bits must survive an encode/decode cycle
// independently of the other two and of the numeric ID.
func TestCodec_FlagIndependence(t *testing.T) {
	for _, id := range []uint32{0, 0x123, 0x7FF, 0x1FFFFFFF} {
		for mask := 0; mask < 8; mask++ {
			in := mkFrame(id, 4, mask&1 != 0, mask&2 != 0, mask&4 != 0)
			out := Decode(Encode(in))
			if out.IDE != in.IDE || out.RTR != in.RTR || out.ERR != in.ERR {
				t.Fatalf("id=%#x mask=%d: flags changed: in=%+v out=%+v", id, mask, in, out)
			}
			if out.ID != in.ID {
				t.Fatalf("id=%#x mask=%d: ID changed to %#x", id, mask, out.ID)
			}
		}
	}
}

func TestCodec_FlagBitsOnWire(t *testing.T) {
	f := mkFrame(0x100, 0, false, false, false)
	if w := Encode(f); w.CANID != 0x100 {
		t.Fatalf("plain frame: CANID=%#x, want 0x100", w.CANID)
	}
	f.IDE = true
	if w := Encode(f); w.CANID != 0x100|EFFFlag {
		t.Fatalf("extended frame: CANID=%#x", w.CANID)
	}
	f.RTR = true
	f.ERR = true
	if w := Encode(f); w.CANID != 0x100|EFFFlag|RTRFlag|ERRFlag {
		t.Fatalf("all flags: CANID=%#x", w.CANID)
	}
}

// The byte layout must match struct can_frame exactly or the kernel will
// reject / misread frames.
func TestWireFrame_MarshalLayout(t *testing.T) {
	w := WireFrame{CANID: 0x123, Len: 3}
	w.Data[0], w.Data[1], w.Data[2] = 0x01, 0x02, 0x03
	buf := w.Marshal()
	want := []byte{
		0x23, 0x01, 0x00, 0x00, // can_id little-endian
		0x03,             // can_dlc
		0x00, 0x00, 0x00, // padding
		0x01, 0x02, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(buf[:], want) {
		t.Fatalf("layout mismatch\ngot =% X\nwant=% X", buf[:], want)
	}
	if got := UnmarshalWire(buf); got != w {
		t.Fatalf("unmarshal mismatch: %+v != %+v", got, w)
	}
}

func TestFrame_WordAccessors(t *testing.T) {
	var f Frame
	f.SetData64(0x0807060504030201)
	if f.Data[0] != 0x01 || f.Data[7] != 0x08 {
		t.Fatalf("SetData64 bytes: % X", f.Data[:])
	}
	if got := f.Data16(1); got != 0x0403 {
		t.Fatalf("Data16(1)=%#x", got)
	}
	if got := f.Data32(1); got != 0x08070605 {
		t.Fatalf("Data32(1)=%#x", got)
	}
	f.SetData32(0, 0xDEADBEEF)
	if got := f.Data32(0); got != 0xDEADBEEF {
		t.Fatalf("Data32(0)=%#x", got)
	}
	f.SetData16(3, 0xCAFE)
	if got := f.Data16(3); got != 0xCAFE {
		t.Fatalf("Data16(3)=%#x", got)
	}
	if got := f.Data64(); got&0xFFFF != 0xBEEF {
		t.Fatalf("Data64 low=%#x", got)
	}
}

// FuzzWireRoundTrip ensures arbitrary kernel frame bytes survive
// unmarshal/decode/encode/marshal unchanged in all meaningful fields.
func FuzzWireRoundTrip(f *testing.F) {
	seedFrames := []Frame{
		mkFrame(0x123, 3, false, false, false),
		mkFrame(0x1ABCDE, 8, true, false, false),
		mkFrame(0x7FF, 0, false, true, true),
	}
	for _, s := range seedFrames {
		b := Encode(s).Marshal()
		f.Add(b[:])
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		var buf [MTU]byte
		copy(buf[:], data)
		w := UnmarshalWire(buf)
		w2 := Encode(Decode(w))
		if w2.CANID != w.CANID || w2.Len != w.Len || w2.Data != w.Data {
			t.Fatalf("round trip changed frame: %+v -> %+v", w, w2)
		}
	})
}

func BenchmarkCodec_EncodeDecode(b *testing.B) {
	f := mkFrame(0x1E5A, 8, true, false, false)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		f = Decode(Encode(f))
	}
	_ = f
}
