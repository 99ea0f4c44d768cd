package cansim

import (
	"errors"
	"testing"
	"time"

	"github.com/dirtcrusher/cansim/can"
)

// startLoopback starts a fresh driver over an in-memory transport.
func startLoopback(t *testing.T, rxFIFO int) (*Driver, *Loopback) {
	t.Helper()
	lb := NewLoopback()
	d := New(rxFIFO)
	cfg := Config{
		Interface: "vcan-test",
		Open:      func(string) (Transport, error) { return lb, nil },
	}
	if err := d.Start(cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return d, lb
}

func TestDriver_Lifecycle(t *testing.T) {
	var opened []*Loopback
	d := New(0)
	cfg := Config{
		Interface: "vcan-test",
		Open: func(string) (Transport, error) {
			lb := NewLoopback()
			opened = append(opened, lb)
			return lb, nil
		},
	}
	if got := d.State(); got != StateStopped {
		t.Fatalf("after New: state=%s", got)
	}
	if err := d.Start(cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := d.State(); got != StateReady {
		t.Fatalf("after Start: state=%s", got)
	}
	// Leave a frame behind, then stop; restart must come up empty.
	opened[0].Inject(can.WireFrame{CANID: 0x1, Len: 1})
	if _, err := d.ServeInterrupt(); err != nil {
		t.Fatalf("ServeInterrupt: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := d.State(); got != StateStopped {
		t.Fatalf("after Stop: state=%s", got)
	}
	if err := d.Start(cfg); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if d.State() != StateReady {
		t.Fatalf("after restart: state=%s", d.State())
	}
	if d.IsRxNonempty(0) {
		t.Fatalf("RX buffer not empty after restart")
	}
	if len(opened) != 2 {
		t.Fatalf("transport opened %d times, want 2", len(opened))
	}
}

func TestDriver_StartIdempotentWhileReady(t *testing.T) {
	d, _ := startLoopback(t, 0)
	if err := d.Start(Config{Interface: "other"}); err != nil {
		t.Fatalf("Start on ready driver: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestDriver_StartFailureIsResourceUnavailable(t *testing.T) {
	d := New(0)
	boom := errors.New("boom")
	err := d.Start(Config{Open: func(string) (Transport, error) { return nil, boom }})
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Fatalf("err=%v, want ErrResourceUnavailable", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want wrapped cause", err)
	}
	if d.State() != StateStopped {
		t.Fatalf("failed start left state=%s", d.State())
	}
}

func TestDriver_TransmitEncodesWireFrame(t *testing.T) {
	d, lb := startLoopback(t, 0)
	f := can.Frame{ID: 0x1ABCDE, IDE: true, DLC: 2}
	f.Data[0], f.Data[1] = 0xBE, 0xEF
	ok, err := d.IsTxReady(0)
	if err != nil || !ok {
		t.Fatalf("IsTxReady=%v err=%v", ok, err)
	}
	if err := d.Transmit(0, f); err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	sent := lb.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(sent))
	}
	want := can.WireFrame{CANID: 0x1ABCDE | can.EFFFlag, Len: 2}
	want.Data[0], want.Data[1] = 0xBE, 0xEF
	if sent[0] != want {
		t.Fatalf("wire frame %+v, want %+v", sent[0], want)
	}
}

func TestDriver_TransmitFailure(t *testing.T) {
	d, lb := startLoopback(t, 0)
	_ = lb.Close()
	err := d.Transmit(0, can.Frame{ID: 1})
	if !errors.Is(err, ErrTransmit) {
		t.Fatalf("err=%v, want ErrTransmit", err)
	}
}

func TestDriver_ReceiveTimeoutWakesOnIntake(t *testing.T) {
	d, lb := startLoopback(t, 0)
	got := make(chan can.Frame, 1)
	go func() {
		f, ok := d.ReceiveTimeout(0, 2*time.Second)
		if ok {
			got <- f
		}
		close(got)
	}()
	time.Sleep(10 * time.Millisecond)
	lb.Inject(can.Encode(can.Frame{ID: 0x55, DLC: 1, Data: [8]byte{9}}))
	if _, err := d.ServeInterrupt(); err != nil {
		t.Fatalf("ServeInterrupt: %v", err)
	}
	select {
	case f, ok := <-got:
		if !ok || f.ID != 0x55 {
			t.Fatalf("receiver got %+v ok=%v", f, ok)
		}
	case <-time.After(time.Second):
		t.Fatalf("receiver was not woken")
	}
}

func TestDriver_ContractViolationsPanic(t *testing.T) {
	mustPanic := func(name string, fn func()) {
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		fn()
	}
	var zero Driver
	mustPanic("zero driver", func() { zero.Sleep() })

	d, _ := startLoopback(t, 0)
	mustPanic("tx mailbox out of range", func() { _, _ = d.IsTxReady(TxMailboxes) })
	mustPanic("rx mailbox negative", func() { d.Receive(-1) })

	stopped := New(0)
	mustPanic("transmit while stopped", func() { _ = stopped.Transmit(0, can.Frame{}) })
}

func TestDriver_NoopHooks(t *testing.T) {
	d, _ := startLoopback(t, 0)
	if d.Supports(CapSleep) || d.Supports(CapAbort) {
		t.Fatalf("backend claims unsupported capabilities")
	}
	// All three must be accepted without effect.
	d.Abort(0)
	d.Sleep()
	d.Wakeup()
	if d.State() != StateReady {
		t.Fatalf("no-op hooks changed state to %s", d.State())
	}
}

func TestDriver_ReceiveTimeoutBounded(t *testing.T) {
	d, _ := startLoopback(t, 0)
	start := time.Now()
	if _, ok := d.ReceiveTimeout(0, 30*time.Millisecond); ok {
		t.Fatalf("received frame from empty driver")
	}
	elapsed := time.Since(start)
	if elapsed < 15*time.Millisecond || elapsed > 500*time.Millisecond {
		t.Fatalf("timeout wait off bounds: %s", elapsed)
	}
}

func TestStateString(t *testing.T) {
	if StateUninit.String() != "uninit" || StateStopped.String() != "stopped" || StateReady.String() != "ready" {
		t.Fatalf("unexpected state names: %s %s %s", StateUninit, StateStopped, StateReady)
	}
}
