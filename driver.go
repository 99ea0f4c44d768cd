package cansim

import (
	"fmt"
	"time"

	"github.com/dirtcrusher/cansim/can"
	"github.com/dirtcrusher/cansim/internal/logging"
	"github.com/dirtcrusher/cansim/internal/metrics"
	"github.com/dirtcrusher/cansim/ring"
	"github.com/dirtcrusher/cansim/socketcan"
)

// State is the driver lifecycle state.
type State uint8

const (
	StateUninit  State = iota // zero Driver, not constructed via New
	StateStopped              // constructed or stopped, no socket held
	StateReady                // started, socket open and bound
)

func (s State) String() string {
	switch s {
	case StateUninit:
		return "uninit"
	case StateStopped:
		return "stopped"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Mailbox counts of the simulated peripheral: one transmit and one receive
// path, index 0 each.
const (
	TxMailboxes = 1
	RxMailboxes = 1
)

// Capability names an optional driver feature.
type Capability uint8

const (
	CapSleep Capability = iota // sleep / wakeup power modes
	CapAbort                   // aborting a queued transmission
)

// Config carries the values supplied to Start. Interface names the CAN
// network interface to bind; Open, when set, overrides the transport
// constructor (used to select the SLCAN backend or to inject fakes).
type Config struct {
	Interface string
	Open      func(iface string) (Transport, error)
}

// Driver is one simulated CAN peripheral instance. Unlike a hardware port
// there is no fixed global instance; construct as many as needed with New
// and pass them by reference.
//
// Lifecycle transitions (Start, Stop) must be serialized by the caller
// against ServeInterrupt invocations; the RX ring buffer is the only state
// shared safely between the intake context and consumers.
type Driver struct {
	state State
	cfg   Config
	tr    Transport
	rxq   *ring.Buffer
}

// New constructs a stopped driver. The RX buffer is sized to rxFIFO slots
// (ring.DefaultCapacity if rxFIFO <= 0) and allocated once, here.
func New(rxFIFO int) *Driver {
	return &Driver{
		state: StateStopped,
		rxq:   ring.New(rxFIFO),
	}
}

// State returns the current lifecycle state.
func (d *Driver) State() State { return d.state }

// Supports reports whether the backend implements the given capability.
// This port supports none of them: Abort, Sleep and Wakeup are accepted as
// successful no-ops.
func (d *Driver) Supports(c Capability) bool { return false }

// Start opens and binds the transport, moving the driver to StateReady with
// an empty RX buffer. Starting a ready driver is a no-op. Any open failure
// leaves the driver stopped; the simulated link is considered broken and
// the caller should halt.
func (d *Driver) Start(cfg Config) error {
	d.checkInit()
	if d.state == StateReady {
		return nil
	}
	open := cfg.Open
	if open == nil {
		open = func(iface string) (Transport, error) { return socketcan.Open(iface) }
	}
	tr, err := open(cfg.Interface)
	if err != nil {
		return fmt.Errorf("%w: open %q: %w", ErrResourceUnavailable, cfg.Interface, err)
	}
	d.cfg = cfg
	d.tr = tr
	d.rxq.Reset()
	d.state = StateReady
	logging.L().Debug("can_driver_started", "if", cfg.Interface)
	return nil
}

// Stop closes the transport and returns to StateStopped. Stopping a stopped
// driver is a no-op. A close failure still invalidates the handle.
func (d *Driver) Stop() error {
	d.checkInit()
	if d.state != StateReady {
		return nil
	}
	err := d.tr.Close()
	d.tr = nil
	d.state = StateStopped
	logging.L().Debug("can_driver_stopped", "if", d.cfg.Interface)
	if err != nil {
		return fmt.Errorf("%w: close: %w", ErrResourceUnavailable, err)
	}
	return nil
}

// IsTxReady reports whether the transmit mailbox can take a frame, without
// blocking. Only valid while ready.
func (d *Driver) IsTxReady(mailbox int) (bool, error) {
	d.checkReady()
	checkMailbox(mailbox, TxMailboxes)
	ok, err := d.tr.Writable()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrPoll, err)
	}
	return ok, nil
}

// Transmit encodes and writes one frame through the transmit mailbox. The
// write is synchronous; a short or failed write is fatal for the instance.
func (d *Driver) Transmit(mailbox int, f can.Frame) error {
	d.checkReady()
	checkMailbox(mailbox, TxMailboxes)
	if err := d.tr.WriteFrame(can.Encode(f)); err != nil {
		metrics.IncError(metrics.ErrWrite)
		return fmt.Errorf("%w: %w", ErrTransmit, err)
	}
	metrics.IncTx()
	return nil
}

// IsRxNonempty reports whether a received frame is waiting in the mailbox.
func (d *Driver) IsRxNonempty(mailbox int) bool {
	d.checkReady()
	checkMailbox(mailbox, RxMailboxes)
	return !d.rxq.Empty()
}

// Receive returns the oldest received frame, or ok=false when none is
// waiting. It never blocks.
func (d *Driver) Receive(mailbox int) (can.Frame, bool) {
	return d.ReceiveTimeout(mailbox, ring.Immediate)
}

// ReceiveTimeout waits up to timeout for a frame (ring.Immediate to only
// check, ring.Forever to wait indefinitely). There must be at most one
// concurrent receiver.
func (d *Driver) ReceiveTimeout(mailbox int, timeout time.Duration) (can.Frame, bool) {
	d.checkReady()
	checkMailbox(mailbox, RxMailboxes)
	slot := d.rxq.ClaimFull(timeout)
	if slot == nil {
		return can.Frame{}, false
	}
	f := *slot
	d.rxq.Release()
	return f, true
}

// Abort would cancel a queued transmission. Unsupported in this backend;
// accepted as a successful no-op.
func (d *Driver) Abort(mailbox int) {
	d.checkReady()
	checkMailbox(mailbox, TxMailboxes)
}

// Sleep would enter low-power mode. Unsupported in this backend; accepted
// as a successful no-op.
func (d *Driver) Sleep() { d.checkInit() }

// Wakeup would leave low-power mode. Unsupported in this backend; accepted
// as a successful no-op.
func (d *Driver) Wakeup() { d.checkInit() }

func (d *Driver) checkInit() {
	if d.rxq == nil {
		panic("cansim: driver not constructed with New")
	}
}

func (d *Driver) checkReady() {
	d.checkInit()
	if d.state != StateReady {
		panic("cansim: driver not in ready state")
	}
}

func checkMailbox(mailbox, count int) {
	if mailbox < 0 || mailbox >= count {
		panic(fmt.Sprintf("cansim: invalid mailbox %d (have %d)", mailbox, count))
	}
}
