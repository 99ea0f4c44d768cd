package cansim

import (
	"context"
	"fmt"
	"time"

	"github.com/dirtcrusher/cansim/can"
	"github.com/dirtcrusher/cansim/internal/metrics"
)

// ServeInterrupt is one invocation of the poll-driven intake routine that
// stands in for the hardware receive interrupt. For a ready driver it checks
// socket readability, reads and decodes at most one frame and publishes it
// into the RX buffer, waking any blocked receiver. A saturated buffer sheds
// the frame; that is deliberate backpressure, not a fault.
//
// The boolean reports whether any activity occurred. A non-nil error means
// the simulated link is broken and the driver instance is done for.
func (d *Driver) ServeInterrupt() (bool, error) {
	if d == nil || d.state != StateReady {
		return false, nil
	}
	ready, err := d.tr.Readable()
	if err != nil {
		metrics.IncError(metrics.ErrPoll)
		return false, fmt.Errorf("%w: %w", ErrPoll, err)
	}
	if !ready {
		return false, nil
	}
	w, err := d.tr.ReadFrame()
	if err != nil {
		metrics.IncError(metrics.ErrRead)
		return false, fmt.Errorf("%w: %w", ErrReceive, err)
	}
	metrics.IncRx()
	slot := d.rxq.TryClaimEmpty()
	if slot == nil {
		// Consumer is behind and every slot is spoken for. Drop.
		metrics.IncRxDrop()
		return true, nil
	}
	*slot = can.Decode(w)
	d.rxq.Publish()
	return true, nil
}

// Run drives ServeInterrupt from a ticker until ctx is cancelled, emulating
// the periodic interrupt an external scheduler would deliver. Each tick it
// serves until the socket runs dry, so throughput is bounded by period only
// under load bursts. Returns nil on cancellation, otherwise the fatal
// intake error.
func (d *Driver) Run(ctx context.Context, period time.Duration) error {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			for {
				did, err := d.ServeInterrupt()
				if err != nil {
					return err
				}
				if !did {
					break
				}
			}
		}
	}
}
