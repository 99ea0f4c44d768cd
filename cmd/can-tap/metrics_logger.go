package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/dirtcrusher/cansim/internal/metrics"
)

func metricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			snap := metrics.Snap()
			l.Info("metrics_snapshot",
				"rx", snap.Rx,
				"tx", snap.Tx,
				"rx_drops", snap.RxDrops,
				"mqtt_tx", snap.MQTTTx,
				"errors", snap.Errors,
			)
		case <-ctx.Done():
			return nil
		}
	}
}
