// can-tap opens a simulated CAN transceiver, pumps its intake loop and
// dumps every received frame, optionally republishing to MQTT and exposing
// Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/dirtcrusher/cansim"
	"github.com/dirtcrusher/cansim/internal/metrics"
)

const receivePoll = 250 * time.Millisecond

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("can-tap %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(2)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)
	color.NoColor = color.NoColor || cfg.noColor
	l.Info("build_info", "version", version, "commit", commit, "date", date)

	drv := cansim.New(cfg.rxFIFO)
	dcfg := cansim.Config{Interface: cfg.canIf, Open: transportOpener(cfg)}
	// The interface may not exist yet (vcan module loading, adapter
	// enumeration); retry before declaring the link broken.
	err := retry.Do(
		func() error { return drv.Start(dcfg) },
		retry.Attempts(uint(cfg.startAttempts)),
		retry.Delay(cfg.startDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		metrics.IncError(metrics.ErrStart)
		l.Error("driver_start_error", "backend", cfg.backend, "error", err)
		os.Exit(1)
	}
	l.Info("driver_started", "backend", cfg.backend, "if", cfg.canIf)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.SetReadinessFunc(func() bool {
		return drv.State() == cansim.StateReady && ctx.Err() == nil
	})
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
		if cleanupMDNS, err := startMDNS(ctx, cfg, metricsPort(cfg.metricsAddr)); err != nil {
			l.Warn("mdns_start_failed", "error", err)
		} else {
			defer cleanupMDNS()
		}
	}

	var pub *publisher
	if cfg.mqttBroker != "" {
		pub, err = newPublisher(cfg.mqttBroker, cfg.mqttTopic, "can-tap-"+cfg.canIf)
		if err != nil {
			l.Error("mqtt_connect_error", "broker", cfg.mqttBroker, "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		l.Info("mqtt_connected", "broker", cfg.mqttBroker, "topic", cfg.mqttTopic)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return drv.Run(gctx, cfg.pollPeriod) })
	g.Go(func() error { return consume(gctx, drv, pub, cfg) })
	g.Go(func() error { return metricsLogger(gctx, cfg.logMetricsEvery, l) })

	if err := g.Wait(); err != nil {
		l.Error("intake_fatal", "error", err)
		_ = drv.Stop()
		os.Exit(1)
	}
	if err := drv.Stop(); err != nil {
		l.Error("driver_stop_error", "error", err)
		os.Exit(1)
	}
	l.Info("shutdown_complete")
}

// consume drains the RX mailbox, printing and republishing every frame.
// It is the single consumer the ring buffer protocol requires.
func consume(ctx context.Context, drv *cansim.Driver, pub *publisher, cfg *appConfig) error {
	for ctx.Err() == nil {
		f, ok := drv.ReceiveTimeout(0, receivePoll)
		if !ok {
			continue
		}
		printFrame(os.Stdout, cfg.canIf, f)
		if pub != nil {
			pub.Publish(f)
		}
	}
	return nil
}

func metricsPort(addr string) int {
	if _, p, err := net.SplitHostPort(addr); err == nil {
		if pn, perr := strconv.Atoi(p); perr == nil {
			return pn
		}
	}
	return 0
}
