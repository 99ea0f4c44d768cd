package main

import (
	"testing"
	"time"

	"github.com/dirtcrusher/cansim/slcan"
)

type nopConn struct{}

func (nopConn) Read(p []byte) (int, error)  { return 0, nil }
func (nopConn) Write(p []byte) (int, error) { return len(p), nil }
func (nopConn) Close() error                { return nil }

func TestTransportOpener_Default(t *testing.T) {
	cfg := baseConfig()
	if transportOpener(cfg) != nil {
		t.Fatalf("socketcan backend must use the driver's default opener")
	}
}

func TestTransportOpener_SLCAN(t *testing.T) {
	cfg := baseConfig()
	cfg.backend = "slcan"
	cfg.slcanDev = "/dev/fake"
	openSLCAN = func(dev string, baud int, to time.Duration) (*slcan.Port, error) {
		if dev != "/dev/fake" || baud != cfg.slcanBaud || to != cfg.slcanReadTO {
			t.Fatalf("opener got dev=%s baud=%d to=%v", dev, baud, to)
		}
		return slcan.NewPort(nopConn{}), nil
	}
	defer func() { openSLCAN = slcan.Open }()

	open := transportOpener(cfg)
	if open == nil {
		t.Fatalf("slcan backend returned nil opener")
	}
	tr, err := open("ignored")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if tr == nil {
		t.Fatalf("open returned nil transport")
	}
}
