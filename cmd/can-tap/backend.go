package main

import (
	"github.com/dirtcrusher/cansim"
	"github.com/dirtcrusher/cansim/slcan"
)

// openSLCAN is a hook for tests.
var openSLCAN = slcan.Open

// transportOpener maps the configured backend to a transport constructor.
// nil selects the driver's default (SocketCAN).
func transportOpener(cfg *appConfig) func(string) (cansim.Transport, error) {
	if cfg.backend != "slcan" {
		return nil
	}
	return func(string) (cansim.Transport, error) {
		return openSLCAN(cfg.slcanDev, cfg.slcanBaud, cfg.slcanReadTO)
	}
}
