package main

import (
	"testing"
	"time"
)

func baseConfig() *appConfig {
	return &appConfig{
		backend:       "socketcan",
		canIf:         "vcan0",
		slcanDev:      "/dev/null",
		slcanBaud:     115200,
		slcanReadTO:   5 * time.Millisecond,
		rxFIFO:        0,
		pollPeriod:    time.Millisecond,
		logFormat:     "text",
		logLevel:      "info",
		mqttTopic:     "can/rx",
		startAttempts: 1,
		startDelay:    time.Second,
	}
}

func TestConfigValidate_OK(t *testing.T) {
	if err := baseConfig().validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"badBackend", func(c *appConfig) { c.backend = "x" }},
		{"badFormat", func(c *appConfig) { c.logFormat = "xx" }},
		{"badLevel", func(c *appConfig) { c.logLevel = "nope" }},
		{"badRxFIFO", func(c *appConfig) { c.rxFIFO = -1 }},
		{"badPollPeriod", func(c *appConfig) { c.pollPeriod = 0 }},
		{"badBaud", func(c *appConfig) { c.slcanBaud = 0 }},
		{"badSlcanTO", func(c *appConfig) { c.slcanReadTO = 0 }},
		{"badAttempts", func(c *appConfig) { c.startAttempts = 0 }},
		{"badStartDelay", func(c *appConfig) { c.startDelay = 0 }},
		{"brokerWithoutTopic", func(c *appConfig) { c.mqttBroker = "tcp://h:1883"; c.mqttTopic = "" }},
	}
	for _, tc := range tests {
		base := baseConfig()
		tc.mod(base)
		if err := base.validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
