package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	backend         string
	canIf           string
	slcanDev        string
	slcanBaud       int
	slcanReadTO     time.Duration
	rxFIFO          int
	pollPeriod      time.Duration
	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration
	mqttBroker      string
	mqttTopic       string
	mdnsEnable      bool
	mdnsName        string
	startAttempts   int
	startDelay      time.Duration
	noColor         bool
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	backend := flag.String("backend", "socketcan", "CAN backend: socketcan|slcan")
	canIf := flag.String("can-if", "vcan0", "SocketCAN interface (when --backend=socketcan)")
	slcanDev := flag.String("slcan-dev", "/dev/ttyUSB0", "Serial device (when --backend=slcan)")
	slcanBaud := flag.Int("slcan-baud", 115200, "Serial baud rate")
	slcanReadTO := flag.Duration("slcan-read-timeout", 5*time.Millisecond, "Serial read timeout")
	rxFIFO := flag.Int("rx-fifo", 0, "RX ring buffer slots (0 = driver default)")
	pollPeriod := flag.Duration("poll-period", time.Millisecond, "Intake loop tick period")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	mqttBroker := flag.String("mqtt-broker", "", "MQTT broker URL (e.g., tcp://localhost:1883); empty disables publishing")
	mqttTopic := flag.String("mqtt-topic", "can/rx", "MQTT topic for received frames")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Avahi advertisement of the metrics endpoint")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default can-tap-<hostname>)")
	startAttempts := flag.Int("start-attempts", 1, "Driver start attempts (waits for the interface to appear)")
	startDelay := flag.Duration("start-delay", time.Second, "Delay between driver start attempts")
	noColor := flag.Bool("no-color", false, "Disable colored frame dump output")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Track which flags were explicitly set to give them precedence over env.
	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })
	cfg.backend = *backend
	cfg.canIf = *canIf
	cfg.slcanDev = *slcanDev
	cfg.slcanBaud = *slcanBaud
	cfg.slcanReadTO = *slcanReadTO
	cfg.rxFIFO = *rxFIFO
	cfg.pollPeriod = *pollPeriod
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mqttBroker = *mqttBroker
	cfg.mqttTopic = *mqttTopic
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName
	cfg.startAttempts = *startAttempts
	cfg.startDelay = *startDelay
	cfg.noColor = *noColor

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open devices or listeners – only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.backend {
	case "socketcan", "slcan":
	default:
		return fmt.Errorf("invalid backend: %s", c.backend)
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.rxFIFO < 0 {
		return fmt.Errorf("rx-fifo must be >= 0 (got %d)", c.rxFIFO)
	}
	if c.pollPeriod <= 0 {
		return fmt.Errorf("poll-period must be > 0")
	}
	if c.slcanBaud <= 0 {
		return fmt.Errorf("slcan-baud must be > 0 (got %d)", c.slcanBaud)
	}
	if c.slcanReadTO <= 0 {
		return fmt.Errorf("slcan-read-timeout must be > 0")
	}
	if c.startAttempts < 1 {
		return fmt.Errorf("start-attempts must be >= 1 (got %d)", c.startAttempts)
	}
	if c.startDelay <= 0 {
		return fmt.Errorf("start-delay must be > 0")
	}
	if c.mqttBroker != "" && c.mqttTopic == "" {
		return errors.New("mqtt-topic must be set when mqtt-broker is")
	}
	return nil
}

// applyEnvOverrides maps CAN_TAP_* environment variables to config fields
// unless a corresponding flag was explicitly set. Empty values are ignored;
// durations accept Go time.ParseDuration format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	if _, ok := set["backend"]; !ok {
		if v, ok := get("CAN_TAP_BACKEND"); ok && v != "" {
			c.backend = v
		}
	}
	if _, ok := set["can-if"]; !ok {
		if v, ok := get("CAN_TAP_IF"); ok && v != "" {
			c.canIf = v
		}
	}
	if _, ok := set["slcan-dev"]; !ok {
		if v, ok := get("CAN_TAP_SLCAN_DEV"); ok && v != "" {
			c.slcanDev = v
		}
	}
	if _, ok := set["slcan-baud"]; !ok {
		if v, ok := get("CAN_TAP_SLCAN_BAUD"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.slcanBaud = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CAN_TAP_SLCAN_BAUD: %w", err)
			}
		}
	}
	if _, ok := set["slcan-read-timeout"]; !ok {
		if v, ok := get("CAN_TAP_SLCAN_READ_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.slcanReadTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CAN_TAP_SLCAN_READ_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["rx-fifo"]; !ok {
		if v, ok := get("CAN_TAP_RX_FIFO"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.rxFIFO = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CAN_TAP_RX_FIFO: %w", err)
			}
		}
	}
	if _, ok := set["poll-period"]; !ok {
		if v, ok := get("CAN_TAP_POLL_PERIOD"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.pollPeriod = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CAN_TAP_POLL_PERIOD: %w", err)
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("CAN_TAP_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("CAN_TAP_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("CAN_TAP_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("CAN_TAP_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CAN_TAP_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["mqtt-broker"]; !ok {
		if v, ok := get("CAN_TAP_MQTT_BROKER"); ok {
			c.mqttBroker = v
		}
	}
	if _, ok := set["mqtt-topic"]; !ok {
		if v, ok := get("CAN_TAP_MQTT_TOPIC"); ok && v != "" {
			c.mqttTopic = v
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("CAN_TAP_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("CAN_TAP_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	if _, ok := set["start-attempts"]; !ok {
		if v, ok := get("CAN_TAP_START_ATTEMPTS"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 1 {
				c.startAttempts = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CAN_TAP_START_ATTEMPTS: %w", err)
			}
		}
	}
	if _, ok := set["start-delay"]; !ok {
		if v, ok := get("CAN_TAP_START_DELAY"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.startDelay = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid CAN_TAP_START_DELAY: %w", err)
			}
		}
	}
	if _, ok := set["no-color"]; !ok {
		if v, ok := get("CAN_TAP_NO_COLOR"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.noColor = true
			case "0", "false", "no", "off":
				c.noColor = false
			}
		}
	}
	return firstErr
}
