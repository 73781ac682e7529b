// internal/config/validate.go
package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// hostLabel matches one DNS label. Empty labels are rejected separately.
var hostLabel = regexp.MustCompile(`^[a-zA-Z\d-]+$`)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// INVERTER
	// ------------------------------------------------------------

	inv := cfg.Inverter

	if strings.TrimSpace(inv.Name) == "" {
		return fmt.Errorf("inverter.name: required")
	}
	if !ValidHost(inv.Host) {
		return fmt.Errorf("inverter.host: %q is neither an IP address nor a valid hostname", inv.Host)
	}
	if inv.Port < 1 || inv.Port > 65535 {
		return fmt.Errorf("inverter.port: %d out of range 1..65535", inv.Port)
	}
	switch strings.ToLower(strings.TrimSpace(inv.Variant)) {
	case "r5", "r6":
	default:
		return fmt.Errorf("inverter.variant: %q (want r5 or r6)", inv.Variant)
	}
	if inv.Timeout < 0 {
		return fmt.Errorf("inverter.timeout: must be >= 0")
	}
	if inv.IdleTimeout < 0 {
		return fmt.Errorf("inverter.idle_timeout: must be >= 0")
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if cfg.Poll.ScanInterval < 1 || cfg.Poll.ScanInterval > 600 {
		return fmt.Errorf("poll.scan_interval: %d out of range 1..600 seconds", cfg.Poll.ScanInterval)
	}
	if cfg.Poll.SetupRetry < 0 {
		return fmt.Errorf("poll.setup_retry: must be >= 0")
	}

	// ------------------------------------------------------------
	// CONTROLS
	// ------------------------------------------------------------

	if p := cfg.Controls.InitialLimitPower; p < 0 || p > 6553.5 {
		return fmt.Errorf("controls.initial_limit_power: %.1f out of range 0..6553.5", p)
	}

	// ------------------------------------------------------------
	// MQTT (opt-in)
	// ------------------------------------------------------------

	if cfg.MQTT.Enabled {
		u, err := url.Parse(cfg.MQTT.Broker)
		if err != nil || u.Host == "" {
			return fmt.Errorf("mqtt.broker: %q is not a broker URL (e.g. tcp://host:1883)", cfg.MQTT.Broker)
		}
		switch u.Scheme {
		case "tcp", "ssl", "tls", "ws", "wss", "mqtt", "mqtts":
		default:
			return fmt.Errorf("mqtt.broker: unsupported scheme %q", u.Scheme)
		}
		if strings.ContainsAny(cfg.MQTT.TopicPrefix, "+#") {
			return fmt.Errorf("mqtt.topic_prefix: %q must not contain wildcards", cfg.MQTT.TopicPrefix)
		}
		if cfg.MQTT.KeepAlive < 0 {
			return fmt.Errorf("mqtt.keep_alive: must be >= 0")
		}
	}

	// ------------------------------------------------------------
	// HTTP (opt-in)
	// ------------------------------------------------------------

	if cfg.HTTP.Enabled {
		if _, _, err := net.SplitHostPort(cfg.HTTP.Listen); err != nil {
			return fmt.Errorf("http.listen: %q: %v", cfg.HTTP.Listen, err)
		}
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: %q", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format: %q (want json or console)", cfg.Logging.Format)
	}

	return nil
}

// ValidHost accepts an IPv4/IPv6 literal or a dotted hostname made of
// letters, digits and hyphens with no empty labels.
func ValidHost(host string) bool {
	if host == "" {
		return false
	}
	if net.ParseIP(host) != nil {
		return true
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || !hostLabel.MatchString(label) {
			return false
		}
	}
	return true
}
