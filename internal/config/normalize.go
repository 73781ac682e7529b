// internal/config/normalize.go
package config

import "strings"

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Inverter.Name = strings.TrimSpace(cfg.Inverter.Name)
	cfg.Inverter.Host = strings.TrimSpace(cfg.Inverter.Host)
	cfg.Inverter.Variant = strings.ToLower(strings.TrimSpace(cfg.Inverter.Variant))

	// Unit id 0 is broadcast; the inverter answers on 1.
	if cfg.Inverter.UnitID == 0 {
		cfg.Inverter.UnitID = DefaultUnitID
	}

	cfg.MQTT.TopicPrefix = strings.Trim(cfg.MQTT.TopicPrefix, "/")
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "sajmodbus-" + cfg.Inverter.Name
	}

	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
