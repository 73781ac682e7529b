// internal/config/load.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. SAJMODBUS_INVERTER_HOST.
const EnvPrefix = "SAJMODBUS"

// Load reads path (YAML) over Default() and applies environment overrides.
// An empty path loads defaults and environment only.
// It does not validate.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if errors.As(err, &nf) || errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config: %s not found", path)
			}
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so that env overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("inverter.name", d.Inverter.Name)
	v.SetDefault("inverter.host", d.Inverter.Host)
	v.SetDefault("inverter.port", d.Inverter.Port)
	v.SetDefault("inverter.unit_id", d.Inverter.UnitID)
	v.SetDefault("inverter.variant", d.Inverter.Variant)
	v.SetDefault("inverter.timeout", d.Inverter.Timeout)
	v.SetDefault("inverter.idle_timeout", d.Inverter.IdleTimeout)

	v.SetDefault("poll.scan_interval", d.Poll.ScanInterval)
	v.SetDefault("poll.setup_retry", d.Poll.SetupRetry)

	v.SetDefault("controls.limit_power_enabled", d.Controls.LimitPowerEnabled)
	v.SetDefault("controls.initial_limit_power", d.Controls.InitialLimitPower)

	v.SetDefault("mqtt.enabled", d.MQTT.Enabled)
	v.SetDefault("mqtt.broker", d.MQTT.Broker)
	v.SetDefault("mqtt.client_id", d.MQTT.ClientID)
	v.SetDefault("mqtt.username", d.MQTT.Username)
	v.SetDefault("mqtt.password", d.MQTT.Password)
	v.SetDefault("mqtt.topic_prefix", d.MQTT.TopicPrefix)
	v.SetDefault("mqtt.keep_alive", d.MQTT.KeepAlive)

	v.SetDefault("http.enabled", d.HTTP.Enabled)
	v.SetDefault("http.listen", d.HTTP.Listen)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	return b, nil
}

// Save writes cfg as YAML to path.
func Save(cfg *Config, path string) error {
	b, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
