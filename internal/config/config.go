// internal/config/config.go
package config

import "time"

// Config is the full daemon configuration.
// Tags: yaml for generate/save, mapstructure for viper.
type Config struct {
	Inverter InverterConfig `yaml:"inverter" mapstructure:"inverter"`
	Poll     PollConfig     `yaml:"poll" mapstructure:"poll"`
	Controls ControlsConfig `yaml:"controls" mapstructure:"controls"`
	MQTT     MQTTConfig     `yaml:"mqtt" mapstructure:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// ---- INVERTER ----

type InverterConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Host        string        `yaml:"host" mapstructure:"host"`
	Port        int           `yaml:"port" mapstructure:"port"`
	UnitID      uint8         `yaml:"unit_id" mapstructure:"unit_id"`
	Variant     string        `yaml:"variant" mapstructure:"variant"` // r5 | r6
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// ---- POLL ----

type PollConfig struct {
	ScanInterval int           `yaml:"scan_interval" mapstructure:"scan_interval"` // seconds, 1..600
	SetupRetry   time.Duration `yaml:"setup_retry" mapstructure:"setup_retry"`
}

// ---- CONTROLS ----

type ControlsConfig struct {
	LimitPowerEnabled bool    `yaml:"limit_power_enabled" mapstructure:"limit_power_enabled"`
	InitialLimitPower float64 `yaml:"initial_limit_power" mapstructure:"initial_limit_power"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Broker      string        `yaml:"broker" mapstructure:"broker"`
	ClientID    string        `yaml:"client_id" mapstructure:"client_id"`
	Username    string        `yaml:"username" mapstructure:"username"`
	Password    string        `yaml:"password" mapstructure:"password"`
	TopicPrefix string        `yaml:"topic_prefix" mapstructure:"topic_prefix"`
	KeepAlive   time.Duration `yaml:"keep_alive" mapstructure:"keep_alive"`
}

// ---- HTTP ----

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug | info | warn | error
	Format string `yaml:"format" mapstructure:"format"` // json | console
}

// ScanInterval returns the poll period as a duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Poll.ScanInterval) * time.Second
}

// ---- DEFAULTS ----

const (
	DefaultName              = "saj"
	DefaultPort              = 502
	DefaultUnitID            = 1
	DefaultVariant           = "r6"
	DefaultScanInterval      = 60
	DefaultInitialLimitPower = 110.0
	DefaultTopicPrefix       = "saj"
	DefaultListen            = ":8080"
)

// Default returns a configuration that passes Validate once Host is set.
func Default() *Config {
	return &Config{
		Inverter: InverterConfig{
			Name:        DefaultName,
			Port:        DefaultPort,
			UnitID:      DefaultUnitID,
			Variant:     DefaultVariant,
			Timeout:     5 * time.Second,
			IdleTimeout: 30 * time.Second,
		},
		Poll: PollConfig{
			ScanInterval: DefaultScanInterval,
			SetupRetry:   30 * time.Second,
		},
		Controls: ControlsConfig{
			LimitPowerEnabled: false,
			InitialLimitPower: DefaultInitialLimitPower,
		},
		MQTT: MQTTConfig{
			Enabled:     false,
			Broker:      "tcp://localhost:1883",
			TopicPrefix: DefaultTopicPrefix,
			KeepAlive:   30 * time.Second,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Listen:  DefaultListen,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
