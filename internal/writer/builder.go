// internal/writer/builder.go
package writer

import (
	"errors"

	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/config"
)

// BuildMQTT dials the broker and returns a writer for the configured inverter.
// Assumes config has already passed validation and normalization.
func BuildMQTT(cfg *config.Config, log *zap.Logger) (*MQTTWriter, error) {
	if !cfg.MQTT.Enabled {
		return nil, errors.New("writer: mqtt disabled")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("inverter", cfg.Inverter.Name))

	base := BaseTopic(cfg.MQTT.TopicPrefix, cfg.Inverter.Name)
	pub, err := DialMQTT(cfg.MQTT, base+"/"+StatusTopic, log)
	if err != nil {
		return nil, err
	}

	return NewMQTTWriter(pub, cfg.MQTT.TopicPrefix, cfg.Inverter.Name, log), nil
}
