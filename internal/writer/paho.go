// internal/writer/paho.go
package writer

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/config"
)

// Publisher is the exact broker contract the MQTT writer uses.
// Publishes are retained.
type Publisher interface {
	Publish(topic, payload string) error
	Subscribe(topic string, fn func(payload []byte)) error
	Close()
}

const (
	mqttQoS          byte = 1
	mqttTokenTimeout      = 10 * time.Second
	mqttQuiesceMs         = 250
)

// pahoPublisher is the production Publisher.
type pahoPublisher struct {
	client      paho.Client
	statusTopic string
	log         *zap.Logger

	mu   sync.Mutex
	subs map[string]func(payload []byte)
}

// DialMQTT connects to the broker with an offline last will on statusTopic.
// Subscriptions are replayed after every reconnect.
func DialMQTT(cfg config.MQTTConfig, statusTopic string, log *zap.Logger) (Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &pahoPublisher{
		statusTopic: statusTopic,
		log:         log.With(zap.String("broker", cfg.Broker)),
		subs:        map[string]func([]byte){},
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetPingTimeout(mqttTokenTimeout)
	opts.SetOrderMatters(false) // command handlers publish from inside the callback
	opts.SetWill(statusTopic, Offline, mqttQoS, true)
	opts.SetOnConnectHandler(p.onConnect)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.log.Warn("mqtt connection lost", zap.Error(err))
	})

	p.client = paho.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(mqttTokenTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}

	p.log.Info("mqtt connected")
	return p, nil
}

func (p *pahoPublisher) onConnect(c paho.Client) {
	if token := c.Publish(p.statusTopic, mqttQoS, true, Online); token.Wait() && token.Error() != nil {
		p.log.Warn("availability publish failed", zap.Error(token.Error()))
	}

	p.mu.Lock()
	subs := make(map[string]func([]byte), len(p.subs))
	for t, fn := range p.subs {
		subs[t] = fn
	}
	p.mu.Unlock()

	for topic, fn := range subs {
		if err := p.subscribe(c, topic, fn); err != nil {
			p.log.Warn("resubscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

func (p *pahoPublisher) Publish(topic, payload string) error {
	token := p.client.Publish(topic, mqttQoS, true, payload)
	if !token.WaitTimeout(mqttTokenTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	return token.Error()
}

func (p *pahoPublisher) Subscribe(topic string, fn func(payload []byte)) error {
	p.mu.Lock()
	p.subs[topic] = fn
	p.mu.Unlock()

	return p.subscribe(p.client, topic, fn)
}

func (p *pahoPublisher) subscribe(c paho.Client, topic string, fn func([]byte)) error {
	token := c.Subscribe(topic, mqttQoS, func(_ paho.Client, msg paho.Message) {
		defer msg.Ack()
		fn(msg.Payload())
	})
	if !token.WaitTimeout(mqttTokenTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	return token.Error()
}

// Close publishes offline and disconnects.
func (p *pahoPublisher) Close() {
	if p.client.IsConnected() {
		if err := p.Publish(p.statusTopic, Offline); err != nil {
			p.log.Warn("availability publish failed", zap.Error(err))
		}
	}
	p.client.Disconnect(mqttQuiesceMs)
	p.log.Info("mqtt disconnected")
}
