// internal/writer/commands.go
package writer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Command subtopics under <prefix>/<name>.
const (
	SetLimitPowerTopic = "set/limitpower"
	SetPowerOnOffTopic = "set/poweronoff"
	SetDateTimeTopic   = "set/datetime"
)

// BindCommands subscribes the command topics and forwards them to cmd.
// A failed command requests a refresh so the published state re-converges.
func (w *MQTTWriter) BindCommands(cmd Commander, timeout time.Duration) error {
	handlers := map[string]func(ctx context.Context, payload string) error{
		SetLimitPowerTopic: func(ctx context.Context, payload string) error {
			watts, err := strconv.ParseFloat(payload, 64)
			if err != nil {
				return fmt.Errorf("%w: %q", ErrBadPayload, payload)
			}
			return cmd.SetLimitPower(ctx, watts)
		},
		SetPowerOnOffTopic: func(ctx context.Context, payload string) error {
			on, err := ParseSwitch(payload)
			if err != nil {
				return err
			}
			return cmd.SetPowerOnOff(ctx, on)
		},
		SetDateTimeTopic: func(ctx context.Context, payload string) error {
			t, err := ParseDateTime(payload)
			if err != nil {
				return err
			}
			return cmd.SetClock(ctx, t)
		},
	}

	for sub, h := range handlers {
		h := h // per-iteration copy; go directive is 1.21 (pre-loopvar semantics)
		topic := w.Topic(sub)
		log := w.log.With(zap.String("topic", topic))

		err := w.pub.Subscribe(topic, func(raw []byte) {
			payload := strings.TrimSpace(string(raw))

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := h(ctx, payload); err != nil {
				log.Error("command failed", zap.String("payload", payload), zap.Error(err))
				cmd.RequestRefresh()
				return
			}
			log.Info("command applied", zap.String("payload", payload))
		})
		if err != nil {
			return fmt.Errorf("mqtt writer: %w", err)
		}
	}
	return nil
}

// ErrBadPayload reports a command payload that could not be parsed.
var ErrBadPayload = errors.New("invalid payload")

// ParseSwitch accepts ON/OFF, true/false and 1/0 in any case.
func ParseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrBadPayload, s)
	}
}

// ParseDateTime accepts RFC 3339. Empty or "now" yields the zero time,
// which the coordinator replaces with the current time.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "now") {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadPayload, s)
	}
	return t, nil
}
