// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/status"
)

// Availability payloads on <prefix>/<name>/status.
const (
	Online  = "online"
	Offline = "offline"
)

// EmptyPayload stands in for an empty string value. An empty retained
// payload would clear the topic instead of storing it.
const EmptyPayload = "none"

// Reserved subtopics next to the field topics.
const (
	StatusTopic = "status"
	HealthTopic = "health"
)

// MQTTWriter projects snapshots onto retained per-field topics.
type MQTTWriter struct {
	pub  Publisher
	base string
	log  *zap.Logger

	mu       sync.Mutex
	needFull bool
	last     map[string]string
	fields   status.Fields // last written fields, counters frozen
}

// NewMQTTWriter builds a writer publishing under <prefix>/<name>.
func NewMQTTWriter(pub Publisher, prefix, name string, log *zap.Logger) *MQTTWriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &MQTTWriter{
		pub:      pub,
		base:     BaseTopic(prefix, name),
		log:      log,
		needFull: true, // full re-assert on first write
		last:     map[string]string{},
	}
}

// BaseTopic joins prefix and name, skipping an empty prefix.
func BaseTopic(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Topic returns the full topic for a subtopic.
func (w *MQTTWriter) Topic(sub string) string {
	return w.base + "/" + sub
}

// WriteStatus delivers a snapshot. On any publish failure the next call
// re-asserts every topic.
func (w *MQTTWriter) WriteStatus(s status.Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s.Fields = status.FreezeCounters(w.fields, s.Fields)
	w.fields = s.Fields

	payloads := Payloads(s)
	keys := make([]string, 0, len(payloads))
	for k := range payloads {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	full := w.needFull
	var errs []string

	for _, k := range keys {
		p := payloads[k]
		if !full {
			if prev, ok := w.last[k]; ok && prev == p {
				continue
			}
		}
		if err := w.pub.Publish(w.Topic(k), p); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", k, err))
			continue
		}
		w.last[k] = p
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next write.
		w.needFull = true
		return errors.New("mqtt writer: " + strings.Join(errs, " | "))
	}

	w.needFull = false
	return nil
}

// Close marks the inverter offline and disconnects.
func (w *MQTTWriter) Close() {
	w.pub.Close()
}

// Payloads renders the publishable subset of a snapshot. Counter trust is
// applied by the caller through status.FreezeCounters.
func Payloads(s status.Snapshot) map[string]string {
	out := make(map[string]string, len(s.Fields)+1)
	for k, v := range s.Fields {
		p, ok := FormatValue(v)
		if !ok {
			continue
		}
		if p == "" {
			p = EmptyPayload
		}
		out[k] = p
	}
	out[HealthTopic] = s.Health.String()
	return out
}

// FormatValue renders one field value as an MQTT payload.
func FormatValue(v any) (string, bool) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), true
	case uint32:
		return strconv.FormatUint(uint64(n), 10), true
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case string:
		return n, true
	case bool:
		if n {
			return "ON", true
		}
		return "OFF", true
	case time.Time:
		return n.Format(time.RFC3339), true
	default:
		return "", false
	}
}
