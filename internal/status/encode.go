// internal/status/encode.go
package status

import (
	"encoding/json"
	"time"
)

// wireSnapshot is the JSON shape served by the HTTP adapter.
type wireSnapshot struct {
	Health    string         `json:"health"`
	At        *time.Time     `json:"at,omitempty"`
	LastError string         `json:"last_error,omitempty"`
	Failures  int            `json:"failures"`
	Fields    map[string]any `json:"fields"`
}

// Encode converts a Snapshot into its JSON document.
// Timestamps are RFC 3339. No IO.
func Encode(s Snapshot) ([]byte, error) {
	w := wireSnapshot{
		Health:    s.Health.String(),
		LastError: s.LastError,
		Failures:  s.Failures,
		Fields:    make(map[string]any, len(s.Fields)),
	}
	if !s.At.IsZero() {
		at := s.At
		w.At = &at
	}

	for k, v := range s.Fields {
		if t, ok := v.(time.Time); ok {
			w.Fields[k] = t.Format(time.RFC3339)
			continue
		}
		w.Fields[k] = v
	}

	return json.Marshal(w)
}
