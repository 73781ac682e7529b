// internal/status/snapshot.go
package status

import (
	"time"
)

// Fields maps a stable field key to a decoded value.
// Values are one of: int, uint32, float64, string, bool, time.Time.
type Fields map[string]any

// Clone returns a shallow copy. Values are immutable scalars.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Int returns an integer-valued field.
func (f Fields) Int(key string) (int, bool) {
	switch v := f[key].(type) {
	case int:
		return v, true
	case uint32:
		return int(v), true
	default:
		return 0, false
	}
}

// Float returns any numeric field as float64. Bools map to 0/1.
func (f Fields) Float(key string) (float64, bool) {
	return Numeric(f[key])
}

// String returns a string-valued field.
func (f Fields) String(key string) (string, bool) {
	s, ok := f[key].(string)
	return s, ok
}

// Numeric converts a field value to float64 when it has a numeric meaning.
func Numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case uint32:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Snapshot is the published projection of one tick.
// Once handed to a consumer it is never mutated; Fields is a private copy.
type Snapshot struct {
	Fields    Fields
	At        time.Time
	Health    Health
	LastError string
	Failures  int
}

// Copy returns a snapshot whose field map is independent of s.
func (s Snapshot) Copy() Snapshot {
	s.Fields = s.Fields.Clone()
	return s
}

// Stale reports whether the snapshot is older than maxAge at now.
// A zero snapshot is never stale; it is unknown.
func (s Snapshot) Stale(now time.Time, maxAge time.Duration) bool {
	if s.At.IsZero() || maxAge <= 0 {
		return false
	}
	return now.Sub(s.At) > maxAge
}
