// internal/status/merge.go
package status

// Carry-over rules. Every input is passed in explicitly; nothing here
// remembers anything between calls.

// Merge overlays groups left to right into a fresh map.
// Later groups win on key collisions.
func Merge(groups ...Fields) Fields {
	n := 0
	for _, g := range groups {
		n += len(g)
	}

	out := make(Fields, n)
	for _, g := range groups {
		for k, v := range g {
			out[k] = v
		}
	}
	return out
}

// Degrade derives the snapshot fields published after a failed tick.
// Every previous field is retained except mode, mode text and power.
func Degrade(prev Fields) Fields {
	out := prev.Clone()
	out[KeyMode] = ModeNotConnected
	out[KeyModeText] = NotConnectedText
	out[KeyPower] = 0
	return out
}

// Trusted reports whether counter fields in f may be shown.
// Only the Waiting and Normal modes qualify.
func Trusted(f Fields) bool {
	mode, ok := f.Int(KeyMode)
	if !ok {
		return false
	}
	return mode == ModeWaiting || mode == ModeNormal
}

// FreezeCounters returns next with every counter replaced by its value in
// prev when next is not trusted. Counters absent from prev are dropped.
func FreezeCounters(prev, next Fields) Fields {
	if Trusted(next) {
		return next
	}

	out := next.Clone()
	for _, k := range CounterKeys {
		if v, ok := prev[k]; ok {
			out[k] = v
		} else {
			delete(out, k)
		}
	}
	return out
}
