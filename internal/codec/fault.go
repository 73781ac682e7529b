// internal/codec/fault.go
package codec

import "strings"

// MaxFaultText is the display bound for joined fault messages.
const MaxFaultText = 254

// FaultEntry maps one fault bit pattern to its message.
type FaultEntry struct {
	Mask    uint32
	Message string
}

// DecodeFaultMask returns the messages whose pattern intersects mask,
// in table order. A zero mask yields nil.
func DecodeFaultMask(mask uint32, table []FaultEntry) []string {
	if mask == 0 {
		return nil
	}

	var out []string
	for _, e := range table {
		if mask&e.Mask != 0 {
			out = append(out, e.Message)
		}
	}
	return out
}

// JoinFaults concatenates the decoded messages of every group and
// truncates the result to MaxFaultText characters.
func JoinFaults(groups ...[]string) string {
	var all []string
	for _, g := range groups {
		all = append(all, g...)
	}

	s := strings.TrimSpace(strings.Join(all, ", "))
	if len(s) > MaxFaultText {
		s = s[:MaxFaultText]
	}
	return s
}
