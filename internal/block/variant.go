// internal/block/variant.go
package block

import (
	"fmt"
	"strings"
)

// Variant selects the register map of an inverter family.
type Variant uint8

const (
	R5 Variant = iota + 1
	R6
)

// ParseVariant accepts "r5" or "r6", case-insensitive.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r5":
		return R5, nil
	case "r6":
		return R6, nil
	default:
		return 0, fmt.Errorf("block: unknown variant %q (want r5 or r6)", s)
	}
}

func (v Variant) String() string {
	switch v {
	case R5:
		return "r5"
	case R6:
		return "r6"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// Valid reports whether v is a known family.
func (v Variant) Valid() bool {
	return v == R5 || v == R6
}

// Realtime returns the layout polled every tick.
func (v Variant) Realtime() Layout {
	if v == R6 {
		return R6Realtime
	}
	return R5Realtime
}

// PowerState returns the on/off layout when the family has one.
func (v Variant) PowerState() (Layout, bool) {
	if v == R6 {
		return R6PowerState, true
	}
	return Layout{}, false
}
