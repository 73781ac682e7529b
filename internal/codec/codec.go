// internal/codec/codec.go
package codec

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Pure register transforms. No IO. No state.

// ErrMalformedTimestamp is returned when packed date words do not form a
// valid calendar date/time.
var ErrMalformedTimestamp = errors.New("codec: malformed timestamp")

// ToSigned16 reinterprets a register as a two's-complement 16-bit value.
func ToSigned16(w uint16) int {
	if w >= 0x8000 {
		return int(w) - 0x10000
	}
	return int(w)
}

// Scale multiplies v by factor and rounds to precision fractional digits.
// Precision is per field and stable across polls.
func Scale(v float64, factor float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*factor*p) / p
}

// ScaleU16 scales an unsigned register.
func ScaleU16(w uint16, factor float64, precision int) float64 {
	return Scale(float64(w), factor, precision)
}

// ScaleS16 scales a register after signed conversion.
func ScaleS16(w uint16, factor float64, precision int) float64 {
	return Scale(float64(ToSigned16(w)), factor, precision)
}

// Pair32 composes two registers (high word first) into an unsigned 32-bit value.
func Pair32(hi, lo uint16) uint32 {
	return uint32(hi)<<16 | uint32(lo)
}

// PackedASCII unpacks two ASCII characters per register (high byte first)
// and trims trailing NULs.
func PackedASCII(words []uint16) string {
	b := make([]byte, 0, len(words)*2)
	for _, w := range words {
		b = append(b, byte(w>>8), byte(w))
	}
	return strings.TrimRight(string(b), "\x00")
}

// EncodeASCII packs s into exactly n registers, NUL padded.
// Characters beyond 2*n are dropped.
func EncodeASCII(s string, n int) []uint16 {
	out := make([]uint16, n)
	b := []byte(s)
	for i := 0; i < n*2 && i < len(b); i += 2 {
		var hi, lo byte
		hi = b[i]
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}
	return out
}

// PackedDate decodes the inverter clock layout:
//
//	words[0] year
//	words[1] month<<8 | day
//	words[2] hour<<8 | minute
//	words[3] second<<8
//
// The result is expressed in loc (time.Local when nil).
func PackedDate(words []uint16, loc *time.Location) (time.Time, error) {
	if len(words) < 4 {
		return time.Time{}, fmt.Errorf("%w: need 4 registers, got %d", ErrMalformedTimestamp, len(words))
	}
	if loc == nil {
		loc = time.Local
	}

	year := int(words[0])
	month := int(words[1] >> 8)
	day := int(words[1] & 0xFF)
	hour := int(words[2] >> 8)
	minute := int(words[2] & 0xFF)
	second := int(words[3] >> 8)

	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d %02d:%02d:%02d",
			ErrMalformedTimestamp, year, month, day, hour, minute, second)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)

	// time.Date normalizes Feb 30 into March and shifts wall times that fall
	// in a DST gap; reject both instead.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d does not exist",
			ErrMalformedTimestamp, year, month, day)
	}
	if t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d %02d:%02d:%02d does not exist in %s",
			ErrMalformedTimestamp, year, month, day, hour, minute, second, loc)
	}
	return t, nil
}

// EncodeDate packs t's wall clock fields into the 4-register layout used by
// PackedDate. Callers convert t to the device zone first.
func EncodeDate(t time.Time) []uint16 {
	return []uint16{
		uint16(t.Year()),
		uint16(t.Month())<<8 | uint16(t.Day()),
		uint16(t.Hour())<<8 | uint16(t.Minute()),
		uint16(t.Second()) << 8,
	}
}
