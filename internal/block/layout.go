// internal/block/layout.go
package block

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/codec"
	pmodbus "github.com/tamzrod/saj-modbus/internal/poller/modbus"
	"github.com/tamzrod/saj-modbus/internal/status"
)

// Read is one logical span of holding registers.
// Spans longer than one request are split by the transport.
type Read struct {
	Address uint16
	Count   uint16
}

// DecodeFunc turns the concatenated registers of a layout into fields.
// It must be pure: same registers, same fields.
type DecodeFunc func(regs []uint16, log *zap.Logger) (status.Fields, error)

// Layout is a fixed register block and its decoder.
type Layout struct {
	Name   string
	Reads  []Read
	Decode DecodeFunc
}

// Size returns the number of registers the decoder receives.
func (l Layout) Size() int {
	n := 0
	for _, r := range l.Reads {
		n += int(r.Count)
	}
	return n
}

// Fetch reads every span of layout and decodes the result.
// Any read error yields empty fields and the transport's classified error.
func Fetch(r pmodbus.Reader, unitID uint8, layout Layout, log *zap.Logger) (status.Fields, error) {
	if log == nil {
		log = zap.NewNop()
	}

	regs := make([]uint16, 0, layout.Size())
	for _, rd := range layout.Reads {
		part, err := pmodbus.ReadBlock(r, unitID, rd.Address, rd.Count)
		if err != nil {
			return status.Fields{}, fmt.Errorf("block %s: %w", layout.Name, err)
		}
		regs = append(regs, part...)
	}

	return layout.Decode(regs, log.With(zap.String("block", layout.Name)))
}

// ---- FIELD TABLES ----

// word describes one single-register field.
// factor 0 means the raw integer is published.
type word struct {
	key    string
	off    int
	factor float64
	prec   int
	signed bool
}

// dword describes one unsigned high/low register pair.
type dword struct {
	key    string
	off    int
	factor float64
	prec   int
}

func decodeWords(regs []uint16, table []word, out status.Fields) {
	for _, w := range table {
		r := regs[w.off]
		switch {
		case w.factor == 0 && w.signed:
			out[w.key] = codec.ToSigned16(r)
		case w.factor == 0:
			out[w.key] = int(r)
		case w.signed:
			out[w.key] = codec.ScaleS16(r, w.factor, w.prec)
		default:
			out[w.key] = codec.ScaleU16(r, w.factor, w.prec)
		}
	}
}

func decodeDwords(regs []uint16, table []dword, out status.Fields) {
	for _, d := range table {
		v := codec.Pair32(regs[d.off], regs[d.off+1])
		if d.factor == 0 {
			out[d.key] = v
			continue
		}
		out[d.key] = codec.Scale(float64(v), d.factor, d.prec)
	}
}

// decodeFaults joins the three fault groups starting at off and logs
// them when present.
func decodeFaults(regs []uint16, off int, log *zap.Logger) string {
	groups := make([][]string, len(FaultTables))
	for i, table := range FaultTables {
		mask := codec.Pair32(regs[off+2*i], regs[off+2*i+1])
		groups[i] = codec.DecodeFaultMask(mask, table)
	}

	msg := codec.JoinFaults(groups...)
	if msg != "" {
		log.Error("inverter fault", zap.String("faults", msg))
	}
	return msg
}

// decodeClock stores the packed timestamp at off, or omits the field.
func decodeClock(regs []uint16, off int, out status.Fields, log *zap.Logger) {
	t, err := codec.PackedDate(regs[off:off+4], time.Local)
	if err != nil {
		log.Warn("inverter clock unreadable", zap.Error(err))
		return
	}
	out[status.KeyDateTime] = t
}

func checkLen(name string, regs []uint16, want int) error {
	if len(regs) < want {
		return fmt.Errorf("block %s: got %d registers, want %d", name, len(regs), want)
	}
	return nil
}
