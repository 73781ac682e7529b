// internal/block/r6.go
package block

import (
	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/status"
)

// R6 realtime block geometry. One logical block, two requests.
const (
	R6RealtimeAddress uint16 = 0x4000
	R6RealtimeCount   uint16 = 246
)

// R6 power switch register. Also the write target for on/off.
const (
	R6PowerStateAddress uint16 = 0x1037
	R6PowerStateCount   uint16 = 1
)

// R6 register offsets inside the realtime block.
const (
	r6OffClock  = 0
	r6OffMode   = 4
	r6OffFaults = 5
)

// R6Modes names the R6 mode codes.
var R6Modes = map[int]string{
	0: "Initialize",
	1: "Waiting",
	2: "Normal",
	3: "Off-Grid",
	4: "Grid with Load",
	5: "Fault",
	6: "Upgrading",
	7: "Debug",
	8: "Auto-Check",
	9: "Reset",
}

var r6Words = []word{
	{key: status.KeyErrorCount, off: 15},
	{key: status.KeyTemperature, off: 16, factor: 0.1, prec: 1, signed: true},
	{key: status.KeyGFCI, off: 18, signed: true},

	{key: "iso1", off: 19},
	{key: "iso2", off: 20},
	{key: "iso3", off: 21},
	{key: "iso4", off: 22},

	{key: "l1volt", off: 49, factor: 0.1, prec: 1},
	{key: "l1curr", off: 50, factor: 0.01, prec: 2, signed: true},
	{key: "l1freq", off: 51, factor: 0.01, prec: 2},
	{key: "l1dci", off: 52, signed: true},
	{key: "l1power", off: 53, signed: true},
	{key: "l1pf", off: 55, factor: 0.001, prec: 3, signed: true},

	{key: "l2volt", off: 56, factor: 0.1, prec: 1},
	{key: "l2curr", off: 57, factor: 0.01, prec: 2, signed: true},
	{key: "l2freq", off: 58, factor: 0.01, prec: 2},
	{key: "l2dci", off: 59, signed: true},
	{key: "l2power", off: 60, signed: true},
	{key: "l2pf", off: 62, factor: 0.001, prec: 3, signed: true},

	{key: "l3volt", off: 63, factor: 0.1, prec: 1},
	{key: "l3curr", off: 64, factor: 0.01, prec: 2, signed: true},
	{key: "l3freq", off: 65, factor: 0.01, prec: 2},
	{key: "l3dci", off: 66, signed: true},
	{key: "l3power", off: 67, signed: true},
	{key: "l3pf", off: 69, factor: 0.001, prec: 3, signed: true},

	{key: status.KeyBusVolt, off: 103, factor: 0.1, prec: 1},

	{key: "pv1volt", off: 113, factor: 0.1, prec: 1},
	{key: "pv1curr", off: 114, factor: 0.01, prec: 2},
	{key: "pv1power", off: 115},
	{key: "pv2volt", off: 116, factor: 0.1, prec: 1},
	{key: "pv2curr", off: 117, factor: 0.01, prec: 2},
	{key: "pv2power", off: 118},
	{key: "pv3volt", off: 119, factor: 0.1, prec: 1},
	{key: "pv3curr", off: 120, factor: 0.01, prec: 2},
	{key: "pv3power", off: 121},

	{key: status.KeyTodayHour, off: 188, factor: 0.1, prec: 1},
}

var r6Dwords = []dword{
	{key: status.KeyTotalHour, off: 189, factor: 0.1, prec: 1},
	{key: status.KeyTodayEnergy, off: 191, factor: 0.01, prec: 2},
	{key: status.KeyMonthEnergy, off: 193, factor: 0.01, prec: 2},
	{key: status.KeyYearEnergy, off: 195, factor: 0.01, prec: 2},
	{key: status.KeyTotalEnergy, off: 197, factor: 0.01, prec: 2},
}

// R6Realtime is polled every tick on R6 inverters.
var R6Realtime = Layout{
	Name:   "r6-realtime",
	Reads:  []Read{{Address: R6RealtimeAddress, Count: R6RealtimeCount}},
	Decode: decodeR6Realtime,
}

// R6PowerState reads the on/off switch.
var R6PowerState = Layout{
	Name:   "r6-powerstate",
	Reads:  []Read{{Address: R6PowerStateAddress, Count: R6PowerStateCount}},
	Decode: decodeR6PowerState,
}

func decodeR6Realtime(regs []uint16, log *zap.Logger) (status.Fields, error) {
	if err := checkLen("r6-realtime", regs, int(R6RealtimeCount)); err != nil {
		return nil, err
	}

	out := make(status.Fields, len(r6Words)+len(r6Dwords)+5)

	mode := int(regs[r6OffMode])
	out[status.KeyMode] = mode
	out[status.KeyModeText] = ModeName(R6Modes, mode)
	out[status.KeyFaultMsg] = decodeFaults(regs, r6OffFaults, log)

	decodeWords(regs, r6Words, out)
	decodeDwords(regs, r6Dwords, out)
	decodeClock(regs, r6OffClock, out, log)

	// No total active power register on R6; sum the phases.
	total := 0
	for _, k := range []string{"l1power", "l2power", "l3power"} {
		p, _ := out.Int(k)
		total += p
	}
	out[status.KeyPower] = total

	return out, nil
}

func decodeR6PowerState(regs []uint16, _ *zap.Logger) (status.Fields, error) {
	if err := checkLen("r6-powerstate", regs, int(R6PowerStateCount)); err != nil {
		return nil, err
	}
	return status.Fields{status.KeyPowerOnOff: regs[0] != 0}, nil
}
