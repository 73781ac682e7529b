// internal/block/r5.go
package block

import (
	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/status"
)

// R5 realtime block geometry.
const (
	R5RealtimeAddress uint16 = 0x0100
	R5RealtimeCount   uint16 = 60
)

// R5 register offsets inside the realtime block.
const (
	r5OffMode   = 0
	r5OffFaults = 1
	r5OffClock  = 55
)

// R5Modes names the R5 mode codes.
var R5Modes = map[int]string{
	0: status.NotConnectedText,
	1: "Waiting",
	2: "Normal",
	3: "Error",
	4: "Upgrading",
}

var r5Words = []word{
	{key: "pv1volt", off: 7, factor: 0.1, prec: 1},
	{key: "pv1curr", off: 8, factor: 0.01, prec: 2},
	{key: "pv1power", off: 9},
	{key: "pv2volt", off: 10, factor: 0.1, prec: 1},
	{key: "pv2curr", off: 11, factor: 0.01, prec: 2},
	{key: "pv2power", off: 12},
	{key: "pv3volt", off: 13, factor: 0.1, prec: 1},
	{key: "pv3curr", off: 14, factor: 0.01, prec: 2},
	{key: "pv3power", off: 15},

	{key: status.KeyBusVolt, off: 16, factor: 0.1, prec: 1},
	{key: status.KeyTemperature, off: 17, factor: 0.1, prec: 1, signed: true},
	{key: status.KeyGFCI, off: 18, signed: true},
	{key: status.KeyPower, off: 19},
	{key: status.KeyReactivePower, off: 20, signed: true},
	{key: status.KeyPowerFactor, off: 21, factor: 0.001, prec: 3, signed: true},

	{key: "l1volt", off: 22, factor: 0.1, prec: 1},
	{key: "l1curr", off: 23, factor: 0.01, prec: 2},
	{key: "l1freq", off: 24, factor: 0.01, prec: 2},
	{key: "l1dci", off: 25, signed: true},
	{key: "l1power", off: 26},
	{key: "l1pf", off: 27, factor: 0.001, prec: 3, signed: true},

	{key: "l2volt", off: 28, factor: 0.1, prec: 1},
	{key: "l2curr", off: 29, factor: 0.01, prec: 2},
	{key: "l2freq", off: 30, factor: 0.01, prec: 2},
	{key: "l2dci", off: 31, signed: true},
	{key: "l2power", off: 32},
	{key: "l2pf", off: 33, factor: 0.001, prec: 3, signed: true},

	{key: "l3volt", off: 34, factor: 0.1, prec: 1},
	{key: "l3curr", off: 35, factor: 0.01, prec: 2},
	{key: "l3freq", off: 36, factor: 0.01, prec: 2},
	{key: "l3dci", off: 37, signed: true},
	{key: "l3power", off: 38},
	{key: "l3pf", off: 39, factor: 0.001, prec: 3, signed: true},

	{key: "iso1", off: 40},
	{key: "iso2", off: 41},
	{key: "iso3", off: 42},
	{key: "iso4", off: 43},

	{key: status.KeyTodayEnergy, off: 44, factor: 0.01, prec: 2},
	{key: status.KeyTodayHour, off: 51, factor: 0.1, prec: 1},
	{key: status.KeyErrorCount, off: 54},
}

var r5Dwords = []dword{
	{key: status.KeyMonthEnergy, off: 45, factor: 0.01, prec: 2},
	{key: status.KeyYearEnergy, off: 47, factor: 0.01, prec: 2},
	{key: status.KeyTotalEnergy, off: 49, factor: 0.01, prec: 2},
	{key: status.KeyTotalHour, off: 52, factor: 0.1, prec: 1},
}

// R5Realtime is polled every tick on R5 inverters.
var R5Realtime = Layout{
	Name:   "r5-realtime",
	Reads:  []Read{{Address: R5RealtimeAddress, Count: R5RealtimeCount}},
	Decode: decodeR5Realtime,
}

func decodeR5Realtime(regs []uint16, log *zap.Logger) (status.Fields, error) {
	if err := checkLen("r5-realtime", regs, int(R5RealtimeCount)); err != nil {
		return nil, err
	}

	out := make(status.Fields, len(r5Words)+len(r5Dwords)+4)

	mode := int(regs[r5OffMode])
	out[status.KeyMode] = mode
	out[status.KeyModeText] = ModeName(R5Modes, mode)
	out[status.KeyFaultMsg] = decodeFaults(regs, r5OffFaults, log)

	decodeWords(regs, r5Words, out)
	decodeDwords(regs, r5Dwords, out)
	decodeClock(regs, r5OffClock, out, log)

	return out, nil
}
