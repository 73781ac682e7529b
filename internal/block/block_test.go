// internal/block/block_test.go
package block

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tamzrod/saj-modbus/internal/codec"
	pmodbus "github.com/tamzrod/saj-modbus/internal/poller/modbus"
	"github.com/tamzrod/saj-modbus/internal/status"
)

// fakeDevice serves holding registers from a sparse address map.
type fakeDevice struct {
	regs  map[uint16]uint16
	err   error
	calls int
}

func (d *fakeDevice) ReadHoldingRegisters(_ uint8, addr, qty uint16) ([]uint16, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	out := make([]uint16, qty)
	for i := range out {
		out[i] = d.regs[addr+uint16(i)]
	}
	return out, nil
}

func (d *fakeDevice) load(base uint16, words ...uint16) {
	if d.regs == nil {
		d.regs = map[uint16]uint16{}
	}
	for i, w := range words {
		d.regs[base+uint16(i)] = w
	}
}

func identityRegs() []uint16 {
	regs := make([]uint16, IdentityCount)
	regs[0] = 1
	regs[1] = 4
	regs[2] = 1234
	copy(regs[3:13], codec.EncodeASCII("R5S2K4012345", 10))
	copy(regs[13:23], codec.EncodeASCII("PC-0042", 10))
	for i := 23; i < 29; i++ {
		regs[i] = uint16(1000 + i)
	}
	return regs
}

func TestIdentity_Decode(t *testing.T) {
	got, err := Identity.Decode(identityRegs(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 1, got[status.KeyDevType])
	assert.Equal(t, 4, got[status.KeySubType])
	assert.Equal(t, 1.234, got[status.KeyCommVer])
	assert.Equal(t, "R5S2K4012345", got[status.KeySerial])
	assert.Equal(t, "PC-0042", got[status.KeyPC])
	assert.Equal(t, 1.023, got[status.KeyDisplayVer])
	assert.Equal(t, 1.028, got[status.KeyPowerHWVer])
	assert.Len(t, got, 11)
}

func TestIdentity_Short(t *testing.T) {
	_, err := Identity.Decode(make([]uint16, 10), zap.NewNop())
	assert.Error(t, err)
}

func r5Regs() []uint16 {
	regs := make([]uint16, R5RealtimeCount)
	regs[0] = 2                         // Normal
	regs[7] = 3521                      // pv1volt 352.1
	regs[8] = 412                       // pv1curr 4.12
	regs[9] = 1450                      // pv1power
	regs[16] = 3805                     // busvolt
	regs[17] = 0xFF9C                   // invtempc -10.0
	regs[18] = 0xFFFE                   // gfci -2
	regs[19] = 1400                     // power
	regs[20] = 0xFFF6                   // qpower -10
	regs[21] = 0xFC18                   // pf -1.000
	regs[22] = 2301                     // l1volt
	regs[23] = 609                      // l1curr
	regs[24] = 5001                     // l1freq
	regs[25] = 0xFFFF                   // l1dci -1
	regs[26] = 1400                     // l1power
	regs[27] = 999                      // l1pf
	regs[40] = 1200                     // iso1
	regs[44] = 523                      // todayenergy 5.23
	regs[45], regs[46] = 0x0001, 0x86A0 // monthenergy 1000.00
	regs[49], regs[50] = 0x0010, 0x0000 // totalenergy 10485.76
	regs[51] = 65                       // todayhour 6.5
	regs[52], regs[53] = 0, 12345       // totalhour 1234.5
	regs[54] = 3                        // errorcount
	copy(regs[55:59], []uint16{2024, 3<<8 | 15, 10<<8 | 30, 45 << 8})
	return regs
}

func TestR5Realtime_Decode(t *testing.T) {
	got, err := R5Realtime.Decode(r5Regs(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 2, got[status.KeyMode])
	assert.Equal(t, "Normal", got[status.KeyModeText])
	assert.Equal(t, "", got[status.KeyFaultMsg])
	assert.Equal(t, 352.1, got["pv1volt"])
	assert.Equal(t, 4.12, got["pv1curr"])
	assert.Equal(t, 1450, got["pv1power"])
	assert.Equal(t, 380.5, got[status.KeyBusVolt])
	assert.Equal(t, -10.0, got[status.KeyTemperature])
	assert.Equal(t, -2, got[status.KeyGFCI])
	assert.Equal(t, 1400, got[status.KeyPower])
	assert.Equal(t, -10, got[status.KeyReactivePower])
	assert.Equal(t, -1.0, got[status.KeyPowerFactor])
	assert.Equal(t, 230.1, got["l1volt"])
	assert.Equal(t, 6.09, got["l1curr"])
	assert.Equal(t, 50.01, got["l1freq"])
	assert.Equal(t, -1, got["l1dci"])
	assert.Equal(t, 0.999, got["l1pf"])
	assert.Equal(t, 1200, got["iso1"])
	assert.Equal(t, 5.23, got[status.KeyTodayEnergy])
	assert.Equal(t, 1000.0, got[status.KeyMonthEnergy])
	assert.Equal(t, 10485.76, got[status.KeyTotalEnergy])
	assert.Equal(t, 6.5, got[status.KeyTodayHour])
	assert.Equal(t, 1234.5, got[status.KeyTotalHour])
	assert.Equal(t, 3, got[status.KeyErrorCount])

	want := time.Date(2024, time.March, 15, 10, 30, 45, 0, time.Local)
	assert.True(t, want.Equal(got[status.KeyDateTime].(time.Time)))
}

func TestR5Realtime_UnknownMode(t *testing.T) {
	regs := r5Regs()
	regs[0] = 42

	got, err := R5Realtime.Decode(regs, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 42, got[status.KeyMode])
	assert.Equal(t, status.UnknownModeText, got[status.KeyModeText])
}

func TestR5Realtime_MalformedClockOmitted(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	regs := r5Regs()
	regs[56] = 13<<8 | 1 // month 13

	got, err := R5Realtime.Decode(regs, zap.New(core))
	require.NoError(t, err)

	_, ok := got[status.KeyDateTime]
	assert.False(t, ok)
	assert.Equal(t, 1400, got[status.KeyPower])
	assert.Equal(t, 1, logs.FilterMessage("inverter clock unreadable").Len())
}

func TestR5Realtime_FaultsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	regs := r5Regs()
	regs[1], regs[2] = 0x0000, 0x0004 // fan error
	regs[5], regs[6] = 0x0000, 0x0008 // meter lost

	got, err := R5Realtime.Decode(regs, zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, "Code 70: Fan Error, Code 22: Meter Lost", got[status.KeyFaultMsg])
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}

func TestR5Realtime_CountersNotFiltered(t *testing.T) {
	regs := r5Regs()
	regs[0] = 0 // not connected / untrusted

	got, err := R5Realtime.Decode(regs, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 5.23, got[status.KeyTodayEnergy])
	assert.False(t, status.Trusted(got))
}

func r6Regs() []uint16 {
	regs := make([]uint16, R6RealtimeCount)
	copy(regs[0:4], []uint16{2025, 6<<8 | 1, 12<<8 | 0, 5 << 8})
	regs[4] = 2                           // Normal
	regs[15] = 7                          // errorcount
	regs[16] = 412                        // invtempc 41.2
	regs[19] = 900                        // iso1
	regs[49] = 2310                       // l1volt
	regs[50] = 0xFF9C                     // l1curr -1.00
	regs[53] = 1000                       // l1power
	regs[55] = 1000                       // l1pf
	regs[60] = 1100                       // l2power
	regs[67] = 0xFF9C                     // l3power -100
	regs[103] = 6200                      // busvolt
	regs[113] = 4000                      // pv1volt
	regs[115] = 2100                      // pv1power
	regs[188] = 80                        // todayhour
	regs[189], regs[190] = 0, 100         // totalhour 10.0
	regs[191], regs[192] = 0, 1234        // todayenergy 12.34
	regs[197], regs[198] = 0x0002, 0x0000 // totalenergy 1310.72
	return regs
}

func TestR6Realtime_Decode(t *testing.T) {
	got, err := R6Realtime.Decode(r6Regs(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 2, got[status.KeyMode])
	assert.Equal(t, "Normal", got[status.KeyModeText])
	assert.Equal(t, 7, got[status.KeyErrorCount])
	assert.Equal(t, 41.2, got[status.KeyTemperature])
	assert.Equal(t, 900, got["iso1"])
	assert.Equal(t, 231.0, got["l1volt"])
	assert.Equal(t, -1.0, got["l1curr"])
	assert.Equal(t, 1.0, got["l1pf"])
	assert.Equal(t, -100, got["l3power"])
	assert.Equal(t, 2000, got[status.KeyPower])
	assert.Equal(t, 620.0, got[status.KeyBusVolt])
	assert.Equal(t, 400.0, got["pv1volt"])
	assert.Equal(t, 2100, got["pv1power"])
	assert.Equal(t, 8.0, got[status.KeyTodayHour])
	assert.Equal(t, 10.0, got[status.KeyTotalHour])
	assert.Equal(t, 12.34, got[status.KeyTodayEnergy])
	assert.Equal(t, 1310.72, got[status.KeyTotalEnergy])

	_, hasQ := got[status.KeyReactivePower]
	assert.False(t, hasQ)

	want := time.Date(2025, time.June, 1, 12, 0, 5, 0, time.Local)
	assert.True(t, want.Equal(got[status.KeyDateTime].(time.Time)))
}

func TestR6Realtime_ModeTable(t *testing.T) {
	for mode, name := range R6Modes {
		regs := r6Regs()
		regs[4] = uint16(mode)

		got, err := R6Realtime.Decode(regs, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, name, got[status.KeyModeText])
	}
}

func TestRealtime_Idempotent(t *testing.T) {
	for _, l := range []Layout{R5Realtime, R6Realtime} {
		regs := r5Regs()
		if l.Name == R6Realtime.Name {
			regs = r6Regs()
		}

		a, err := l.Decode(regs, zap.NewNop())
		require.NoError(t, err)
		b, err := l.Decode(regs, zap.NewNop())
		require.NoError(t, err)

		assert.Equal(t, a, b, l.Name)
	}
}

func TestR6PowerState(t *testing.T) {
	got, err := R6PowerState.Decode([]uint16{1}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, true, got[status.KeyPowerOnOff])

	got, err = R6PowerState.Decode([]uint16{0}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, false, got[status.KeyPowerOnOff])
}

func TestFetch_R6SplitsRequests(t *testing.T) {
	d := &fakeDevice{}
	d.load(R6RealtimeAddress, r6Regs()...)

	got, err := Fetch(d, 1, R6Realtime, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, d.calls)
	assert.Equal(t, "Normal", got[status.KeyModeText])
}

func TestFetch_Identity(t *testing.T) {
	d := &fakeDevice{}
	d.load(IdentityAddress, identityRegs()...)

	got, err := Fetch(d, 1, Identity, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "R5S2K4012345", got[status.KeySerial])
}

func TestFetch_ErrorYieldsEmptyFields(t *testing.T) {
	d := &fakeDevice{err: &pmodbus.LinkError{Op: "read", Err: io.EOF}}

	got, err := Fetch(d, 1, R5Realtime, zap.NewNop())
	require.Error(t, err)
	assert.True(t, pmodbus.IsLink(err))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestVariant(t *testing.T) {
	v, err := ParseVariant("R6")
	require.NoError(t, err)
	assert.Equal(t, R6, v)
	assert.Equal(t, "r6", v.String())
	assert.Equal(t, R6Realtime.Name, v.Realtime().Name)

	ps, ok := v.PowerState()
	assert.True(t, ok)
	assert.Equal(t, R6PowerStateAddress, ps.Reads[0].Address)

	v, err = ParseVariant("r5")
	require.NoError(t, err)
	_, ok = v.PowerState()
	assert.False(t, ok)

	_, err = ParseVariant("r7")
	assert.Error(t, err)
	assert.False(t, Variant(0).Valid())
}
