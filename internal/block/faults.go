// internal/block/faults.go
package block

import (
	"github.com/tamzrod/saj-modbus/internal/codec"
	"github.com/tamzrod/saj-modbus/internal/status"
)

// FaultTables holds one ordered table per 32-bit fault mask.
// Index 0 is the master DSP group, 1 the slave DSP group, 2 the
// communication/display group.
var FaultTables = [3][]codec.FaultEntry{
	{
		{Mask: 0x80000000, Message: "Code 81: Lost Communication D<->C"},
		{Mask: 0x00100000, Message: "Code 52: Relay Error"},
		{Mask: 0x00080000, Message: "Code 53: Grid Voltage High"},
		{Mask: 0x00040000, Message: "Code 54: Grid Voltage Low"},
		{Mask: 0x00020000, Message: "Code 55: Grid Frequency High"},
		{Mask: 0x00010000, Message: "Code 56: Grid Frequency Low"},
		{Mask: 0x00008000, Message: "Code 57: Grid Lost"},
		{Mask: 0x00004000, Message: "Code 58: Grid Voltage 10min High"},
		{Mask: 0x00002000, Message: "Code 59: DCI Error"},
		{Mask: 0x00001000, Message: "Code 60: Bus Voltage High"},
		{Mask: 0x00000800, Message: "Code 61: Bus Voltage Low"},
		{Mask: 0x00000400, Message: "Code 62: PV Voltage High"},
		{Mask: 0x00000200, Message: "Code 63: PV Current High"},
		{Mask: 0x00000100, Message: "Code 64: ISO Error"},
		{Mask: 0x00000080, Message: "Code 65: GFCI Error"},
		{Mask: 0x00000040, Message: "Code 66: Inverter Temperature High"},
		{Mask: 0x00000020, Message: "Code 67: Inverter Current High"},
		{Mask: 0x00000010, Message: "Code 68: Output Current Sensor Error"},
		{Mask: 0x00000008, Message: "Code 69: Boost Current High"},
		{Mask: 0x00000004, Message: "Code 70: Fan Error"},
		{Mask: 0x00000002, Message: "Code 71: Phase Sequence Error"},
		{Mask: 0x00000001, Message: "Code 72: Master EEPROM Error"},
	},
	{
		{Mask: 0x00080000, Message: "Code 33: Slave Grid Voltage High"},
		{Mask: 0x00040000, Message: "Code 34: Slave Grid Voltage Low"},
		{Mask: 0x00020000, Message: "Code 35: Slave Grid Frequency High"},
		{Mask: 0x00010000, Message: "Code 36: Slave Grid Frequency Low"},
		{Mask: 0x00008000, Message: "Code 37: Slave Grid Lost"},
		{Mask: 0x00004000, Message: "Code 38: Slave DCI Error"},
		{Mask: 0x00002000, Message: "Code 39: Slave Bus Voltage High"},
		{Mask: 0x00001000, Message: "Code 40: Slave ISO Error"},
		{Mask: 0x00000800, Message: "Code 41: Slave GFCI Error"},
		{Mask: 0x00000400, Message: "Code 42: Slave Relay Error"},
		{Mask: 0x00000200, Message: "Code 43: Slave Temperature High"},
		{Mask: 0x00000100, Message: "Code 44: Slave EEPROM Error"},
		{Mask: 0x00000002, Message: "Code 45: Master-Slave Data Mismatch"},
		{Mask: 0x00000001, Message: "Code 46: Lost Communication M<->S"},
	},
	{
		{Mask: 0x00000010, Message: "Code 21: Display EEPROM Error"},
		{Mask: 0x00000008, Message: "Code 22: Meter Lost"},
		{Mask: 0x00000004, Message: "Code 23: Lost Communication C<->M"},
		{Mask: 0x00000002, Message: "Code 24: RTC Error"},
		{Mask: 0x00000001, Message: "Code 25: Communication Board EEPROM Error"},
	},
}

// ModeName looks mode up in table. Unknown codes never fail.
func ModeName(table map[int]string, mode int) string {
	if s, ok := table[mode]; ok {
		return s
	}
	return status.UnknownModeText
}
