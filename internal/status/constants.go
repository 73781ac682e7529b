// internal/status/constants.go
package status

// Snapshot vocabulary shared by the decoders, the coordinator and every sink.
// Keys are published verbatim and MUST stay stable.

// ---- HEALTH CODES ----

// Health is the coordinator's view of the link, independent of device mode.
type Health uint16

// HealthUnknown represents the boot state before the first tick.
const HealthUnknown Health = 0

// HealthOK represents a successful last tick.
const HealthOK Health = 1

// HealthError represents a failed last tick (snapshot degraded).
const HealthError Health = 2

// HealthStale represents a snapshot older than the freshness window.
const HealthStale Health = 3

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	default:
		return "unknown"
	}
}

// ---- DEVICE MODES ----

// ModeNotConnected is forced into a degraded snapshot.
const ModeNotConnected = 0

// ModeWaiting and ModeNormal are the only modes in which counters are trusted.
const (
	ModeWaiting = 1
	ModeNormal  = 2
)

// NotConnectedText is the mpvstatus published with ModeNotConnected.
const NotConnectedText = "Not Connected"

// UnknownModeText is published for mode codes missing from a status table.
const UnknownModeText = "Unknown"

// ---- FIELD KEYS ----

const (
	KeyDevType       = "devtype"
	KeySubType       = "subtype"
	KeyCommVer       = "commver"
	KeySerial        = "sn"
	KeyPC            = "pc"
	KeyDisplayVer    = "dv"
	KeyMasterVer     = "mcv"
	KeySlaveVer      = "scv"
	KeyDisplayHWVer  = "disphwversion"
	KeyControlHWVer  = "ctrlhwversion"
	KeyPowerHWVer    = "powerhwversion"
	KeyMode          = "mpvmode"
	KeyModeText      = "mpvstatus"
	KeyFaultMsg      = "faultmsg"
	KeyPower         = "power"
	KeyReactivePower = "qpower"
	KeyPowerFactor   = "pf"
	KeyBusVolt       = "busvolt"
	KeyTemperature   = "invtempc"
	KeyGFCI          = "gfci"
	KeyTodayEnergy   = "todayenergy"
	KeyMonthEnergy   = "monthenergy"
	KeyYearEnergy    = "yearenergy"
	KeyTotalEnergy   = "totalenergy"
	KeyTodayHour     = "todayhour"
	KeyTotalHour     = "totalhour"
	KeyErrorCount    = "errorcount"
	KeyDateTime      = "datetime"
	KeyLimitPower    = "limitpower"
	KeyPowerOnOff    = "poweronoff"
)

// CounterKeys are the accumulating fields that are only meaningful while
// the inverter reports a trusted mode.
var CounterKeys = []string{
	KeyTodayEnergy,
	KeyMonthEnergy,
	KeyYearEnergy,
	KeyTotalEnergy,
	KeyTodayHour,
	KeyTotalHour,
}

