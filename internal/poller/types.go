// internal/poller/types.go
package poller

import (
	"errors"
	"time"

	"github.com/tamzrod/saj-modbus/internal/block"
	pmodbus "github.com/tamzrod/saj-modbus/internal/poller/modbus"
)

// Client abstracts the transport operations the coordinator needs.
// Close drops the link; the next request reopens it.
type Client interface {
	pmodbus.Reader
	pmodbus.Writer
	Close() error
}

// Config is the minimal runtime config the coordinator needs.
type Config struct {
	Name     string
	UnitID   uint8
	Variant  block.Variant
	Interval time.Duration

	// InitialLimitPower seeds the published limitpower until a write is confirmed.
	InitialLimitPower float64

	// LimiterEnabled gates SetLimitPower. Nil means disabled.
	LimiterEnabled func() bool

	// Now is the clock used for snapshot timestamps and SetClock. Nil means time.Now.
	Now func() time.Time
}

// ---- CONTROL REGISTERS ----

const (
	LimitPowerAddress uint16 = 0x801F
	ClockAddress      uint16 = 0x8020
	PowerOnOffAddress        = block.R6PowerStateAddress
)

// MaxLimitPower is the largest limit representable as watts*10 in one register.
const MaxLimitPower = 6553.5

// ---- STATE ----

// State is the coordinator lifecycle position.
type State int

const (
	StateUninitialized State = iota
	StateIdentityFetched
	StatePolling
	StateDegraded
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdentityFetched:
		return "identity-fetched"
	case StatePolling:
		return "polling"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// ---- ERRORS ----

var (
	// ErrSetupFailed is returned by Setup when identity cannot be read.
	ErrSetupFailed = errors.New("poller: setup failed")

	// ErrControlDisabled is returned when the power limiter is switched off.
	ErrControlDisabled = errors.New("poller: control disabled")

	// ErrUnsupported is returned for commands the variant does not offer.
	ErrUnsupported = errors.New("poller: unsupported by variant")

	// ErrOutOfRange is returned for command values the register cannot hold.
	ErrOutOfRange = errors.New("poller: value out of range")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("poller: closed")
)
