// internal/poller/control.go
package poller

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/codec"
	pmodbus "github.com/tamzrod/saj-modbus/internal/poller/modbus"
	"github.com/tamzrod/saj-modbus/internal/status"
)

// SetLimitPower writes the export limit in watts.
// Disabled limiter: nothing is written. Failed write: nothing changes.
// Success: limitpower is updated and republished immediately.
func (c *Coordinator) SetLimitPower(ctx context.Context, watts float64) error {
	if c.isClosed() {
		return ErrClosed
	}
	if c.cfg.LimiterEnabled == nil || !c.cfg.LimiterEnabled() {
		return ErrControlDisabled
	}
	if math.IsNaN(watts) || watts < 0 || watts > MaxLimitPower {
		return fmt.Errorf("limit power %.1f W: %w", watts, ErrOutOfRange)
	}

	raw := uint16(int(watts * 10))
	if err := c.write(ctx, LimitPowerAddress, []uint16{raw}); err != nil {
		return fmt.Errorf("set limit power: %w", err)
	}

	c.log.Info("limit power set", zap.Float64("watts", watts))

	c.mu.Lock()
	c.limit = watts
	c.mu.Unlock()

	c.republish(status.KeyLimitPower, watts)
	return nil
}

// SetPowerOnOff switches the inverter output. R6 only.
func (c *Coordinator) SetPowerOnOff(ctx context.Context, on bool) error {
	if c.isClosed() {
		return ErrClosed
	}
	if _, ok := c.cfg.Variant.PowerState(); !ok {
		return fmt.Errorf("power on/off on %s: %w", c.cfg.Variant, ErrUnsupported)
	}

	var v uint16
	if on {
		v = 1
	}
	if err := c.write(ctx, PowerOnOffAddress, []uint16{v}); err != nil {
		return fmt.Errorf("set power on/off: %w", err)
	}

	c.log.Info("power switched", zap.Bool("on", on))

	c.mu.Lock()
	c.powerOn = &on
	c.mu.Unlock()

	c.republish(status.KeyPowerOnOff, on)
	return nil
}

// SetClock writes t (now when zero) to the inverter clock.
// The device keeps local wall time, the zone its clock is decoded in, so t
// is converted to time.Local before encoding.
// The published datetime is refreshed by the next tick, not here.
func (c *Coordinator) SetClock(ctx context.Context, t time.Time) error {
	if c.isClosed() {
		return ErrClosed
	}
	if t.IsZero() {
		t = c.cfg.Now()
	}
	t = t.In(time.Local)
	if t.Year() < 0 || t.Year() > 0xFFFF {
		return fmt.Errorf("clock year %d: %w", t.Year(), ErrOutOfRange)
	}

	if err := c.write(ctx, ClockAddress, codec.EncodeDate(t)); err != nil {
		return fmt.Errorf("set clock: %w", err)
	}

	c.log.Info("clock set", zap.Time("datetime", t))
	return nil
}

// RequestRefresh asks Run for an out-of-schedule tick. Never blocks.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// write performs one command under the tick lock and drops the link after.
func (c *Coordinator) write(ctx context.Context, addr uint16, regs []uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.io.Lock()
	defer c.io.Unlock()

	err := c.client.WriteRegisters(c.cfg.UnitID, addr, regs)
	c.closeLink()
	if err != nil {
		fields := []zap.Field{zap.Uint16("address", addr), zap.Error(err)}
		if code, ok := pmodbus.ExceptionCode(err); ok {
			fields = append(fields, zap.Uint8("exception", code))
		}
		c.log.Error("register write failed", fields...)
	}
	return err
}

// republish pushes the last snapshot with one control field replaced.
func (c *Coordinator) republish(key string, value any) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	snap := c.last.Copy()
	snap.Fields[key] = value
	c.last = snap
	targets := c.snapshotListeners()
	c.mu.Unlock()

	c.publish(targets, snap)
}
