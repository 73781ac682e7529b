// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/block"
	"github.com/tamzrod/saj-modbus/internal/status"
)

// Coordinator owns one inverter link: identity once, realtime per tick,
// write commands in between. Ticks and commands never interleave on the wire.
type Coordinator struct {
	cfg    Config
	client Client
	log    *zap.Logger

	// io is held for a whole tick and for each command.
	io sync.Mutex

	mu        sync.Mutex
	state     State
	identity  status.Fields
	limit     float64
	powerOn   *bool
	last      status.Snapshot
	listeners []listener
	nextID    uint64
	closed    bool

	done      chan struct{}
	closeOnce sync.Once
	refresh   chan struct{}
}

type listener struct {
	id uint64
	fn func(status.Snapshot)
}

// New creates a coordinator with immutable config. No IO.
func New(cfg Config, client Client, log *zap.Logger) (*Coordinator, error) {
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	if !cfg.Variant.Valid() {
		return nil, fmt.Errorf("poller: invalid variant %s", cfg.Variant)
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.InitialLimitPower < 0 || cfg.InitialLimitPower > MaxLimitPower {
		return nil, fmt.Errorf("poller: initial limit power %.1f: %w", cfg.InitialLimitPower, ErrOutOfRange)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Coordinator{
		cfg:     cfg,
		client:  client,
		log:     log.With(zap.String("inverter", cfg.Name), zap.Stringer("variant", cfg.Variant)),
		state:   StateUninitialized,
		limit:   cfg.InitialLimitPower,
		done:    make(chan struct{}),
		refresh: make(chan struct{}, 1),
	}, nil
}

// Setup reads the identity block once. The link is closed afterwards.
// Failure is fatal for this attempt; retrying is the caller's business.
func (c *Coordinator) Setup(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	c.io.Lock()
	ident, err := block.Fetch(c.client, c.cfg.UnitID, block.Identity, c.log)
	c.closeLink()
	c.io.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}
	if len(ident) == 0 {
		return fmt.Errorf("%w: empty identity", ErrSetupFailed)
	}

	c.mu.Lock()
	c.identity = ident
	if c.state == StateUninitialized {
		c.state = StateIdentityFetched
	}
	c.mu.Unlock()

	sn, _ := ident.String(status.KeySerial)
	c.log.Info("inverter identified", zap.String("sn", sn))
	return nil
}

// PollOnce performs exactly one tick and returns the resulting snapshot.
// Read failures never escape: they degrade the snapshot instead.
func (c *Coordinator) PollOnce(ctx context.Context) status.Snapshot {
	if c.isClosed() {
		return c.Snapshot()
	}

	c.io.Lock()
	realtime, err := c.readTick(ctx)
	c.closeLink()
	c.io.Unlock()

	c.mu.Lock()
	if c.closed {
		// In-flight tick finished after Close: discard.
		snap := c.last.Copy()
		c.mu.Unlock()
		return snap
	}

	now := c.cfg.Now()
	var snap status.Snapshot

	if err != nil {
		c.log.Error("realtime read failed, inverter unreachable", zap.Error(err))

		prev := status.Merge(c.identity, c.last.Fields, c.controlFields())
		snap = status.Snapshot{
			Fields:    status.Degrade(prev),
			At:        now,
			Health:    status.HealthError,
			LastError: err.Error(),
			Failures:  c.last.Failures + 1,
		}
		c.state = StateDegraded
	} else {
		if v, ok := realtime[status.KeyPowerOnOff].(bool); ok {
			c.powerOn = &v
		}
		snap = status.Snapshot{
			Fields: status.Merge(c.identity, realtime, c.controlFields()),
			At:     now,
			Health: status.HealthOK,
		}
		c.state = StatePolling
	}

	c.last = snap
	targets := c.snapshotListeners()
	c.mu.Unlock()

	c.publish(targets, snap)
	return snap.Copy()
}

// readTick performs the wire part of a tick. Caller holds c.io.
func (c *Coordinator) readTick(ctx context.Context) (status.Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	needIdentity := len(c.identity) == 0
	c.mu.Unlock()

	// Identity is fetched lazily if Setup was skipped or failed.
	if needIdentity {
		ident, err := block.Fetch(c.client, c.cfg.UnitID, block.Identity, c.log)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.identity = ident
		c.mu.Unlock()
	}

	fields, err := block.Fetch(c.client, c.cfg.UnitID, c.cfg.Variant.Realtime(), c.log)
	if err != nil {
		return nil, err
	}

	layout, ok := c.cfg.Variant.PowerState()
	if !ok {
		return fields, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ps, err := block.Fetch(c.client, c.cfg.UnitID, layout, c.log)
	if err != nil {
		// Keep the last known switch position.
		c.log.Warn("power state read failed", zap.Error(err))
		return fields, nil
	}
	return status.Merge(fields, ps), nil
}

// controlFields projects ControlState. Caller holds c.mu.
func (c *Coordinator) controlFields() status.Fields {
	f := status.Fields{status.KeyLimitPower: c.limit}
	if c.powerOn != nil {
		f[status.KeyPowerOnOff] = *c.powerOn
	}
	return f
}

// Snapshot returns the latest published snapshot.
// A healthy snapshot older than three intervals is reported stale.
func (c *Coordinator) Snapshot() status.Snapshot {
	c.mu.Lock()
	snap := c.last.Copy()
	c.mu.Unlock()

	if snap.Health == status.HealthOK && snap.Stale(c.cfg.Now(), 3*c.cfg.Interval) {
		snap.Health = status.HealthStale
	}
	return snap
}

// State returns the lifecycle position.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Variant returns the configured inverter family.
func (c *Coordinator) Variant() block.Variant {
	return c.cfg.Variant
}

// Close stops ticks and drops the link. Idempotent.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.closed = true
	c.state = StateClosed
	c.listeners = nil
	c.mu.Unlock()

	c.closeOnce.Do(func() { close(c.done) })
	return c.client.Close()
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Coordinator) closeLink() {
	if err := c.client.Close(); err != nil {
		c.log.Debug("link close failed", zap.Error(err))
	}
}
