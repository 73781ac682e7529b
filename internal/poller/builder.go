// internal/poller/builder.go
package poller

import (
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/block"
	"github.com/tamzrod/saj-modbus/internal/config"
	pmodbus "github.com/tamzrod/saj-modbus/internal/poller/modbus"
)

// Build constructs a Coordinator over a goburrow TCP transport.
// No IO: the link is opened by the first request.
// cfg must already be validated and normalized.
func Build(cfg *config.Config, log *zap.Logger) (*Coordinator, error) {
	variant, err := block.ParseVariant(cfg.Inverter.Variant)
	if err != nil {
		return nil, err
	}

	client, err := pmodbus.New(pmodbus.Config{
		Address:     net.JoinHostPort(cfg.Inverter.Host, strconv.Itoa(cfg.Inverter.Port)),
		Timeout:     cfg.Inverter.Timeout,
		IdleTimeout: cfg.Inverter.IdleTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("poller build: %w", err)
	}

	limiter := cfg.Controls.LimitPowerEnabled

	c, err := New(
		Config{
			Name:              cfg.Inverter.Name,
			UnitID:            cfg.Inverter.UnitID,
			Variant:           variant,
			Interval:          cfg.ScanInterval(),
			InitialLimitPower: cfg.Controls.InitialLimitPower,
			LimiterEnabled:    func() bool { return limiter },
		},
		client,
		log,
	)
	if err != nil {
		return nil, err
	}

	c.log.Debug("modbus transport configured", zap.String("address", client.Address()))
	return c, nil
}
