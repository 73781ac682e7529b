// cmd/sajmodbus/run.go
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/saj-modbus/internal/config"
	"github.com/tamzrod/saj-modbus/internal/httpapi"
	"github.com/tamzrod/saj-modbus/internal/poller"
	"github.com/tamzrod/saj-modbus/internal/writer"
)

// commandTimeout bounds one-shot CLI commands.
const commandTimeout = 30 * time.Second

// runDaemon wires coordinator, sinks and HTTP, and blocks until ctx ends.
func runDaemon(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	coord, err := poller.Build(cfg, log)
	if err != nil {
		return err
	}
	defer coord.Close()

	// --------------------
	// Identity (retried until the inverter wakes up)
	// --------------------

	if err := setupWithRetry(ctx, coord, cfg.Poll.SetupRetry, log); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	// --------------------
	// Sinks
	// --------------------

	metrics := writer.NewMetricsWriter(cfg.Inverter.Name)
	detachMetrics := writer.Attach(coord, metrics, "metrics", log)
	defer detachMetrics()

	if cfg.MQTT.Enabled {
		mq, err := writer.BuildMQTT(cfg, log)
		if err != nil {
			return err
		}
		defer mq.Close()

		if err := mq.BindCommands(coord, 2*cfg.Inverter.Timeout); err != nil {
			return err
		}
		detachMQTT := writer.Attach(coord, mq, "mqtt", log)
		defer detachMQTT()
	}

	// --------------------
	// Loops
	// --------------------

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		coord.Run(gctx)
		return nil
	})

	if cfg.HTTP.Enabled {
		srv := httpapi.New(cfg.HTTP.Listen, coord, metrics.Handler(), log)
		g.Go(func() error {
			return srv.Serve(gctx)
		})
	}

	log.Info("running",
		zap.String("inverter", cfg.Inverter.Name),
		zap.Duration("scan_interval", cfg.ScanInterval()),
		zap.Bool("mqtt", cfg.MQTT.Enabled),
		zap.Bool("http", cfg.HTTP.Enabled),
	)

	err = g.Wait()
	log.Info("stopped")
	return err
}

type setupper interface {
	Setup(ctx context.Context) error
}

// setupWithRetry calls Setup every `every` until it succeeds or ctx ends.
func setupWithRetry(ctx context.Context, s setupper, every time.Duration, log *zap.Logger) error {
	if every <= 0 {
		every = 30 * time.Second
	}
	for {
		err := s.Setup(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Warn("setup failed, retrying", zap.Duration("retry_in", every), zap.Error(err))

		t := time.NewTimer(every)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// withCoordinator builds a coordinator for one command and reports the outcome.
func withCoordinator(cmd *cobra.Command, fn func(ctx context.Context, c *poller.Coordinator) error) error {
	coord, err := poller.Build(appConfig, logger)
	if err != nil {
		return err
	}
	defer coord.Close()

	ctx, cancel := commandContext()
	defer cancel()

	if err := fn(ctx, coord); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}
