// cmd/sajmodbus/cli.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamzrod/saj-modbus/internal/config"
	"github.com/tamzrod/saj-modbus/internal/logging"
	"github.com/tamzrod/saj-modbus/internal/poller"
	"github.com/tamzrod/saj-modbus/internal/status"
	"github.com/tamzrod/saj-modbus/internal/writer"
)

var (
	cfgFile   string
	logger    *zap.Logger
	appConfig *config.Config

	hostOverride    string
	variantOverride string
	levelOverride   string
)

// commands that do not need a loaded configuration
var noConfig = map[string]bool{
	"version":  true,
	"help":     true,
	"generate": true,
	"validate": true,
}

// rootCmd is the command tree root.
var rootCmd = &cobra.Command{
	Use:           "sajmodbus",
	Short:         "SAJ inverter Modbus/TCP poller",
	Long:          "Polls an SAJ R5 or R6 inverter over Modbus/TCP and publishes its state to MQTT, Prometheus and HTTP.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lc := config.Default().Logging

		if !noConfig[cmd.Name()] {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			appConfig = cfg
			lc = cfg.Logging
		}
		if levelOverride != "" {
			lc.Level = levelOverride
		}

		var err error
		logger, err = logging.New(lc)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadConfig reads, overrides, validates and normalizes, in that order.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if hostOverride != "" {
		cfg.Inverter.Host = hostOverride
	}
	if variantOverride != "" {
		cfg.Inverter.Variant = variantOverride
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

// runCmd is the daemon.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the inverter and serve MQTT, metrics and HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runDaemon(ctx, appConfig, logger)
	},
}

// probeCmd performs one setup and one tick and prints the snapshot.
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Read the inverter once and print the snapshot as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := poller.Build(appConfig, logger)
		if err != nil {
			return err
		}
		defer coord.Close()

		ctx, cancel := commandContext()
		defer cancel()

		if err := coord.Setup(ctx); err != nil {
			return err
		}
		snap := coord.PollOnce(ctx)

		body, err := status.Encode(snap)
		if err != nil {
			return err
		}
		var out bytes.Buffer
		if err := json.Indent(&out, body, "", "  "); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.String())

		if snap.Health != status.HealthOK {
			return fmt.Errorf("probe: %s", snap.LastError)
		}
		return nil
	},
}

// setCmd groups the write commands.
var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Write a control register",
}

var setLimitPowerCmd = &cobra.Command{
	Use:   "limitpower [watts]",
	Short: "Set the export power limit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		watts, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("watts: %w", err)
		}
		return withCoordinator(cmd, func(ctx context.Context, c *poller.Coordinator) error {
			return c.SetLimitPower(ctx, watts)
		})
	},
}

var setPowerCmd = &cobra.Command{
	Use:   "power [on|off]",
	Short: "Switch the inverter output (R6 only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := writer.ParseSwitch(args[0])
		if err != nil {
			return err
		}
		return withCoordinator(cmd, func(ctx context.Context, c *poller.Coordinator) error {
			return c.SetPowerOnOff(ctx, on)
		})
	},
}

var setClockCmd = &cobra.Command{
	Use:   "clock [RFC 3339 time]",
	Short: "Set the inverter clock, to now when no time is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw string
		if len(args) == 1 {
			raw = args[0]
		}
		t, err := writer.ParseDateTime(raw)
		if err != nil {
			return err
		}
		return withCoordinator(cmd, func(ctx context.Context, c *poller.Coordinator) error {
			return c.SetClock(ctx, t)
		})
	},
}

// configCmd groups configuration helpers.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "configuration ok")
		fmt.Fprintf(out, "  inverter: %s %s:%d (%s, unit %d)\n",
			cfg.Inverter.Name, cfg.Inverter.Host, cfg.Inverter.Port, cfg.Inverter.Variant, cfg.Inverter.UnitID)
		fmt.Fprintf(out, "  scan interval: %s\n", cfg.ScanInterval())
		fmt.Fprintf(out, "  mqtt: %t  http: %t\n", cfg.MQTT.Enabled, cfg.HTTP.Enabled)
		return nil
	},
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a sample configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		cfg := config.Default()
		cfg.Inverter.Host = "192.168.1.50"

		if err := config.Save(cfg, output); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sample configuration written to %s\n", output)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "sajmodbus version %s\n", Version)
		fmt.Fprintf(out, "  Build: %s\n", BuildTime)
		fmt.Fprintf(out, "  Commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&hostOverride, "host", "", "inverter host, overrides inverter.host")
	rootCmd.PersistentFlags().StringVar(&variantOverride, "variant", "", "r5 or r6, overrides inverter.variant")
	rootCmd.PersistentFlags().StringVar(&levelOverride, "log-level", "", "overrides logging.level")

	configGenerateCmd.Flags().StringP("output", "o", "config.yaml", "output file")

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	setCmd.AddCommand(setLimitPowerCmd, setPowerCmd, setClockCmd)
	configCmd.AddCommand(configValidateCmd, configGenerateCmd)

	rootCmd.AddCommand(
		runCmd,
		probeCmd,
		setCmd,
		configCmd,
		versionCmd,
	)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
