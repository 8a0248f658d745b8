// Dope runs the display scheduler on a demo desktop.
//
// Usage:
//
//	dope run [--geometry WxH[@X,Y]] [--windows n]
//	dope bench [--duration d] [--geometry WxH] [--windows n]
//	dope config
//
// Run opens a window showing overlapping windows that redraw
// continuously and a video surface fed by a producer goroutine.
// Windows can be dragged with button 1 and resized from their
// bottom-right corner. Bench runs the same desktop without a display
// and prints the scheduler's counters. Config prints the effective
// configuration as TOML.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"9fans.net/dope/config"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	cfg    config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dope",
		Short: "Deadline-bounded redraw scheduler demo",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = loadConfig()
			if err != nil {
				return err
			}
			logger = cfg.Logger(os.Stderr)
			slog.SetDefault(logger)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "TOML configuration file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json, tint)")

	root.AddCommand(
		newRunCmd(),
		newBenchCmd(),
		newConfigCmd(),
	)
	return root
}

// loadConfig reads the configuration file, if any, and applies
// the logging flags over it.
func loadConfig() (config.Config, error) {
	c := config.Default()
	if flagConfig != "" {
		var err error
		if c, err = config.Load(flagConfig); err != nil {
			return c, err
		}
	}
	if flagLogLevel != "" {
		c.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		c.Log.Format = flagLogFormat
	}
	return c, c.Validate()
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Write(cmd.OutOrStdout())
		},
	}
}
