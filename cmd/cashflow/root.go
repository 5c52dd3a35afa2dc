package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cooperrunyan/cashflow/internal/config"
	"github.com/cooperrunyan/cashflow/internal/logging"
)

const serviceName = "cashflow"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "cashflow",
		Short:         "cashflow authentication service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(newServeCmd(&configFile))
	cmd.AddCommand(newCheckCmd(&configFile))
	cmd.AddCommand(newBenchCmd(&configFile))

	return cmd
}

// addLogFlags registers the flags internal/config maps onto log.*.
func addLogFlags(fs *pflag.FlagSet) {
	fs.String("log-format", "json", "log format: json or text")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
}

func newLogger(s *config.Settings, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.Setup(serviceName, version, s.Log.Format, level, w), nil
}
