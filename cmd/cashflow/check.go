package main

import (
	"github.com/spf13/cobra"

	"github.com/cooperrunyan/cashflow/internal/config"
)

// newCheckCmd validates the effective configuration and prints lint
// warnings. It exits non-zero only on validation errors.
func newCheckCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and report risky settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load(*configFile, cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := settings.EngineConfig()
			if err != nil {
				return err
			}

			warnings := cfg.Lint()
			for _, w := range warnings {
				cmd.Printf("warning: %s\n", w)
			}
			cmd.Printf("configuration ok (%d warnings)\n", len(warnings))
			return nil
		},
	}
}
