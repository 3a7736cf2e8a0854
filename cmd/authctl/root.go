package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/nagiyevstudio/tastetrack/core"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for authctl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "authctl",
		Short:        "Manage the TasteTrack login secret and throttle",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (overrides CONFIG_FILE)")

	cmd.AddCommand(NewHashCmd())
	cmd.AddCommand(NewSetPasswordCmd())
	cmd.AddCommand(NewUnlockCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

func loadConfig() (core.Config, error) {
	if configFile != "" {
		if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
			return core.Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
		}
	}
	cfg, err := core.Load()
	if err != nil {
		return core.Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg, nil
}

func requirePepper(cfg core.Config) error {
	if !core.PepperConfigured(cfg.AuthPepper) {
		return oops.Code("CONFIG_INVALID").Errorf("AUTH_PEPPER is not configured")
	}
	return nil
}
