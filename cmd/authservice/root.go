package main

import (
	"os"

	"github.com/spf13/cobra"

	"authservice/internal/config"
)

// Global flags available to all subcommands.
var envFile string

// NewRootCmd creates the root command of the auth service CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "authservice",
		Short:        "Session based authentication service",
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", os.Getenv("ENV_FILE"), "dotenv file loaded before reading the environment")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
