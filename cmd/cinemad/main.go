package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cinemad: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	loader := newConfigLoader()
	cmd := &cobra.Command{
		Use:           "cinemad",
		Short:         "Cinema booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeCommand(cmd, loader)
		},
	}
	registerFlags(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeCommand(cmd, loader)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loader.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateStorage(); err != nil {
				return err
			}
			return runMigrate(cmd.Context(), cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Expire stale pending bookings and close elapsed showtimes once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loader.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateStorage(); err != nil {
				return err
			}
			return runSweep(cmd.Context(), cfg)
		},
	})
	return cmd
}

func runServeCommand(cmd *cobra.Command, loader *configLoader) error {
	cfg, err := loader.load(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return runServer(ctx, cfg)
}
