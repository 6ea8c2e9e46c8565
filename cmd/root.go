package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/reverse-proxy-manager/config"
	"github.com/angeloszaimis/reverse-proxy-manager/pkg/logger"
)

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "reverse-proxy-manager",
		Short:         "Host-based reverse proxy with a route management API",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to a config file (default ./config/config.yaml)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newRoutesCmd(opts))

	return cmd
}

func loadConfig(opts *rootOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, nil, err
	}

	log := logger.New(cfg.Logging.Level, cfg.Server.Environment != config.EnvProd, cfg.Server.Environment)

	return cfg, log, nil
}
