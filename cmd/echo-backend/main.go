// Echo-backend is a development upstream for the reverse proxy. It answers
// every request with a JSON description of what it received, so routes can be
// checked by hand.
//
// Usage:
//
//	go run ./cmd/echo-backend --port 8081 --name api
//
// --delay holds each response back, which is handy for exercising the proxy
// timeout.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/httpserver"
	"github.com/angeloszaimis/reverse-proxy-manager/pkg/logger"
)

func main() {
	if err := newCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var (
		port  int
		opts  echoOptions
		level string
	)

	cmd := &cobra.Command{
		Use:          "echo-backend",
		Short:        "Upstream that echoes request metadata as JSON",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.New(level, false, "dev")

			srv, err := httpserver.New(fmt.Sprintf(":%d", port), newEchoHandler(opts, log), httpserver.Timeouts{})
			if err != nil {
				return err
			}

			log.Info("starting echo backend", "addr", srv.Addr(), "name", opts.Name)
			return srv.Start()
		},
	}

	cmd.Flags().IntVar(&port, "port", 8081, "port to listen on")
	cmd.Flags().StringVar(&opts.Name, "name", "echo", "name reported in every response")
	cmd.Flags().DurationVar(&opts.Delay, "delay", 0, "wait this long before answering")
	cmd.Flags().IntVar(&opts.Status, "status", 200, "status code to answer with")
	cmd.Flags().StringVar(&level, "log-level", "info", "log level")

	return cmd
}

type echoOptions struct {
	Name   string
	Delay  time.Duration
	Status int
}
