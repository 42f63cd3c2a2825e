package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bikedash/pkg/config"
	"bikedash/pkg/dashboard"
	"bikedash/pkg/reports"
)

func createServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live dashboard",
		Long:  `Serves the dashboard over HTTP. Every page view fetches both datasets again; the chart rows are also available as JSON on /api/chart.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				opts.cfg.Server.Port = port
				if err := opts.cfg.Validate(); err != nil {
					fmt.Fprintf(os.Stderr, "Error in flags: %v\n", err)
					return err
				}
			}

			c, err := opts.newClient()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error initializing API client: %v\n", err)
				return err
			}

			load := func(ctx context.Context) *dashboard.State {
				return dashboard.Load(ctx, c, dashboard.Options{
					RiskLimit: opts.cfg.API.RiskLimit,
					Events:    dashboard.LogEventHandler{},
				})
			}

			srv, err := reports.NewServer(load, reports.ServerOptions{View: opts.viewOptions(), Scores: c})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating dashboard server: %v\n", err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := opts.cfg.Server.Addr()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving dashboard at http://%s\n", addr)
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				fmt.Fprintf(os.Stderr, "Error serving dashboard: %v\n", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Port to serve the dashboard on")
	return cmd
}
