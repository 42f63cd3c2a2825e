package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bikedash/pkg/config"
	"bikedash/pkg/dashboard"
	"bikedash/pkg/reports"
)

func createReportHTMLCmd(opts *rootOptions) *cobra.Command {
	var (
		output string
		serve  bool
		port   int
	)

	cmd := &cobra.Command{
		Use:   "report-html",
		Short: "Generate the dashboard as a static HTML page",
		Long:  `Fetches both datasets once and writes the dashboard, including the risk pie chart, to an HTML file. With --serve the file is also served over HTTP.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("output") {
				opts.cfg.Report.Output = output
			}
			if cmd.Flags().Changed("port") {
				opts.cfg.Server.Port = port
				if err := opts.cfg.Validate(); err != nil {
					fmt.Fprintf(os.Stderr, "Error in flags: %v\n", err)
					return err
				}
			}

			state, err := opts.loadState(cmd.Context(), dashboard.LogEventHandler{})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error initializing API client: %v\n", err)
				return err
			}

			view := reports.BuildView(state, opts.viewOptions())
			if err := reports.GenerateHTMLReport(view, opts.cfg.Report.Output); err != nil {
				fmt.Fprintf(os.Stderr, "Error generating HTML report: %v\n", err)
				return err
			}
			color.New(color.FgHiGreen).Fprintf(cmd.OutOrStdout(), "Report written to %s\n", opts.cfg.Report.Output)

			if !serve {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := opts.cfg.Server.Addr()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving HTML report at http://%s\n", addr)
			if err := reports.ServeHTMLReport(ctx, opts.cfg.Report.Output, addr); err != nil {
				fmt.Fprintf(os.Stderr, "Error serving HTML report: %v\n", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", config.DefaultOutput, "Path of the generated HTML file")
	cmd.Flags().BoolVar(&serve, "serve", false, "Serve the generated report over HTTP")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Port to serve the report on")

	return cmd
}
