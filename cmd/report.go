package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bikedash/pkg/dashboard"
	"bikedash/pkg/reports"
)

func createReportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard to the terminal",
		Long:  `Fetches both datasets once and prints the risk chart rows, recent maintenance records and high risk bikes as tables.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events := dashboard.MultiEventHandler{Handlers: []dashboard.EventHandler{
				dashboard.LogEventHandler{},
				dashboard.ConsoleEventHandler{Out: cmd.ErrOrStderr()},
			}}

			state, err := opts.loadState(cmd.Context(), events)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error initializing API client: %v\n", err)
				return err
			}

			if err := reports.WriteTerminal(cmd.OutOrStdout(), reports.BuildView(state, opts.viewOptions())); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
				return err
			}
			return nil
		},
	}
}
