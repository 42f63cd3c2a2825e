package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bikedash/pkg/reports"
)

func createBikeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bike <id>",
		Short: "Show component failure probabilities for one bike",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.newClient()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error initializing API client: %v\n", err)
				return err
			}

			score, err := c.BikeScore(cmd.Context(), args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error fetching bike score: %v\n", err)
				return err
			}

			return reports.WriteBikeScore(cmd.OutOrStdout(), score)
		},
	}
}
