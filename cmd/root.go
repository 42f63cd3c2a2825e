// Package cmd wires the bikedash command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bikedash/pkg/client"
	"bikedash/pkg/config"
	"bikedash/pkg/dashboard"
	"bikedash/pkg/observability"
	"bikedash/pkg/reports"
)

// rootOptions is shared by every subcommand. cfg is filled in by the root
// PersistentPreRunE before any subcommand runs.
type rootOptions struct {
	configPath string
	apiURL     string
	topN       int
	logLevel   string
	logFormat  string

	cfg *config.Config
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "bikedash",
		Short:         "Bikedash renders the predictive bike maintenance dashboard",
		Long:          `Bikedash fetches at-risk scores and maintenance records from the bike maintenance API and renders them as terminal tables, a static HTML page or a live dashboard.`,
		Version:       reports.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a bikedash.yaml config file")
	flags.StringVar(&opts.apiURL, "api-url", config.DefaultBaseURL, "Base URL of the maintenance API")
	flags.IntVar(&opts.topN, "top-n", config.DefaultTopN, "Number of bikes shown individually in the risk chart")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(createReportCmd(opts))
	rootCmd.AddCommand(createReportHTMLCmd(opts))
	rootCmd.AddCommand(createServeCmd(opts))
	rootCmd.AddCommand(createBikeCmd(opts))

	return rootCmd
}

// load reads the config and applies explicitly set flags on top of it.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.API.BaseURL = o.apiURL
	}
	if flags.Changed("top-n") {
		cfg.Chart.TopN = o.topN
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error in flags: %v\n", err)
		return err
	}

	observability.InitLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	o.cfg = cfg
	return nil
}

func (o *rootOptions) newClient() (*client.Client, error) {
	c, err := client.New(o.cfg.API.BaseURL, client.WithTimeout(o.cfg.API.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}
	return c, nil
}

func (o *rootOptions) viewOptions() reports.Options {
	return reports.Options{TopN: reports.TopN(o.cfg.Chart.TopN)}
}

// loadState fetches both datasets once, reporting failures to h.
func (o *rootOptions) loadState(ctx context.Context, h dashboard.EventHandler) (*dashboard.State, error) {
	c, err := o.newClient()
	if err != nil {
		return nil, err
	}
	return dashboard.Load(ctx, c, dashboard.Options{
		RiskLimit: o.cfg.API.RiskLimit,
		Events:    h,
	}), nil
}
