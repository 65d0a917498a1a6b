package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/josz5930/CDC-Value-For-You/internal/config"
	"github.com/josz5930/CDC-Value-For-You/internal/session"
	"github.com/josz5930/CDC-Value-For-You/pkg/constants"
	"github.com/josz5930/CDC-Value-For-You/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configFile   string
	logLevel     string
	outputFormat string
}

// cliRuntime is what every subcommand needs after flags are parsed.
type cliRuntime struct {
	conf         *config.Configuration
	logger       *zap.Logger
	outputFormat string
}

func (rt *cliRuntime) wallets() *session.Wallets {
	return &session.Wallets{
		Regular:     rt.conf.RegularWallet(),
		Supermarket: rt.conf.SupermarketWallet(),
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "voucher-value",
		Short: "Estimate what CDC vouchers are worth to you",
		Long: `voucher-value estimates the real value of CDC stimulus vouchers for a
household's spending habits.

Three methods are combined into a value range:
  willingness to pay    - what you would pay in cash for the vouchers
  denomination loss     - face value minus change forfeited at checkout
  incremental spending  - the part of the vouchers you would spend anyway`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", constants.DefaultConfigFile, "path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.outputFormat, "output-format", "", "type of output override: pretty, csv, json")

	cmd.AddCommand(
		newValuateCmd(opts),
		newSpendCmd(opts),
		newSimulateCmd(opts),
		newLossCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads configuration, builds the logger and resolves the output format.
// A missing config file is only an error when --config was given explicitly.
func (o *rootOptions) load(cmd *cobra.Command) (*cliRuntime, error) {
	conf, err := config.LoadConfiguration(o.configFile)
	if err != nil {
		_, statErr := os.Stat(o.configFile)
		if !errors.Is(statErr, fs.ErrNotExist) || cmd.Flags().Changed("config") {
			return nil, fmt.Errorf("failed to load configuration at %s: %w", o.configFile, err)
		}
		conf = config.Default()
	}

	logger, err := initializeLogger(conf.Logging, o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	outputFormat := conf.Output.Format
	if o.outputFormat != "" {
		outputFormat = o.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		_ = logger.Sync()
		return nil, err
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.load"),
		)
	}

	return &cliRuntime{conf: conf, logger: logger, outputFormat: outputFormat}, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}
