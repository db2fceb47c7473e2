package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/iwvelando/rental-analytics/internal/config"
	"github.com/iwvelando/rental-analytics/internal/dataset"
	"github.com/iwvelando/rental-analytics/pkg/constants"
	"github.com/iwvelando/rental-analytics/pkg/output"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries the state shared by every subcommand once the root command
// has loaded configuration.
type app struct {
	now func() time.Time

	configPath   string
	dataPath     string
	logLevel     string
	outputFormat string

	conf     *config.Configuration
	logger   *zap.Logger
	renderer *output.Renderer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{now: time.Now}).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "rental-analytics",
		Short:        "Financial analytics for rental property portfolios",
		Long:         "Evaluate deals, aggregate portfolio metrics, reconstruct rental income, build tax reports and resolve subscription access.",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	flags.StringVar(&a.dataPath, "data", "", "path to the portfolio dataset (YAML or JSON), overrides data.file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&a.outputFormat, "output-format", "", "output format override: pretty, json")

	root.AddCommand(
		newDealCmd(a),
		newScheduleCmd(a),
		newPortfolioCmd(a),
		newIncomeCmd(a),
		newExpensesCmd(a),
		newTaxReportCmd(a),
		newBillingCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads .env, the configuration, the logger and the renderer.
func (a *app) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		reportFatal("failed to load .env", err)
		return err
	}

	conf, err := a.loadConfiguration(cmd)
	if err != nil {
		reportFatal(fmt.Sprintf("failed to load configuration at %s", a.configPath), err)
		return err
	}
	a.conf = conf

	logger, err := initializeLogger(conf.Logging, a.logLevel)
	if err != nil {
		reportFatal("failed to initialize logger", err)
		return err
	}
	a.logger = logger

	format := conf.Output.Format
	if a.outputFormat != "" {
		format = a.outputFormat
	}
	if format == "" {
		format = constants.OutputFormatPretty
	}
	renderer, err := output.NewRenderer(cmd.OutOrStdout(), format)
	if err != nil {
		a.logger.Error(err.Error(), zap.String("op", "main.setup"))
		return err
	}
	a.renderer = renderer

	if a.dataPath == "" {
		a.dataPath = conf.Data.File
	}

	for _, warning := range conf.ValidateConfiguration() {
		a.logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.setup"),
		)
	}
	return nil
}

// loadConfiguration reads the configuration file. The default file may be
// absent, in which case defaults and RENTAL_* variables apply.
func (a *app) loadConfiguration(cmd *cobra.Command) (*config.Configuration, error) {
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(a.configPath); errors.Is(err, fs.ErrNotExist) {
			return config.LoadConfigurationFromReader(strings.NewReader(""))
		}
	}
	return config.LoadConfiguration(a.configPath)
}

func (a *app) loadDataset() (*dataset.Dataset, error) {
	ds, err := dataset.Load(a.dataPath)
	if err != nil {
		a.logger.Error("failed to load dataset",
			zap.String("op", "main.loadDataset"),
			zap.String("path", a.dataPath),
			zap.Error(err),
		)
		return nil, err
	}
	a.logger.Debug("dataset loaded",
		zap.String("op", "main.loadDataset"),
		zap.String("path", a.dataPath),
		zap.Int("properties", len(ds.Records.Properties)),
		zap.Int("leases", len(ds.Records.Leases)),
	)
	return ds, nil
}

// reportFatal prints a JSON log line when the logger is not available yet.
func reportFatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": %q, \"error\": %q}\n", msg, err.Error())
}
