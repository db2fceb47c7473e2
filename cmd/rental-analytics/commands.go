package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/iwvelando/rental-analytics/internal/billing"
	"github.com/iwvelando/rental-analytics/internal/config"
	"github.com/iwvelando/rental-analytics/internal/dataset"
	"github.com/iwvelando/rental-analytics/internal/deal"
	"github.com/iwvelando/rental-analytics/internal/expense"
	"github.com/iwvelando/rental-analytics/internal/income"
	"github.com/iwvelando/rental-analytics/internal/portfolio"
	"github.com/iwvelando/rental-analytics/internal/server"
	"github.com/iwvelando/rental-analytics/internal/taxreport"
	"github.com/iwvelando/rental-analytics/pkg/constants"
	"github.com/iwvelando/rental-analytics/pkg/loans"
	"github.com/iwvelando/rental-analytics/pkg/output"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// shutdownTimeout bounds how long serve waits for in-flight requests.
const shutdownTimeout = 10 * time.Second

// fail logs err under op and returns it so RunE can propagate it.
func (a *app) fail(op, msg string, err error) error {
	a.logger.Error(msg,
		zap.String("op", op),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %w", msg, err)
}

// fiscalYear resolves the --year flag, defaulting to the configured fiscal
// year or the last closed one.
func (a *app) fiscalYear(year int) int {
	if year != 0 {
		return year
	}
	return a.conf.FiscalYearOr(a.now())
}

func newDealCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deal [name...]",
		Short: "Evaluate the hypothetical deals of the dataset",
		Long:  "Evaluate every deal in the dataset, or only the named ones.",
		RunE: func(_ *cobra.Command, names []string) error {
			const op = "main.deal"
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}

			wanted := make(map[string]bool, len(names))
			for _, name := range names {
				wanted[name] = true
			}

			found := make(map[string]bool, len(names))
			var results []output.NamedDeal
			for _, entry := range ds.Deals {
				if len(wanted) > 0 && !wanted[entry.Name] {
					continue
				}
				res, err := deal.Evaluate(entry.Inputs)
				if err != nil {
					return a.fail(op, fmt.Sprintf("failed to evaluate deal %q", entry.Name), err)
				}
				found[entry.Name] = true
				results = append(results, output.NamedDeal{Name: entry.Name, Results: res})
			}
			for _, name := range names {
				if found[name] {
					continue
				}
				a.logger.Warn("deal not found in dataset",
					zap.String("op", op),
					zap.String("deal", name),
				)
			}
			if len(results) == 0 {
				return a.fail(op, "no deals to evaluate", errors.New("dataset has no matching deals"))
			}
			return a.renderer.Deals(results)
		},
	}
}

func newScheduleCmd(a *app) *cobra.Command {
	var propertyID string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the amortization schedule of each loan",
		RunE: func(_ *cobra.Command, _ []string) error {
			const op = "main.schedule"
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}

			generator := loans.NewAmortizationScheduleGenerator(a.logger)
			var schedules []output.LoanSchedule
			for _, loan := range ds.Records.Loans {
				if propertyID != "" && loan.PropertyID != propertyID {
					continue
				}
				schedule, err := generator.GenerateSchedule(loan)
				if err != nil {
					return a.fail(op, "failed to generate amortization schedule", err)
				}
				schedules = append(schedules, output.LoanSchedule{Loan: loan, Schedule: schedule})
			}
			return a.renderer.Schedules(schedules)
		},
	}
	cmd.Flags().StringVar(&propertyID, "property", "", "only the loans of this property")
	return cmd
}

func newPortfolioCmd(a *app) *cobra.Command {
	var (
		year    int
		vacancy float64
	)
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Aggregate per-property and portfolio metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}

			opts := portfolio.Options{Year: year, VacancyPercent: a.conf.Analysis.VacancyPercent}
			if opts.Year == 0 {
				opts.Year = a.conf.Analysis.FiscalYear
			}
			if opts.Year <= 0 {
				opts.Year = a.now().Year()
			}
			if cmd.Flags().Changed("vacancy") {
				opts.VacancyPercent = vacancy
			}

			metrics, err := portfolio.NewAggregator(a.logger).Aggregate(ds.Records, opts)
			if err != nil {
				return a.fail("main.portfolio", "failed to aggregate portfolio", err)
			}
			return a.renderer.Portfolio(metrics)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year for one-off expenses (default: configured fiscal year, else current year)")
	cmd.Flags().Float64Var(&vacancy, "vacancy", 0, "vacancy percentage applied to rental income")
	return cmd
}

func newIncomeCmd(a *app) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Reconstruct month-by-month rental income from leases",
		RunE: func(_ *cobra.Command, _ []string) error {
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}

			result, err := income.NewReconstructor(a.logger).Reconstruct(ds.Records.Leases, a.fiscalYear(year))
			if err != nil {
				return a.fail("main.income", "failed to reconstruct income", err)
			}
			return a.renderer.Income(result)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "fiscal year (default: configured fiscal year, else last year)")
	return cmd
}

func newExpensesCmd(a *app) *cobra.Command {
	var (
		year       int
		properties []string
	)
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Annualize recurring expenses and total one-off expenses",
		RunE: func(_ *cobra.Command, _ []string) error {
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}

			result, err := expense.NewNormalizer(a.logger).Normalize(expense.Input{
				Year:        a.fiscalYear(year),
				Recurring:   ds.Records.RecurringExpenses,
				OneOff:      ds.Records.OneOffExpenses,
				PropertyIDs: properties,
			})
			if err != nil {
				return a.fail("main.expenses", "failed to normalize expenses", err)
			}
			return a.renderer.Expenses(result)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "fiscal year (default: configured fiscal year, else last year)")
	cmd.Flags().StringSliceVar(&properties, "property", nil, "restrict to these property ids (repeatable)")
	return cmd
}

func newTaxReportCmd(a *app) *cobra.Command {
	var (
		year       int
		properties []string
	)
	cmd := &cobra.Command{
		Use:   "tax-report",
		Short: "Build the annual taxable income report",
		RunE: func(_ *cobra.Command, _ []string) error {
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}

			report, err := taxreport.NewBuilder(a.logger).Build(taxreport.Request{
				Year:        a.fiscalYear(year),
				PropertyIDs: properties,
				Records:     ds.Records,
				Now:         a.now(),
			})
			if err != nil {
				return a.fail("main.taxReport", "failed to build tax report", err)
			}
			return a.renderer.TaxReport(report)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "fiscal year (default: configured fiscal year, else last year)")
	cmd.Flags().StringSliceVar(&properties, "property", nil, "restrict to these property ids (repeatable)")
	return cmd
}

func newBillingCmd(a *app) *cobra.Command {
	var (
		orgID string
		at    string
	)
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Resolve the subscription access state of an organization",
		RunE: func(_ *cobra.Command, _ []string) error {
			const op = "main.billing"
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}

			now := a.now()
			if at != "" {
				if now, err = dataset.ParseTimestamp(at); err != nil {
					return a.fail(op, "invalid --now", err)
				}
			}

			record := ds.BillingFor(orgID)
			if record == nil {
				a.logger.Info("no billing record, resolving as free plan",
					zap.String("op", op),
					zap.String("org", orgID),
				)
			}
			state, err := billing.Resolve(record, now)
			if err != nil {
				return a.fail(op, "failed to resolve billing state", err)
			}
			if state.OrgID == "" {
				state.OrgID = orgID
			}
			return a.renderer.Billing(state)
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "organization id")
	cmd.Flags().StringVar(&at, "now", "", "evaluate at this RFC 3339 instant or date instead of the clock")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var (
		serverConfigPath string
		address          string
		maxUploadSize    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analytics HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			const op = "main.serve"
			cfg, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return a.fail(op, "failed to load server configuration", err)
			}
			if address != "" {
				cfg.Address = address
			}
			if maxUploadSize != "" {
				size, err := server.ParseSize(maxUploadSize)
				if err != nil {
					return a.fail(op, "invalid --max-upload-size", err)
				}
				cfg.SetUploadSizeBytes(size)
			}

			logger := a.logger
			if cfg.Logging != (config.LoggingConfig{}) {
				if logger, err = initializeLogger(cfg.Logging, a.logLevel); err != nil {
					return a.fail(op, "failed to initialize server logger", err)
				}
				defer func() { _ = logger.Sync() }()
			}

			return serve(cmd.Context(), logger, cfg)
		},
	}
	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&address, "address", "", "listen address override")
	cmd.Flags().StringVar(&maxUploadSize, "max-upload-size", "", "request body limit override (e.g. 512K, 2M)")
	return cmd
}

// serve runs the API until ctx is canceled, then drains in-flight requests.
func serve(ctx context.Context, logger *zap.Logger, cfg *server.Config) error {
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.NewHandler(logger, cfg.UploadSizeBytes(), version),
		ReadHeaderTimeout: cfg.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			zap.String("op", "main.serve"),
			zap.String("address", cfg.Address),
			zap.Int64("maxUploadSize", cfg.UploadSizeBytes()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("HTTP server failed", zap.String("op", "main.serve"), zap.Error(err))
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server", zap.String("op", "main.serve"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
