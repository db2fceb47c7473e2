// Package taxreport builds fiscal-year taxable income reports per property.
package taxreport

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/rental-analytics/internal/expense"
	"github.com/iwvelando/rental-analytics/internal/income"
	"github.com/iwvelando/rental-analytics/internal/model"
	"github.com/iwvelando/rental-analytics/pkg/mathutil"
	"github.com/iwvelando/rental-analytics/pkg/validation"
	"go.uber.org/zap"
)

// Request selects the year and properties to report on. An empty
// PropertyIDs filter selects every property. A zero Now is replaced with the
// builder clock.
type Request struct {
	Year        int
	PropertyIDs []string
	Records     model.Records
	Now         time.Time
}

// PropertyReport is the taxable income of one property.
type PropertyReport struct {
	PropertyID          string         `json:"propertyId"`
	Address             string         `json:"address,omitempty"`
	RentalIncome        float64        `json:"rentalIncome"`
	MonthlyIncome       income.Monthly `json:"monthlyIncome"`
	OneOffDeductible    float64        `json:"oneOffDeductible"`
	RecurringDeductible float64        `json:"recurringDeductible"`
	Deductions          float64        `json:"deductions"`
	NonDeductible       float64        `json:"nonDeductible"`
	NetIncome           float64        `json:"netIncome"`
}

// Report is a snapshot of the taxable income for one fiscal year. Totals are
// plain sums over the selected properties.
type Report struct {
	ID                 string               `json:"id"`
	Year               int                  `json:"year"`
	GeneratedAt        time.Time            `json:"generatedAt"`
	TotalRentalIncome  float64              `json:"totalRentalIncome"`
	TotalDeductions    float64              `json:"totalDeductions"`
	TotalNonDeductible float64              `json:"totalNonDeductible"`
	NetTaxableIncome   float64              `json:"netTaxableIncome"`
	Properties         []PropertyReport     `json:"properties"`
	Warnings           []validation.Warning `json:"warnings,omitempty"`
}

// Builder assembles reports from the income reconstructor and the expense
// normalizer.
type Builder struct {
	logger        *zap.Logger
	reconstructor *income.Reconstructor
	normalizer    *expense.Normalizer
	now           func() time.Time
	newID         func() string
}

// NewBuilder creates a builder. A nil logger disables logging.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		logger:        logger,
		reconstructor: income.NewReconstructor(logger),
		normalizer:    expense.NewNormalizer(logger),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Build produces the report. Records pointing at unknown properties are left
// out and returned as warnings; invalid records fail the whole report.
func (b *Builder) Build(req Request) (Report, error) {
	if req.Year <= 0 {
		return Report{}, validation.Invalidf("fiscal year must be positive, got %d", req.Year)
	}
	if err := req.Records.ValidateProperties(); err != nil {
		return Report{}, err
	}

	index := req.Records.PropertyIndex()
	known := func(id string) bool {
		_, ok := index[id]
		return ok
	}
	selected, warnings := b.selectProperties(req, known)

	leases := make([]model.Lease, 0, len(req.Records.Leases))
	for _, l := range req.Records.Leases {
		if _, ok := selected[l.PropertyID]; ok {
			leases = append(leases, l)
		} else if !known(l.PropertyID) {
			warnings = append(warnings, b.missing("lease", l.PropertyID))
		}
	}

	in := expense.Input{Year: req.Year}
	for _, e := range req.Records.RecurringExpenses {
		if _, ok := selected[e.PropertyID]; ok {
			in.Recurring = append(in.Recurring, e)
		} else if !known(e.PropertyID) {
			warnings = append(warnings, b.missing("recurring expense", e.PropertyID))
		}
	}
	for _, e := range req.Records.OneOffExpenses {
		if _, ok := selected[e.PropertyID]; ok {
			in.OneOff = append(in.OneOff, e)
		} else if !known(e.PropertyID) {
			warnings = append(warnings, b.missing("one-off expense", e.PropertyID))
		}
	}

	incomeResult, err := b.reconstructor.Reconstruct(leases, req.Year)
	if err != nil {
		return Report{}, fmt.Errorf("reconstructing income: %w", err)
	}
	warnings = append(warnings, incomeResult.Warnings...)

	expenseResult, err := b.normalizer.Normalize(in)
	if err != nil {
		return Report{}, fmt.Errorf("normalizing expenses: %w", err)
	}
	warnings = append(warnings, expenseResult.Warnings...)

	generatedAt := req.Now
	if generatedAt.IsZero() {
		generatedAt = b.now()
	}

	report := Report{
		ID:          b.newID(),
		Year:        req.Year,
		GeneratedAt: generatedAt.UTC(),
		Properties:  make([]PropertyReport, 0, len(selected)),
		Warnings:    warnings,
	}

	for _, p := range req.Records.Properties {
		if _, ok := selected[p.ID]; !ok {
			continue
		}
		inc := incomeResult.Property(p.ID)
		exp := expenseResult.Property(p.ID)

		pr := PropertyReport{
			PropertyID:          p.ID,
			Address:             p.Address,
			RentalIncome:        inc.Annual,
			MonthlyIncome:       inc.Monthly,
			OneOffDeductible:    exp.OneOffDeductible,
			RecurringDeductible: exp.RecurringDeductibleAnnual,
			Deductions:          exp.Deductible(),
			NonDeductible:       exp.NonDeductible(),
		}
		pr.NetIncome = pr.RentalIncome - pr.Deductions

		report.TotalRentalIncome = mathutil.Sum(report.TotalRentalIncome, pr.RentalIncome)
		report.TotalDeductions = mathutil.Sum(report.TotalDeductions, pr.Deductions)
		report.TotalNonDeductible = mathutil.Sum(report.TotalNonDeductible, pr.NonDeductible)
		report.Properties = append(report.Properties, pr)
	}
	report.NetTaxableIncome = report.TotalRentalIncome - report.TotalDeductions

	b.logger.Info(fmt.Sprintf("built %d tax report", req.Year),
		zap.String("op", "taxreport.Build"),
		zap.String("report", report.ID),
		zap.Int("properties", len(report.Properties)),
		zap.Strings("warnings", validation.Messages(report.Warnings)),
		zap.Float64("netTaxableIncome", report.NetTaxableIncome),
	)

	return report, nil
}

func (b *Builder) selectProperties(req Request, known func(string) bool) (map[string]struct{}, []validation.Warning) {
	selected := make(map[string]struct{})
	if len(req.PropertyIDs) == 0 {
		for _, p := range req.Records.Properties {
			selected[p.ID] = struct{}{}
		}
		return selected, nil
	}

	var warnings []validation.Warning
	for _, id := range req.PropertyIDs {
		if !known(id) {
			warnings = append(warnings, validation.Warning{
				Kind:       validation.UnknownFilter,
				PropertyID: id,
				Message:    fmt.Sprintf("property filter %q matches no property", id),
			})
			b.logger.Warn("property filter matches no property",
				zap.String("op", "taxreport.Build"),
				zap.String("property", id),
			)
			continue
		}
		selected[id] = struct{}{}
	}
	return selected, warnings
}

func (b *Builder) missing(recordKind, propertyID string) validation.Warning {
	w := validation.MissingReferenceWarning(recordKind, propertyID)
	b.logger.Warn(w.Message,
		zap.String("op", "taxreport.Build"),
		zap.String("property", propertyID),
	)
	return w
}
