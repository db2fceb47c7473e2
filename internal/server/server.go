package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iwvelando/rental-analytics/internal/billing"
	"github.com/iwvelando/rental-analytics/internal/dataset"
	"github.com/iwvelando/rental-analytics/internal/deal"
	"github.com/iwvelando/rental-analytics/internal/expense"
	"github.com/iwvelando/rental-analytics/internal/income"
	"github.com/iwvelando/rental-analytics/internal/portfolio"
	"github.com/iwvelando/rental-analytics/internal/taxreport"
	"github.com/iwvelando/rental-analytics/pkg/constants"
	"github.com/iwvelando/rental-analytics/pkg/validation"
	"go.uber.org/zap"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	now           func() time.Time

	aggregator    *portfolio.Aggregator
	reports       *taxreport.Builder
	reconstructor *income.Reconstructor
	normalizer    *expense.Normalizer
}

// NewHandler constructs the HTTP handler serving the analytics API. Every
// endpoint except /api/version takes a JSON body and is stateless: the
// dataset to analyze travels with the request.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string) http.Handler {
	return newHandler(logger, maxUploadSize, version, time.Now)
}

func newHandler(logger *zap.Logger, maxUploadSize int64, version string, now func() time.Time) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		now:           now,
		aggregator:    portfolio.NewAggregator(logger),
		reports:       taxreport.NewBuilder(logger),
		reconstructor: income.NewReconstructor(logger),
		normalizer:    expense.NewNormalizer(logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/deal", h.handleDeal)
	mux.HandleFunc("/api/portfolio", h.handlePortfolio)
	mux.HandleFunc("/api/income", h.handleIncome)
	mux.HandleFunc("/api/expenses", h.handleExpenses)
	mux.HandleFunc("/api/tax-report", h.handleTaxReport)
	mux.HandleFunc("/api/billing/state", h.handleBillingState)
	mux.HandleFunc("/api/version", h.handleVersion)

	return mux
}

type portfolioRequest struct {
	Dataset        dataset.Document `json:"dataset"`
	Year           int              `json:"year"`
	VacancyPercent float64          `json:"vacancyPercent"`
}

type yearRequest struct {
	Dataset     dataset.Document `json:"dataset"`
	Year        int              `json:"year"`
	PropertyIDs []string         `json:"propertyIds,omitempty"`
}

type billingRequest struct {
	Record *dataset.BillingEntry `json:"record"`
	// Now is an RFC 3339 instant; the server clock is used when empty.
	Now        string `json:"now,omitempty"`
	Properties *int   `json:"properties,omitempty"`
	Seats      *int   `json:"seats,omitempty"`
}

type billingResponse struct {
	billing.State
	CanAddProperty *bool `json:"canAddProperty,omitempty"`
	CanAddSeat     *bool `json:"canAddSeat,omitempty"`
}

func (h *handler) handleDeal(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDeal"
	var in deal.Inputs
	if !h.decodeRequest(w, r, &in, op) {
		return
	}

	results, err := deal.Evaluate(in)
	if err != nil {
		h.respondComputeError(w, err, op)
		return
	}

	h.logger.Info("deal evaluated",
		zap.String("op", op),
		zap.Float64("capRate", results.CapRate),
		zap.Float64("cashOnCash", results.CashOnCash),
		zap.Bool("profitable", results.IsProfitable),
	)
	h.writeJSON(w, http.StatusOK, results)
}

func (h *handler) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePortfolio"
	var req portfolioRequest
	if !h.decodeRequest(w, r, &req, op) {
		return
	}

	ds, ok := h.resolve(w, &req.Dataset, op)
	if !ok {
		return
	}
	if req.Year == 0 {
		req.Year = h.now().Year()
	}

	metrics, err := h.aggregator.Aggregate(ds.Records, portfolio.Options{Year: req.Year, VacancyPercent: req.VacancyPercent})
	if err != nil {
		h.respondComputeError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, metrics)
}

func (h *handler) handleIncome(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleIncome"
	var req yearRequest
	if !h.decodeRequest(w, r, &req, op) {
		return
	}

	ds, ok := h.resolve(w, &req.Dataset, op)
	if !ok {
		return
	}

	result, err := h.reconstructor.Reconstruct(ds.Records.Leases, req.Year)
	if err != nil {
		h.respondComputeError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleExpenses(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExpenses"
	var req yearRequest
	if !h.decodeRequest(w, r, &req, op) {
		return
	}

	ds, ok := h.resolve(w, &req.Dataset, op)
	if !ok {
		return
	}

	result, err := h.normalizer.Normalize(expense.Input{
		Year:        req.Year,
		Recurring:   ds.Records.RecurringExpenses,
		OneOff:      ds.Records.OneOffExpenses,
		PropertyIDs: req.PropertyIDs,
	})
	if err != nil {
		h.respondComputeError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleTaxReport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleTaxReport"
	var req yearRequest
	if !h.decodeRequest(w, r, &req, op) {
		return
	}

	ds, ok := h.resolve(w, &req.Dataset, op)
	if !ok {
		return
	}

	report, err := h.reports.Build(taxreport.Request{
		Year:        req.Year,
		PropertyIDs: req.PropertyIDs,
		Records:     ds.Records,
		Now:         h.now(),
	})
	if err != nil {
		h.respondComputeError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *handler) handleBillingState(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleBillingState"
	var req billingRequest
	if !h.decodeRequest(w, r, &req, op) {
		return
	}

	now := h.now()
	if req.Now != "" {
		parsed, err := time.Parse(time.RFC3339, req.Now)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid now %q: %v", req.Now, err), op)
			return
		}
		now = parsed
	}

	state, err := resolveBilling(req.Record, now)
	if err != nil {
		h.respondComputeError(w, err, op)
		return
	}

	resp := billingResponse{State: state}
	if req.Properties != nil {
		allowed := state.Allows(billing.ResourceProperty, *req.Properties)
		resp.CanAddProperty = &allowed
	}
	if req.Seats != nil {
		allowed := state.Allows(billing.ResourceSeat, *req.Seats)
		resp.CanAddSeat = &allowed
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func resolveBilling(entry *dataset.BillingEntry, now time.Time) (billing.State, error) {
	if entry == nil {
		return billing.Resolve(nil, now)
	}
	record, err := entry.Record()
	if err != nil {
		return billing.State{}, err
	}
	return billing.Resolve(&record, now)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// decodeRequest reads a JSON body into dst. It answers the request itself and
// returns false when the body cannot be used.
func (h *handler) decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) resolve(w http.ResponseWriter, doc *dataset.Document, op string) (*dataset.Dataset, bool) {
	ds, err := doc.Resolve()
	if err != nil {
		h.respondComputeError(w, err, op)
		return nil, false
	}
	return ds, true
}

func (h *handler) respondComputeError(w http.ResponseWriter, err error, op string) {
	status := http.StatusInternalServerError
	if validation.IsInvalidInput(err) {
		status = http.StatusBadRequest
	}
	h.respondErrorWithOp(w, status, err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
