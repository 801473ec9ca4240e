/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll pipeline via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the domain packages.

ENDPOINTS:
  Configuration:
    POST   /api/config                      Upload a run configuration
    GET    /api/config/{periodID}           Fetch the stored configuration
    GET    /api/periods                     List configured periods

  Roster:
    POST   /api/periods/{periodID}/roster   Import worked days (CSV)

  Payroll:
    GET    /api/periods/{periodID}/preview  Compute payslips, persist nothing
    POST   /api/periods/{periodID}/run      Compute, persist, and post vouchers
    GET    /api/periods/{periodID}/payments Persisted payments
    GET    /api/periods/{periodID}/vouchers Persisted vouchers

  Vouchers:
    POST   /api/vouchers/{id}/reverse       Flag a posted voucher reversed

  Fixtures:
    GET    /api/fixtures                    List demo fixtures
    POST   /api/fixtures/load               Load a demo fixture

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed request, roster import errors (with row detail)
  - 404: Unknown period or voucher
  - 422: Configuration errors (invalid scale, missing accounts)
  - 500: Storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - fixtures.go: Demo configuration loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/third-culture-software/payroll-engine/commitment"
	"github.com/third-culture-software/payroll-engine/factory"
	"github.com/third-culture-software/payroll-engine/payroll"
	"github.com/third-culture-software/payroll-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
	Log   *logrus.Logger
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{Store: store, Log: log}
}

// =============================================================================
// CONFIGURATION HANDLERS
// =============================================================================

// SaveConfig validates and stores a run configuration.
func (h *Handler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", err)
		return
	}

	rc, err := factory.ParseConfig(body)
	if err != nil {
		writeError(w, configStatus(err), "invalid configuration", err)
		return
	}

	if err := h.Store.SaveConfig(r.Context(), rc.Period.ID, rc.Label, string(body)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save configuration", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"period":    rc.Period.ID,
		"mode":      rc.Mode,
		"employees": len(rc.Employees),
		"rubrics":   len(rc.Rubrics),
	}).Info("configuration saved")

	writeJSON(w, http.StatusCreated, map[string]string{
		"period_id": rc.Period.ID,
		"label":     rc.Label,
	})
}

// GetConfig returns the stored configuration for a period.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "periodID")
	configJSON, err := h.Store.LoadConfig(r.Context(), periodID)
	if err != nil {
		writeError(w, http.StatusNotFound, "period not configured", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(configJSON))
}

// ListPeriods returns the configured periods.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Store.ListPeriods(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list periods", err)
		return
	}
	out := make([]PeriodSummaryDTO, 0, len(periods))
	for id, label := range periods {
		out = append(out, PeriodSummaryDTO{PeriodID: id, Label: label})
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// ROSTER HANDLERS
// =============================================================================

// ImportRoster parses a CSV roster upload for a period. Rejection is
// all-or-nothing: one bad row rejects the file, and every bad row is
// reported with its 1-based line number.
func (h *Handler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "periodID")
	rc, err := h.loadRunConfig(r, periodID)
	if err != nil {
		writeError(w, http.StatusNotFound, "period not configured", err)
		return
	}

	known := make(map[payroll.EmployeeID]bool, len(rc.Employees))
	for _, e := range rc.Employees {
		known[e.ID] = true
	}

	entries, err := factory.ParseRoster(
		http.MaxBytesReader(w, r.Body, 4<<20), known, rc.Period.WorkingDays)
	if err != nil {
		var importErr *payroll.ImportError
		if errors.As(err, &importErr) {
			resp := RosterImportResponse{PeriodID: periodID}
			for _, row := range importErr.Rows {
				resp.Errors = append(resp.Errors, RosterErrorDTO{
					Line: row.Line, Field: row.Field, Message: row.Message,
				})
			}
			writeJSON(w, http.StatusBadRequest, resp)
			return
		}
		writeError(w, http.StatusBadRequest, "failed to parse roster", err)
		return
	}

	if err := h.Store.SaveRoster(r.Context(), periodID, entries); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save roster", err)
		return
	}

	h.Log.WithFields(logrus.Fields{"period": periodID, "entries": len(entries)}).
		Info("roster imported")
	writeJSON(w, http.StatusOK, RosterImportResponse{PeriodID: periodID, Imported: len(entries)})
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// PreviewPayroll computes payslips for a period without persisting anything.
func (h *Handler) PreviewPayroll(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "periodID")
	rc, err := h.loadRunConfig(r, periodID)
	if err != nil {
		writeError(w, http.StatusNotFound, "period not configured", err)
		return
	}

	slips, err := h.compose(r, rc)
	if err != nil {
		writeError(w, configStatus(err), "payroll computation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toPayslipDTOs(slips, rc))
}

// RunPayroll computes payslips, persists them, builds the commitment
// vouchers for the configured mode, and posts them - all downstream of a
// single atomic transaction for the voucher side. Re-running a period
// replaces the payments and flags the prior run's vouchers as reversed in
// the same transaction that posts the new set.
func (h *Handler) RunPayroll(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "periodID")
	rc, err := h.loadRunConfig(r, periodID)
	if err != nil {
		writeError(w, http.StatusNotFound, "period not configured", err)
		return
	}

	start := time.Now()
	slips, err := h.compose(r, rc)
	if err != nil {
		writeError(w, configStatus(err), "payroll computation failed", err)
		return
	}

	strategy, err := commitment.ForMode(rc.Mode)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid commitment mode", err)
		return
	}

	vouchers, err := strategy.Build(commitment.Input{
		Period:   rc.Period,
		Date:     rc.Period.End,
		Currency: rc.Rates.Payment,
		Payslips: slips,
		Accounts: rc.Accounts,
		Types:    rc.Types,
		Label:    rc.Label,
	})
	if err != nil {
		writeError(w, configStatus(err), "voucher construction failed", err)
		return
	}

	ops, err := commitment.Emit(vouchers, periodID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "voucher emission failed", err)
		return
	}

	if err := h.Store.SavePayslips(r.Context(), periodID, slips); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save payments", err)
		return
	}
	if err := h.Store.Apply(r.Context(), ops); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to post vouchers", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"period":    periodID,
		"mode":      strategy.Mode(),
		"employees": len(slips),
		"vouchers":  len(vouchers),
		"elapsed":   time.Since(start).String(),
	}).Info("payroll run completed")

	writeJSON(w, http.StatusCreated, RunResponse{
		PeriodID:  periodID,
		Mode:      string(strategy.Mode()),
		Employees: len(slips),
		Vouchers:  toVoucherDTOs(vouchers),
		Payslips:  toPayslipDTOs(slips, rc),
	})
}

// ListPayments returns the persisted payments for a period.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "periodID")
	records, err := h.Store.ListPayments(r.Context(), periodID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list payments", err)
		return
	}

	out := make([]PaymentDTO, 0, len(records))
	for _, rec := range records {
		dto := PaymentDTO{
			EmployeeID:  string(rec.EmployeeID),
			BasicSalary: rec.Basic,
			GrossSalary: rec.Gross,
			NetSalary:   rec.Net,
		}
		for _, line := range rec.Lines {
			dto.Lines = append(dto.Lines, RubricLineDTO{
				RubricID: string(line.RubricID),
				Category: string(line.Category),
				Amount:   line.Amount,
			})
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

// ListVouchers returns the persisted vouchers for a period.
func (h *Handler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "periodID")
	records, err := h.Store.ListVouchers(r.Context(), periodID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list vouchers", err)
		return
	}

	out := make([]VoucherDTO, 0, len(records))
	for _, v := range records {
		dto := VoucherDTO{
			ID:          v.ID,
			Date:        v.Date,
			TypeID:      v.TypeID,
			CurrencyID:  v.CurrencyID,
			Amount:      v.Amount,
			Description: v.Description,
			Posted:      v.Posted,
			Reversed:    v.Reversed,
		}
		for _, it := range v.Items {
			dto.Items = append(dto.Items, VoucherItemDTO{
				AccountID:   it.AccountID,
				Debit:       it.Debit,
				Credit:      it.Credit,
				EntityID:    it.EntityID,
				CostCenter:  it.CostCenter,
				Description: it.Description,
			})
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

// ReverseVoucher flags a posted voucher as reversed. Posted vouchers are
// immutable; reversal is the only permitted correction.
func (h *Handler) ReverseVoucher(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.ReverseVoucher(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "cannot reverse voucher", err)
		return
	}
	h.Log.WithFields(logrus.Fields{"voucher": id}).Info("voucher reversed")
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "reversed"})
}

// =============================================================================
// PIPELINE HELPERS
// =============================================================================

// loadRunConfig fetches and re-parses the stored configuration for a period.
func (h *Handler) loadRunConfig(r *http.Request, periodID string) (*factory.RunConfig, error) {
	configJSON, err := h.Store.LoadConfig(r.Context(), periodID)
	if err != nil {
		return nil, err
	}
	return factory.ParseConfig([]byte(configJSON))
}

// compose runs the calculation pipeline: normalize rubrics once, load the
// roster, and compose every employee's payslip.
func (h *Handler) compose(r *http.Request, rc *factory.RunConfig) ([]payroll.Payslip, error) {
	normalized, err := payroll.NormalizeRubrics(rc.Rubrics, rc.Rates)
	if err != nil {
		return nil, err
	}

	roster, err := h.Store.LoadRoster(r.Context(), rc.Period.ID)
	if err != nil {
		return nil, err
	}

	base := payroll.CompositionInput{
		Period:  rc.Period,
		Rubrics: normalized,
		Rates:   rc.Rates,
		Scale:   rc.Scale,
	}
	return payroll.Composer{}.ComposeAll(rc.Employees, base, roster)
}

func toPayslipDTOs(slips []payroll.Payslip, rc *factory.RunConfig) []PayslipDTO {
	names := make(map[payroll.EmployeeID]string, len(rc.Employees))
	for _, e := range rc.Employees {
		names[e.ID] = e.DisplayName
	}

	out := make([]PayslipDTO, 0, len(slips))
	for _, slip := range slips {
		dto := PayslipDTO{
			EmployeeID:  string(slip.Employee),
			DisplayName: names[slip.Employee],
			CostCenter:  int(slip.CostCenter),
			DailySalary: slip.DailySalary.Round2().Value.String(),
			BasicSalary: slip.BasicSalary.Round2().Value.String(),
			BaseTaxable: slip.BaseTaxable.Round2().Value.String(),
			GrossSalary: slip.GrossSalary.Round2().Value.String(),
			NetSalary:   slip.NetSalary.Round2().Value.String(),
			Withheld:    slip.WithholdingTotal.Round2().Value.String(),
		}
		for _, line := range slip.Lines {
			dto.Lines = append(dto.Lines, RubricLineDTO{
				RubricID: string(line.Rubric.ID),
				Label:    line.Rubric.Label,
				Category: string(line.Category),
				Amount:   line.Amount.Round2().Value.String(),
			})
		}
		out = append(out, dto)
	}
	return out
}

func toVoucherDTOs(vouchers []commitment.Voucher) []VoucherDTO {
	out := make([]VoucherDTO, 0, len(vouchers))
	for _, v := range vouchers {
		dto := VoucherDTO{
			ID:          v.ID,
			Date:        v.Date.Format("2006-01-02"),
			TypeID:      v.TypeID,
			CurrencyID:  int(v.Currency),
			Amount:      v.Amount.String(),
			Description: v.Description,
			Posted:      true,
		}
		for _, it := range v.Items {
			dto.Items = append(dto.Items, VoucherItemDTO{
				AccountID:   int(it.AccountID),
				Debit:       it.Debit.String(),
				Credit:      it.Credit.String(),
				EntityID:    it.EntityID,
				CostCenter:  int(it.CostCenter),
				Description: it.Description,
			})
		}
		out = append(out, dto)
	}
	return out
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// configStatus maps domain errors to HTTP statuses: configuration errors
// are 422 (the request was well-formed but the stored config cannot run),
// validation errors are 400.
func configStatus(err error) int {
	switch {
	case payroll.IsValidationError(err):
		return http.StatusBadRequest
	case payroll.IsConfigError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
