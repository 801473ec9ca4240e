/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these onto HTTP statuses; the calculation core never
  retries anything itself.

ERROR CATEGORIES:
  1. Configuration errors - misconfigured brackets, rubrics missing accounts.
     Fatal to the run: nothing may be persisted once one is seen.
  2. Validation errors - malformed import rows, missing employee fields.
     Surfaced per-row; the whole input is rejected as a unit.

USAGE:
  if errors.Is(err, payroll.ErrNoApplicableBracket) { ... }
  if payroll.IsConfigError(err) { ... }
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoApplicableBracket is returned when an annual taxable base falls
	// outside every configured bracket. This indicates misconfigured
	// brackets, not bad input: fatal, never retryable.
	ErrNoApplicableBracket = errors.New("no applicable tax bracket")

	// ErrInvalidScale is returned when a bracket table fails validation
	// (ordering, contiguity, or cumulative consistency).
	ErrInvalidScale = errors.New("invalid tax scale")

	// ErrMissingAccount is returned when a rubric reaches the commitment
	// builder with neither a debtor nor an expense account configured.
	ErrMissingAccount = errors.New("rubric missing ledger account")

	// ErrMissingRate is returned when no exchange rate is configured for a
	// currency involved in the run.
	ErrMissingRate = errors.New("missing exchange rate")

	// ErrInvalidPeriod is returned when a pay period is malformed.
	ErrInvalidPeriod = errors.New("invalid pay period")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NoApplicableBracketError carries the amount that failed to match.
type NoApplicableBracketError struct {
	Annual Money
}

func (e *NoApplicableBracketError) Error() string {
	return fmt.Sprintf("no tax bracket matches annual base %s", e.Annual.Value)
}

func (e *NoApplicableBracketError) Unwrap() error { return ErrNoApplicableBracket }

// ScaleError describes a bracket table inconsistency.
type ScaleError struct {
	Index  int // offending bracket, 0-based
	Reason string
}

func (e *ScaleError) Error() string {
	return fmt.Sprintf("tax scale bracket %d: %s", e.Index, e.Reason)
}

func (e *ScaleError) Unwrap() error { return ErrInvalidScale }

// MissingAccountError names the rubric that has no usable account.
type MissingAccountError struct {
	Rubric RubricID
	Label  string
}

func (e *MissingAccountError) Error() string {
	return fmt.Sprintf("rubric %s (%s) has neither a debtor nor an expense account", e.Rubric, e.Label)
}

func (e *MissingAccountError) Unwrap() error { return ErrMissingAccount }

// RowError is a validation failure on one input row. Line is 1-based and
// refers to the offending line of the submitted file.
type RowError struct {
	Line    int
	Field   string
	Message string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
}

// ImportError bundles every row failure for one submission. The submission
// is rejected as a unit; no valid rows are applied.
type ImportError struct {
	Rows []*RowError
}

func (e *ImportError) Error() string {
	if len(e.Rows) == 1 {
		return e.Rows[0].Error()
	}
	return fmt.Sprintf("%d invalid rows (first: %s)", len(e.Rows), e.Rows[0].Error())
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigError returns true for fatal configuration errors: the run must
// abort before any voucher is constructed.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrNoApplicableBracket) ||
		errors.Is(err, ErrInvalidScale) ||
		errors.Is(err, ErrMissingAccount) ||
		errors.Is(err, ErrMissingRate)
}

// IsValidationError returns true for per-row input errors that an operator
// can correct and re-submit.
func IsValidationError(err error) bool {
	var ie *ImportError
	var re *RowError
	return errors.As(err, &ie) || errors.As(err, &re) || errors.Is(err, ErrInvalidPeriod)
}
