/*
Package factory converts JSON payroll configurations into engine types.

PURPOSE:
  Payroll reference data (rubrics, tax scales, pay periods, exchange rates,
  posting accounts) is administrator-authored and read-only during a run.
  This package parses and validates a complete run configuration so the
  engine only ever sees well-formed domain values. Validation failures here
  are configuration errors: the run aborts before anything is computed.

WHY JSON?
  - Non-developers can author rubrics and scales
  - Easy integration with the admin UI
  - Version control for payroll configurations
  - Database storage of the active configuration

VALIDATION LAYERS:
  1. Structural: go-playground/validator struct tags (required fields,
     ranges, nested dives)
  2. Domain: scale cumulative consistency, period shape, rubric accounts

SEE ALSO:
  - roster.go: CSV worked-days import for a period
  - payroll/scale.go: The cumulative-consistency check invoked here
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/third-culture-software/payroll-engine/commitment"
	"github.com/third-culture-software/payroll-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the JSON representation of one payroll run configuration.
type ConfigJSON struct {
	Label                string `json:"label" validate:"required"`
	EnterpriseCurrencyID int    `json:"enterprise_currency_id" validate:"required,gt=0"`
	PaymentCurrencyID    int    `json:"payment_currency_id" validate:"required,gt=0"`
	Mode                 string `json:"mode" validate:"omitempty,oneof=default grouped individually"`

	Period           PeriodJSON           `json:"period" validate:"required"`
	Accounts         AccountsJSON         `json:"accounts" validate:"required"`
	TransactionTypes TransactionTypesJSON `json:"transaction_types" validate:"required"`

	ExchangeRates []ExchangeRateJSON `json:"exchange_rates" validate:"dive"`
	Scale         *ScaleJSON         `json:"scale,omitempty"`
	Rubrics       []RubricJSON       `json:"rubrics" validate:"dive"`
	Employees     []EmployeeJSON     `json:"employees" validate:"dive"`
}

type PeriodJSON struct {
	ID          string `json:"id" validate:"required"`
	Start       string `json:"start" validate:"required"`
	End         string `json:"end" validate:"required"`
	WorkingDays int    `json:"working_days" validate:"required,gt=0"`
}

type AccountsJSON struct {
	CommitmentAccountID int `json:"commitment_account_id" validate:"required,gt=0"`
	PayableAccountID    int `json:"payable_account_id" validate:"required,gt=0"`
}

type TransactionTypesJSON struct {
	Commitment  int `json:"commitment" validate:"required,gt=0"`
	Withholding int `json:"withholding" validate:"required,gt=0"`
	PayrollTax  int `json:"payroll_tax" validate:"required,gt=0"`
	PensionFund int `json:"pension_fund" validate:"required,gt=0"`
}

type ExchangeRateJSON struct {
	CurrencyID int             `json:"currency_id" validate:"required,gt=0"`
	Rate       decimal.Decimal `json:"rate" validate:"required"`
}

type ScaleJSON struct {
	CurrencyID int           `json:"currency_id" validate:"required,gt=0"`
	Brackets   []BracketJSON `json:"brackets" validate:"required,min=1,dive"`
}

type BracketJSON struct {
	Start      decimal.Decimal `json:"start"`
	End        decimal.Decimal `json:"end" validate:"required"`
	Rate       decimal.Decimal `json:"rate"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

type RubricJSON struct {
	ID           string `json:"id" validate:"required"`
	Label        string `json:"label" validate:"required"`
	Abbreviation string `json:"abbr"`

	IsEmployee           bool `json:"is_employee"`
	IsDiscount           bool `json:"is_discount"`
	IsPercent            bool `json:"is_percent"`
	IsSocialCare         bool `json:"is_social_care"`
	IsTax                bool `json:"is_tax"`
	IsMembershipFee      bool `json:"is_membership_fee"`
	IsLinkedPensionFund  bool `json:"is_linked_pension_fund"`
	IsSeniorityBonus     bool `json:"is_seniority_bonus"`
	IsFamilyAllowances   bool `json:"is_family_allowances"`
	IsAssociatedEmployee bool `json:"is_associated_employee"`

	Value decimal.Decimal `json:"value"`

	DebtorAccountID  int `json:"debtor_account_id"`
	ExpenseAccountID int `json:"expense_account_id"`
}

type EmployeeJSON struct {
	UUID         string          `json:"uuid" validate:"required"`
	DisplayName  string          `json:"display_name" validate:"required"`
	CreditorUUID string          `json:"creditor_uuid" validate:"required"`
	CostCenterID int             `json:"cost_center_id"`
	BasicSalary  decimal.Decimal `json:"basic_salary" validate:"required"`
	CurrencyID   int             `json:"currency_id" validate:"required,gt=0"`
	HireDate     string          `json:"hire_date" validate:"required"`
	Dependents   int             `json:"dependents" validate:"gte=0"`
}

// =============================================================================
// RUN CONFIG - Converted domain values
// =============================================================================

// RunConfig is the fully converted, validated configuration for one run.
type RunConfig struct {
	Label string
	Mode  commitment.Mode

	Period    payroll.PayPeriod
	Rates     payroll.RateSet
	Scale     *payroll.TaxScale
	Rubrics   []payroll.Rubric
	Employees []payroll.Employee

	Accounts commitment.Accounts
	Types    commitment.TransactionTypes
}

// =============================================================================
// PARSER
// =============================================================================

const dateLayout = "2006-01-02"

var validate = validator.New()

// ParseConfig parses and validates a run configuration.
func ParseConfig(data []byte) (*RunConfig, error) {
	var cj ConfigJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return nil, fmt.Errorf("failed to parse configuration JSON: %w", err)
	}
	if err := validate.Struct(cj); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return FromJSON(cj)
}

// FromJSON converts a structurally valid ConfigJSON into domain values,
// applying the domain-level checks structural validation cannot express.
func FromJSON(cj ConfigJSON) (*RunConfig, error) {
	start, err := time.Parse(dateLayout, cj.Period.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid period start: %w", err)
	}
	end, err := time.Parse(dateLayout, cj.Period.End)
	if err != nil {
		return nil, fmt.Errorf("invalid period end: %w", err)
	}

	rc := &RunConfig{
		Label: cj.Label,
		Mode:  commitment.Mode(cj.Mode),
		Period: payroll.PayPeriod{
			ID:          cj.Period.ID,
			Start:       start,
			End:         end,
			WorkingDays: cj.Period.WorkingDays,
		},
		Accounts: commitment.Accounts{
			CommitmentAccount: payroll.AccountID(cj.Accounts.CommitmentAccountID),
			PayableAccount:    payroll.AccountID(cj.Accounts.PayableAccountID),
		},
		Types: commitment.TransactionTypes{
			Commitment:  cj.TransactionTypes.Commitment,
			Withholding: cj.TransactionTypes.Withholding,
			PayrollTax:  cj.TransactionTypes.PayrollTax,
			PensionFund: cj.TransactionTypes.PensionFund,
		},
	}
	if rc.Mode == "" {
		rc.Mode = commitment.ModeDefault
	}
	if err := rc.Period.Validate(); err != nil {
		return nil, err
	}
	if _, err := commitment.ForMode(rc.Mode); err != nil {
		return nil, err
	}

	rc.Rates = payroll.RateSet{
		Enterprise: payroll.CurrencyID(cj.EnterpriseCurrencyID),
		Payment:    payroll.CurrencyID(cj.PaymentCurrencyID),
		Rates:      make(map[payroll.CurrencyID]decimal.Decimal, len(cj.ExchangeRates)),
	}
	for _, r := range cj.ExchangeRates {
		rc.Rates.Rates[payroll.CurrencyID(r.CurrencyID)] = r.Rate
	}

	if cj.Scale != nil {
		scale := payroll.TaxScale{Currency: payroll.CurrencyID(cj.Scale.CurrencyID)}
		for _, b := range cj.Scale.Brackets {
			scale.Brackets = append(scale.Brackets, payroll.TaxBracket{
				Start:      b.Start,
				End:        b.End,
				Rate:       b.Rate,
				Cumulative: b.Cumulative,
			})
		}
		if err := scale.Validate(); err != nil {
			return nil, err
		}
		rc.Scale = &scale
	}

	for _, rj := range cj.Rubrics {
		if rj.DebtorAccountID == 0 && rj.ExpenseAccountID == 0 {
			return nil, &payroll.MissingAccountError{Rubric: payroll.RubricID(rj.ID), Label: rj.Label}
		}
		rc.Rubrics = append(rc.Rubrics, payroll.Rubric{
			ID:                   payroll.RubricID(rj.ID),
			Label:                rj.Label,
			Abbreviation:         rj.Abbreviation,
			IsEmployee:           rj.IsEmployee,
			IsDiscount:           rj.IsDiscount,
			IsPercent:            rj.IsPercent,
			IsSocialCare:         rj.IsSocialCare,
			IsTax:                rj.IsTax,
			IsMembershipFee:      rj.IsMembershipFee,
			IsLinkedPensionFund:  rj.IsLinkedPensionFund,
			IsSeniorityBonus:     rj.IsSeniorityBonus,
			IsFamilyAllowances:   rj.IsFamilyAllowances,
			IsAssociatedEmployee: rj.IsAssociatedEmployee,
			Value:                rj.Value,
			DebtorAccountID:      payroll.AccountID(rj.DebtorAccountID),
			ExpenseAccountID:     payroll.AccountID(rj.ExpenseAccountID),
		})
	}

	for _, ej := range cj.Employees {
		hire, err := time.Parse(dateLayout, ej.HireDate)
		if err != nil {
			return nil, fmt.Errorf("employee %s: invalid hire_date: %w", ej.UUID, err)
		}
		rc.Employees = append(rc.Employees, payroll.Employee{
			ID:          payroll.EmployeeID(ej.UUID),
			DisplayName: ej.DisplayName,
			CreditorID:  payroll.CreditorID(ej.CreditorUUID),
			CostCenter:  payroll.CostCenterID(ej.CostCenterID),
			BasicSalary: payroll.Money{Value: ej.BasicSalary, Currency: payroll.CurrencyID(ej.CurrencyID)},
			HireDate:    hire,
			Dependents:  ej.Dependents,
		})
	}

	return rc, nil
}

// ToJSON converts a RunConfig back to its JSON representation.
func ToJSON(rc *RunConfig) ConfigJSON {
	cj := ConfigJSON{
		Label:                rc.Label,
		EnterpriseCurrencyID: int(rc.Rates.Enterprise),
		PaymentCurrencyID:    int(rc.Rates.Payment),
		Mode:                 string(rc.Mode),
		Period: PeriodJSON{
			ID:          rc.Period.ID,
			Start:       rc.Period.Start.Format(dateLayout),
			End:         rc.Period.End.Format(dateLayout),
			WorkingDays: rc.Period.WorkingDays,
		},
		Accounts: AccountsJSON{
			CommitmentAccountID: int(rc.Accounts.CommitmentAccount),
			PayableAccountID:    int(rc.Accounts.PayableAccount),
		},
		TransactionTypes: TransactionTypesJSON{
			Commitment:  rc.Types.Commitment,
			Withholding: rc.Types.Withholding,
			PayrollTax:  rc.Types.PayrollTax,
			PensionFund: rc.Types.PensionFund,
		},
	}
	for c, r := range rc.Rates.Rates {
		cj.ExchangeRates = append(cj.ExchangeRates, ExchangeRateJSON{CurrencyID: int(c), Rate: r})
	}
	if rc.Scale != nil {
		sj := &ScaleJSON{CurrencyID: int(rc.Scale.Currency)}
		for _, b := range rc.Scale.Brackets {
			sj.Brackets = append(sj.Brackets, BracketJSON{Start: b.Start, End: b.End, Rate: b.Rate, Cumulative: b.Cumulative})
		}
		cj.Scale = sj
	}
	for _, r := range rc.Rubrics {
		cj.Rubrics = append(cj.Rubrics, RubricJSON{
			ID:                   string(r.ID),
			Label:                r.Label,
			Abbreviation:         r.Abbreviation,
			IsEmployee:           r.IsEmployee,
			IsDiscount:           r.IsDiscount,
			IsPercent:            r.IsPercent,
			IsSocialCare:         r.IsSocialCare,
			IsTax:                r.IsTax,
			IsMembershipFee:      r.IsMembershipFee,
			IsLinkedPensionFund:  r.IsLinkedPensionFund,
			IsSeniorityBonus:     r.IsSeniorityBonus,
			IsFamilyAllowances:   r.IsFamilyAllowances,
			IsAssociatedEmployee: r.IsAssociatedEmployee,
			Value:                r.Value,
			DebtorAccountID:      int(r.DebtorAccountID),
			ExpenseAccountID:     int(r.ExpenseAccountID),
		})
	}
	for _, e := range rc.Employees {
		cj.Employees = append(cj.Employees, EmployeeJSON{
			UUID:         string(e.ID),
			DisplayName:  e.DisplayName,
			CreditorUUID: string(e.CreditorID),
			CostCenterID: int(e.CostCenter),
			BasicSalary:  e.BasicSalary.Value,
			CurrencyID:   int(e.BasicSalary.Currency),
			HireDate:     e.HireDate.Format(dateLayout),
			Dependents:   e.Dependents,
		})
	}
	return cj
}
