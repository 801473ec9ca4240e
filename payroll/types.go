/*
Package payroll provides the core payroll calculation engine.

PURPOSE:
  This package contains the types and algorithms for computing employee
  salaries for a pay period: base salary from worked days, paid absences,
  rubric valuation (allowances, deductions, taxes), progressive income tax,
  and the gross/net breakdown that the commitment builder turns into
  double-entry vouchers.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal amount tagged with its currency
  - Rubric: A configurable payroll line item (allowance, deduction, or tax)
  - Employee: The payroll-relevant subset of an employee record
  - PaidAbsence: An off-day or holiday block paid at a percentage of the
    daily rate

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. Purity: Nothing in this package performs I/O; inputs are plain values
  3. Single conversion point: Currency conversion happens exactly once per
     rubric (see currency.go), never mid-summation
  4. Type Safety: Strong typing for IDs prevents mixing employees/accounts

SEE ALSO:
  - rubric.go: Classification predicates over rubric flags
  - scale.go: Progressive tax bracket tables and the tax calculator
  - salary.go: Salary composition per employee
  - currency.go: Exchange rates and rubric normalization
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amount tagged with its currency
// =============================================================================

// CurrencyID identifies a currency. The enterprise currency is the one
// exchange rates are expressed against (rate 1).
type CurrencyID int

type Money struct {
	Value    decimal.Decimal
	Currency CurrencyID
}

func NewMoney(value float64, currency CurrencyID) Money {
	return Money{Value: decimal.NewFromFloat(value), Currency: currency}
}

func ZeroMoney(currency CurrencyID) Money {
	return Money{Value: decimal.Zero, Currency: currency}
}

func (m Money) Zero() Money                   { return Money{Value: decimal.Zero, Currency: m.Currency} }
func (m Money) Add(o Money) Money             { return Money{Value: m.Value.Add(o.Value), Currency: m.Currency} }
func (m Money) Sub(o Money) Money             { return Money{Value: m.Value.Sub(o.Value), Currency: m.Currency} }
func (m Money) Mul(s decimal.Decimal) Money   { return Money{Value: m.Value.Mul(s), Currency: m.Currency} }
func (m Money) Div(s decimal.Decimal) Money   { return Money{Value: m.Value.Div(s), Currency: m.Currency} }
func (m Money) Neg() Money                    { return Money{Value: m.Value.Neg(), Currency: m.Currency} }
func (m Money) IsZero() bool                  { return m.Value.IsZero() }
func (m Money) IsNegative() bool              { return m.Value.IsNegative() }
func (m Money) IsPositive() bool              { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool            { return m.Value.Equal(o.Value) && m.Currency == o.Currency }
func (m Money) GreaterThan(o Money) bool      { return m.Value.GreaterThan(o.Value) }

// Round2 rounds to 2 decimal places, half away from zero. This is the only
// documented rounding point in the pipeline; intermediate values stay exact.
func (m Money) Round2() Money {
	return Money{Value: m.Value.Round(2), Currency: m.Currency}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string  // employee uuid
type CreditorID string  // the employee's personal creditor account uuid
type RubricID string
type AccountID int      // ledger account reference (0 = unset)
type CostCenterID int   // organizational grouping for expense attribution

// =============================================================================
// RUBRIC - Configurable payroll line item
// =============================================================================

// Rubric defines a pay or deduction line item. The meaning of Value depends
// on the flags: a percentage of the base for percent rubrics, a scale factor
// for seniority rubrics, a flat per-dependent amount for family allowances,
// and a flat currency amount otherwise.
//
// Flat amounts are authored in the enterprise currency and must pass through
// NormalizeRubrics before any arithmetic (see currency.go).
type Rubric struct {
	ID           RubricID
	Label        string
	Abbreviation string

	// Formula flags
	IsEmployee          bool // borne by the employee (vs. the employer)
	IsDiscount          bool // deduction (vs. benefit)
	IsPercent           bool // Value is a percentage of the base
	IsSocialCare        bool // non-taxable benefit
	IsTax               bool // income tax rubric, valued via the bracket scale
	IsMembershipFee     bool // contribution computed on the taxable base
	IsLinkedPensionFund bool // pension fund allocation
	IsSeniorityBonus    bool // Value scales with years of seniority
	IsFamilyAllowances  bool // Value is per dependent
	IsAssociatedEmployee bool

	Value decimal.Decimal

	// Ledger accounts used when emitting vouchers. At least one must be set
	// for any rubric that reaches the commitment builder.
	DebtorAccountID  AccountID
	ExpenseAccountID AccountID
}

// =============================================================================
// EMPLOYEE - Payroll-relevant subset
// =============================================================================

type Employee struct {
	ID          EmployeeID
	DisplayName string
	CreditorID  CreditorID
	CostCenter  CostCenterID

	// Individual or grade-linked base salary, in the employee's currency.
	BasicSalary Money

	HireDate   time.Time
	Dependents int
}

// =============================================================================
// PAID ABSENCE - Off-day or holiday block paid at a fraction of daily rate
// =============================================================================

// PaidAbsence covers both configured off-days and holidays: a number of days
// paid at Percentage of the daily rate.
type PaidAbsence struct {
	Label      string
	Days       int
	Percentage decimal.Decimal // 0..100
}

// DayEquivalent expresses the absence as a count of fully paid days.
func (a PaidAbsence) DayEquivalent() decimal.Decimal {
	return decimal.NewFromInt(int64(a.Days)).Mul(a.Percentage).Div(decimal.NewFromInt(100))
}

// =============================================================================
// RUBRIC LINE - A valued rubric on a payslip
// =============================================================================

// RubricCategory is the commitment-facing classification of a valued rubric.
type RubricCategory string

const (
	CategoryBenefit     RubricCategory = "benefit"
	CategoryWithholding RubricCategory = "withholding"
	CategoryPayrollTax  RubricCategory = "payroll_tax"
	CategoryPensionFund RubricCategory = "pension_fund"
)

// RubricLine is one valued rubric for one employee, in payment currency.
type RubricLine struct {
	Rubric   Rubric
	Category RubricCategory
	Amount   Money
}

// =============================================================================
// PAYSLIP - Computed salary figures for one employee
// =============================================================================

// Payslip holds the per-employee output of the salary composer. All amounts
// are in the payment currency. Values are exact decimals; rounding to 2dp is
// applied only at the persistence/voucher boundary.
type Payslip struct {
	Employee EmployeeID
	Creditor CreditorID
	CostCenter CostCenterID

	DailySalary Money
	BasicSalary Money

	// Category sums. BaseTaxable = BasicSalary + TaxableTotal.
	TaxableTotal    Money
	NonTaxableTotal Money
	BaseTaxable     Money

	GrossSalary Money
	NetSalary   Money

	// Employee-borne deductions already subtracted from gross.
	WithholdingTotal Money

	Lines []RubricLine
}
