/*
Package commitment turns computed payslips into balanced double-entry
vouchers and sequences them for atomic persistence.

PURPOSE:
  A payroll run creates an accounting obligation: salaries owed to
  employees, amounts withheld on their behalf, employer payroll charges,
  and pension fund allocations. Each category becomes one or more vouchers
  (transaction headers) with debit/credit item lines. Three interchangeable
  strategies decide how finely the lines are cut:

    default      one voucher per category, one line per employee
    grouped      expense lines aggregated by cost center
    individually one complete voucher set per employee

CRITICAL INVARIANT:
  For every voucher, sum(debit) == sum(credit) within 0.01 currency units.
  The emitter refuses to sequence an unbalanced voucher.

SIGN CONVENTIONS:
  Expense accounts are debited; the employees' creditor (liability) account
  is credited for money owed to them. Withholdings reverse the flow: the
  creditor account is debited and the rubric's debtor account credited.

SEE ALSO:
  - totals.go: The shared classify+total reduce stage
  - strategy.go: Strategy interface and mode registry
  - emitter.go: Ordered operation list consumed by the store executor
*/
package commitment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/third-culture-software/payroll-engine/payroll"
)

// =============================================================================
// VOUCHER / VOUCHER ITEM
// =============================================================================

// Voucher is a balanced transaction header. Immutable after posting except
// for the reversed flag, which lives in the store.
type Voucher struct {
	ID          string
	Date        time.Time
	TypeID      int
	Description string
	Currency    payroll.CurrencyID
	Amount      decimal.Decimal // total of the debit side, rounded to 2dp
	Items       []VoucherItem
}

// VoucherItem is one debit or credit line of a voucher.
type VoucherItem struct {
	ID        string
	AccountID payroll.AccountID
	Debit     decimal.Decimal
	Credit    decimal.Decimal

	// EntityID points at the employee's creditor account for traceability;
	// empty on aggregated lines.
	EntityID string

	// CostCenter attributes expense lines to an organizational grouping;
	// zero when not applicable.
	CostCenter payroll.CostCenterID

	Description string
}

// balanceTolerance absorbs 2dp rounding on individual lines.
var balanceTolerance = decimal.NewFromFloat(0.01)

// Balanced reports whether debits equal credits within tolerance.
func (v Voucher) Balanced() bool {
	debit, credit := decimal.Zero, decimal.Zero
	for _, it := range v.Items {
		debit = debit.Add(it.Debit)
		credit = credit.Add(it.Credit)
	}
	return debit.Sub(credit).Abs().LessThanOrEqual(balanceTolerance)
}

// DebitTotal returns the sum of the debit side.
func (v Voucher) DebitTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range v.Items {
		total = total.Add(it.Debit)
	}
	return total
}

// =============================================================================
// COMMITMENT INPUT
// =============================================================================

// Accounts names the fixed accounts a payroll run posts against, alongside
// the per-rubric accounts carried on each rubric.
type Accounts struct {
	// CommitmentAccount is the expense account the base salary commitment
	// is debited to.
	CommitmentAccount payroll.AccountID

	// PayableAccount is the liability account credited for amounts owed to
	// employees; lines carry the employee's creditor uuid as entity.
	PayableAccount payroll.AccountID
}

// TransactionTypes maps each voucher category to its transaction type id.
type TransactionTypes struct {
	Commitment  int
	Withholding int
	PayrollTax  int
	PensionFund int
}

// Input is the common contract for every strategy.
type Input struct {
	Period   payroll.PayPeriod
	Date     time.Time // voucher date, usually the period end
	Currency payroll.CurrencyID

	Payslips []payroll.Payslip

	Accounts Accounts
	Types    TransactionTypes

	// Label prefix for voucher descriptions, e.g. the period label.
	Label string
}
