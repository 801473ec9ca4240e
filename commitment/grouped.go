/*
grouped.go - The "groupedCommitments" strategy

PURPOSE:
  Like the default strategy, but expense lines are aggregated by cost
  center (derived from each employee's service assignment) instead of by
  employee, producing fewer, coarser voucher-item lines. Credits owed to
  employees stay per-employee: traceability on the liability side survives
  the grouping. Selected when the posting mode is 'grouped'.
*/
package commitment

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/third-culture-software/payroll-engine/payroll"
)

type groupedStrategy struct{}

func (groupedStrategy) Mode() Mode { return ModeGrouped }

func (s groupedStrategy) Build(in Input) ([]Voucher, error) {
	totals, err := Reduce(in.Payslips)
	if err != nil {
		return nil, err
	}

	var vouchers []Voucher

	commitment := newVoucher(in, in.Types.Commitment, fmt.Sprintf("%s: salary commitment", in.Label))
	for _, cc := range sortedCostCenters(totals.BasicByCC) {
		amount := totals.BasicByCC[cc]
		if amount.IsZero() {
			continue
		}
		commitment.Items = append(commitment.Items,
			debit(in.Accounts.CommitmentAccount, amount, "", cc,
				fmt.Sprintf("basic salaries, cost center %d", cc)))
	}
	for _, r := range totals.CategoryRubrics(payroll.CategoryBenefit) {
		for _, cc := range sortedRubricCostCenters(totals, r.ID) {
			amount := totals.ByRubricCC[rubricCostKey{Rubric: r.ID, CostCenter: cc}]
			if amount.IsZero() {
				continue
			}
			commitment.Items = append(commitment.Items,
				debit(expenseAccount(r), amount, "", cc,
					fmt.Sprintf("%s, cost center %d", r.Abbreviation, cc)))
		}
	}
	for _, et := range totals.PerEmployee {
		if et.Gross.IsPositive() {
			commitment.Items = append(commitment.Items,
				credit(in.Accounts.PayableAccount, et.Gross, string(et.Creditor),
					fmt.Sprintf("gross salary %s", et.Employee)))
		}
	}
	if vouchers, err = appendSealed(vouchers, commitment); err != nil {
		return nil, err
	}

	withholding := newVoucher(in, in.Types.Withholding, fmt.Sprintf("%s: withholdings", in.Label))
	for _, et := range totals.PerEmployee {
		amount := et.ByCategory[payroll.CategoryWithholding]
		if amount.IsZero() {
			continue
		}
		withholding.Items = append(withholding.Items,
			debit(in.Accounts.PayableAccount, amount, string(et.Creditor), 0,
				fmt.Sprintf("withheld from %s", et.Employee)))
	}
	for _, r := range totals.CategoryRubrics(payroll.CategoryWithholding) {
		amount := totals.ByRubric[r.ID]
		if amount.IsZero() {
			continue
		}
		withholding.Items = append(withholding.Items, credit(debtorAccount(r), amount, "", r.Label))
	}
	if vouchers, err = appendSealed(vouchers, withholding); err != nil {
		return nil, err
	}

	taxes, err := s.employerCharges(in, totals, payroll.CategoryPayrollTax,
		in.Types.PayrollTax, fmt.Sprintf("%s: payroll taxes", in.Label))
	if err != nil {
		return nil, err
	}
	if vouchers, err = appendSealed(vouchers, taxes); err != nil {
		return nil, err
	}

	pension, err := s.employerCharges(in, totals, payroll.CategoryPensionFund,
		in.Types.PensionFund, fmt.Sprintf("%s: pension fund", in.Label))
	if err != nil {
		return nil, err
	}
	if vouchers, err = appendSealed(vouchers, pension); err != nil {
		return nil, err
	}

	return vouchers, nil
}

// employerCharges groups the expense debits by (rubric, cost center).
func (groupedStrategy) employerCharges(in Input, totals Totals, cat payroll.RubricCategory, typeID int, desc string) (Voucher, error) {
	v := newVoucher(in, typeID, desc)
	for _, r := range totals.CategoryRubrics(cat) {
		for _, cc := range sortedRubricCostCenters(totals, r.ID) {
			amount := totals.ByRubricCC[rubricCostKey{Rubric: r.ID, CostCenter: cc}]
			if amount.IsZero() {
				continue
			}
			v.Items = append(v.Items,
				debit(expenseAccount(r), amount, "", cc,
					fmt.Sprintf("%s, cost center %d", r.Abbreviation, cc)))
		}
		total := totals.ByRubric[r.ID]
		if total.IsZero() {
			continue
		}
		v.Items = append(v.Items, credit(debtorAccount(r), total, "", r.Label))
	}
	return v, nil
}

// Sorted key helpers keep voucher item order deterministic.

func sortedCostCenters(m map[payroll.CostCenterID]decimal.Decimal) []payroll.CostCenterID {
	out := make([]payroll.CostCenterID, 0, len(m))
	for cc := range m {
		out = append(out, cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedRubricCostCenters(totals Totals, id payroll.RubricID) []payroll.CostCenterID {
	var out []payroll.CostCenterID
	for key := range totals.ByRubricCC {
		if key.Rubric == id {
			out = append(out, key.CostCenter)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
