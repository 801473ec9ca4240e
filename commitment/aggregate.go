/*
aggregate.go - The default "commitments" strategy

PURPOSE:
  One voucher for the aggregate base-salary + benefits commitment across all
  employees, then one voucher each for aggregate withholdings, payroll
  taxes, and pension fund allocations, skipping empty categories. Employee
  detail is kept as one item line per employee per category, with the
  employee's creditor uuid as the line entity for traceability.

VOUCHER SHAPES:
  commitment   debit  commitment account (basic, per employee)
               debit  benefit rubric expense accounts (per employee)
               credit payable account (gross, per employee, entity set)
  withholding  debit  payable account (per employee, entity set)
               credit rubric debtor accounts (aggregate per rubric)
  payroll tax  debit  rubric expense accounts (per employee)
  / pension    credit rubric debtor accounts (aggregate per rubric)
*/
package commitment

import (
	"fmt"

	"github.com/third-culture-software/payroll-engine/payroll"
)

type aggregateStrategy struct{}

func (aggregateStrategy) Mode() Mode { return ModeDefault }

func (s aggregateStrategy) Build(in Input) ([]Voucher, error) {
	totals, err := Reduce(in.Payslips)
	if err != nil {
		return nil, err
	}

	var vouchers []Voucher

	commitment := newVoucher(in, in.Types.Commitment, fmt.Sprintf("%s: salary commitment", in.Label))
	for _, et := range totals.PerEmployee {
		if et.Basic.IsPositive() {
			commitment.Items = append(commitment.Items,
				debit(in.Accounts.CommitmentAccount, et.Basic, string(et.Creditor), et.CostCenter,
					fmt.Sprintf("basic salary %s", et.Employee)))
		}
		for _, r := range totals.CategoryRubrics(payroll.CategoryBenefit) {
			amount := et.ByRubric[r.ID]
			if amount.IsZero() {
				continue
			}
			commitment.Items = append(commitment.Items,
				debit(expenseAccount(r), amount, string(et.Creditor), et.CostCenter,
					fmt.Sprintf("%s %s", r.Abbreviation, et.Employee)))
		}
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
		withholding.Items = append(withholding.Items,
			credit(debtorAccount(r), amount, "", r.Label))
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

// employerCharges builds the employer-borne voucher for one category:
// expense debits per employee, debtor credits aggregated per rubric.
func (aggregateStrategy) employerCharges(in Input, totals Totals, cat payroll.RubricCategory, typeID int, desc string) (Voucher, error) {
	v := newVoucher(in, typeID, desc)
	rubrics := totals.CategoryRubrics(cat)
	for _, et := range totals.PerEmployee {
		for _, r := range rubrics {
			amount := et.ByRubric[r.ID]
			if amount.IsZero() {
				continue
			}
			v.Items = append(v.Items,
				debit(expenseAccount(r), amount, string(et.Creditor), et.CostCenter,
					fmt.Sprintf("%s %s", r.Abbreviation, et.Employee)))
		}
	}
	for _, r := range rubrics {
		amount := totals.ByRubric[r.ID]
		if amount.IsZero() {
			continue
		}
		v.Items = append(v.Items, credit(debtorAccount(r), amount, "", r.Label))
	}
	return v, nil
}

// expenseAccount prefers the rubric's expense account, falling back to the
// debtor account. Reduce guarantees at least one is set.
func expenseAccount(r payroll.Rubric) payroll.AccountID {
	if r.ExpenseAccountID != 0 {
		return r.ExpenseAccountID
	}
	return r.DebtorAccountID
}

func debtorAccount(r payroll.Rubric) payroll.AccountID {
	if r.DebtorAccountID != 0 {
		return r.DebtorAccountID
	}
	return r.ExpenseAccountID
}
