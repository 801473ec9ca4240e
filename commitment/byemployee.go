/*
byemployee.go - The "commitmentByEmployee" strategy

PURPOSE:
  Emits one complete voucher set per employee rather than aggregating:
  maximal traceability at the cost of transaction volume. Selected when the
  posting mode is 'individually'. Category vouchers with nothing in them
  for a given employee are skipped, so an employee with no withholdings
  produces only a commitment voucher.
*/
package commitment

import (
	"fmt"

	"github.com/third-culture-software/payroll-engine/payroll"
)

type byEmployeeStrategy struct{}

func (byEmployeeStrategy) Mode() Mode { return ModeIndividually }

func (s byEmployeeStrategy) Build(in Input) ([]Voucher, error) {
	totals, err := Reduce(in.Payslips)
	if err != nil {
		return nil, err
	}

	var vouchers []Voucher
	for _, et := range totals.PerEmployee {
		vouchers, err = s.buildForEmployee(in, totals, et, vouchers)
		if err != nil {
			return nil, err
		}
	}
	return vouchers, nil
}

func (s byEmployeeStrategy) buildForEmployee(in Input, totals Totals, et EmployeeTotals, vouchers []Voucher) ([]Voucher, error) {
	var err error

	commitment := newVoucher(in, in.Types.Commitment,
		fmt.Sprintf("%s: salary commitment %s", in.Label, et.Employee))
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
	if vouchers, err = appendSealed(vouchers, commitment); err != nil {
		return nil, err
	}

	withholding := newVoucher(in, in.Types.Withholding,
		fmt.Sprintf("%s: withholdings %s", in.Label, et.Employee))
	if total := et.ByCategory[payroll.CategoryWithholding]; !total.IsZero() {
		withholding.Items = append(withholding.Items,
			debit(in.Accounts.PayableAccount, total, string(et.Creditor), 0,
				fmt.Sprintf("withheld from %s", et.Employee)))
		for _, r := range totals.CategoryRubrics(payroll.CategoryWithholding) {
			amount := et.ByRubric[r.ID]
			if amount.IsZero() {
				continue
			}
			withholding.Items = append(withholding.Items,
				credit(debtorAccount(r), amount, string(et.Creditor), r.Label))
		}
	}
	if vouchers, err = appendSealed(vouchers, withholding); err != nil {
		return nil, err
	}

	for _, charge := range []struct {
		cat    payroll.RubricCategory
		typeID int
		label  string
	}{
		{payroll.CategoryPayrollTax, in.Types.PayrollTax, "payroll taxes"},
		{payroll.CategoryPensionFund, in.Types.PensionFund, "pension fund"},
	} {
		v := newVoucher(in, charge.typeID,
			fmt.Sprintf("%s: %s %s", in.Label, charge.label, et.Employee))
		for _, r := range totals.CategoryRubrics(charge.cat) {
			amount := et.ByRubric[r.ID]
			if amount.IsZero() {
				continue
			}
			v.Items = append(v.Items,
				debit(expenseAccount(r), amount, string(et.Creditor), et.CostCenter,
					fmt.Sprintf("%s %s", r.Abbreviation, et.Employee)))
			v.Items = append(v.Items,
				credit(debtorAccount(r), amount, string(et.Creditor), r.Label))
		}
		if vouchers, err = appendSealed(vouchers, v); err != nil {
			return nil, err
		}
	}

	return vouchers, nil
}
