/*
totals.go - The shared classify+total stage

PURPOSE:
  Every strategy starts from the same aggregation of payslips: per-employee
  category totals, per-rubric sums across employees, and per-rubric sums by
  cost center. The reductions here build new records from the payslip lines
  and never mutate their inputs, so strategies can run over the same slice
  safely in any order.

ACCOUNT CHECK:
  A rubric that reaches this stage with neither a debtor nor an expense
  account is a configuration error. Upstream queries normally filter these
  out, so seeing one here means the configuration is broken; it is reported,
  never silently skipped.
*/
package commitment

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/third-culture-software/payroll-engine/payroll"
)

// =============================================================================
// TOTALS RECORDS
// =============================================================================

// EmployeeTotals is the per-employee view of one payslip, reduced to the
// figures vouchers need.
type EmployeeTotals struct {
	Employee   payroll.EmployeeID
	Creditor   payroll.CreditorID
	CostCenter payroll.CostCenterID

	Basic decimal.Decimal
	Gross decimal.Decimal
	Net   decimal.Decimal

	ByCategory map[payroll.RubricCategory]decimal.Decimal
	ByRubric   map[payroll.RubricID]decimal.Decimal
}

// rubricCostKey keys per-rubric, per-cost-center expense aggregation.
type rubricCostKey struct {
	Rubric     payroll.RubricID
	CostCenter payroll.CostCenterID
}

// Totals is the immutable output of the reduce stage.
type Totals struct {
	Basic decimal.Decimal

	ByCategory map[payroll.RubricCategory]decimal.Decimal
	ByRubric   map[payroll.RubricID]decimal.Decimal
	ByRubricCC map[rubricCostKey]decimal.Decimal
	BasicByCC  map[payroll.CostCenterID]decimal.Decimal

	PerEmployee []EmployeeTotals

	// Rubrics seen across all payslips, keyed by id, for account lookups.
	Rubrics map[payroll.RubricID]payroll.Rubric
}

// CategoryRubrics returns the rubrics of a category in stable (id) order.
func (t Totals) CategoryRubrics(cat payroll.RubricCategory) []payroll.Rubric {
	var out []payroll.Rubric
	for _, r := range t.Rubrics {
		if payroll.Classify(r) == cat {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =============================================================================
// REDUCE
// =============================================================================

// Reduce aggregates payslips into Totals. It returns a configuration error
// if any rubric line carries a rubric with no usable account.
func Reduce(slips []payroll.Payslip) (Totals, error) {
	t := Totals{
		Basic:      decimal.Zero,
		ByCategory: make(map[payroll.RubricCategory]decimal.Decimal),
		ByRubric:   make(map[payroll.RubricID]decimal.Decimal),
		ByRubricCC: make(map[rubricCostKey]decimal.Decimal),
		BasicByCC:  make(map[payroll.CostCenterID]decimal.Decimal),
		Rubrics:    make(map[payroll.RubricID]payroll.Rubric),
	}

	for _, slip := range slips {
		et := EmployeeTotals{
			Employee:   slip.Employee,
			Creditor:   slip.Creditor,
			CostCenter: slip.CostCenter,
			Basic:      slip.BasicSalary.Value,
			Gross:      slip.GrossSalary.Value,
			Net:        slip.NetSalary.Value,
			ByCategory: make(map[payroll.RubricCategory]decimal.Decimal),
			ByRubric:   make(map[payroll.RubricID]decimal.Decimal),
		}

		t.Basic = t.Basic.Add(slip.BasicSalary.Value)
		t.BasicByCC[slip.CostCenter] = t.BasicByCC[slip.CostCenter].Add(slip.BasicSalary.Value)

		for _, line := range slip.Lines {
			r := line.Rubric
			if r.DebtorAccountID == 0 && r.ExpenseAccountID == 0 {
				return Totals{}, &payroll.MissingAccountError{Rubric: r.ID, Label: r.Label}
			}
			t.Rubrics[r.ID] = r

			v := line.Amount.Value
			et.ByCategory[line.Category] = et.ByCategory[line.Category].Add(v)
			et.ByRubric[r.ID] = et.ByRubric[r.ID].Add(v)

			t.ByCategory[line.Category] = t.ByCategory[line.Category].Add(v)
			t.ByRubric[r.ID] = t.ByRubric[r.ID].Add(v)
			t.ByRubricCC[rubricCostKey{Rubric: r.ID, CostCenter: slip.CostCenter}] =
				t.ByRubricCC[rubricCostKey{Rubric: r.ID, CostCenter: slip.CostCenter}].Add(v)
		}

		t.PerEmployee = append(t.PerEmployee, et)
	}

	return t, nil
}
