/*
salary.go - Salary composition for one employee and one pay period

PURPOSE:
  Turns employee base data, worked days, paid absences, and the normalized
  rubric set into a Payslip: basic, gross, and net salary plus every valued
  rubric line. This is the heart of the calculation pipeline; the commitment
  builder consumes its output unchanged.

PIPELINE:
  1. paidDays     = workedDays + sum of absence day equivalents
  2. basicSalary  = baseSalary x paidDays / workingDaysInPeriod,
                    converted into the payment currency
  3. Benefits valued first (seniority, family allowance, percent, flat),
     split into taxable and non-taxable
  4. baseTaxable  = basicSalary + taxable benefits
  5. Deductions valued against baseTaxable (contributions, income tax via
     the bracket scale) or basicSalary (plain percent), or taken flat
  6. grossSalary  = baseTaxable + non-taxable benefits
     netSalary    = grossSalary - employee-borne deductions

INVARIANT:
  Every monetary input is converted into the payment currency before it
  enters a sum. Rubrics must come from NormalizeRubrics; raw Rubric values
  are never accepted here.

MISSING SCALE:
  When no bracket table is configured, income-tax rubrics are kept at zero
  instead of failing the run.
*/
package payroll

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// =============================================================================
// COMPOSITION INPUT
// =============================================================================

// CompositionInput carries everything needed to compose one payslip.
type CompositionInput struct {
	Employee   Employee
	Period     PayPeriod
	WorkedDays int
	Absences   []PaidAbsence

	// Rubrics must already be normalized (see currency.go).
	Rubrics []NormalizedRubric

	Rates RateSet

	// Scale is the progressive tax bracket table; nil skips income-tax
	// rubrics entirely.
	Scale *TaxScale
}

// =============================================================================
// COMPOSER
// =============================================================================

// Composer computes payslips. It is stateless and safe for reuse.
type Composer struct{}

// Compose builds the payslip for one employee.
func (Composer) Compose(in CompositionInput) (Payslip, error) {
	if err := in.Period.Validate(); err != nil {
		return Payslip{}, err
	}

	workingDays := decimal.NewFromInt(int64(in.Period.WorkingDays))
	daily := in.Employee.BasicSalary.Value.Div(workingDays)

	// Worked days plus paid absences, as day equivalents. Multiplying the
	// salary by the day total before dividing keeps full attendance exactly
	// equal to the contractual salary; dividing first loses precision.
	paidDays := decimal.NewFromInt(int64(in.WorkedDays))
	for _, a := range in.Absences {
		paidDays = paidDays.Add(a.DayEquivalent())
	}
	earned := in.Employee.BasicSalary.Value.Mul(paidDays).Div(workingDays)

	basic, err := in.Rates.Convert(Money{Value: earned, Currency: in.Employee.BasicSalary.Currency})
	if err != nil {
		return Payslip{}, err
	}
	dailyConverted, err := in.Rates.Convert(Money{Value: daily, Currency: in.Employee.BasicSalary.Currency})
	if err != nil {
		return Payslip{}, err
	}

	years := SeniorityYears(in.Employee.HireDate, in.Period.End)
	dependents := decimal.NewFromInt(int64(in.Employee.Dependents))

	slip := Payslip{
		Employee:    in.Employee.ID,
		Creditor:    in.Employee.CreditorID,
		CostCenter:  in.Employee.CostCenter,
		DailySalary: dailyConverted,
		BasicSalary: basic,
	}

	taxable := basic.Zero()
	nonTaxable := basic.Zero()

	// Benefits first: the taxable base depends on them.
	for _, r := range in.Rubrics {
		if !IsBenefit(r.Rubric) {
			continue
		}
		amount := valueBenefit(r, basic, years, dependents)
		slip.Lines = append(slip.Lines, RubricLine{Rubric: r.Rubric, Category: CategoryBenefit, Amount: amount})
		if IsTaxableBenefit(r.Rubric) {
			taxable = taxable.Add(amount)
		} else {
			nonTaxable = nonTaxable.Add(amount)
		}
	}

	baseTaxable := basic.Add(taxable)

	withheld := basic.Zero()
	for _, r := range in.Rubrics {
		if IsBenefit(r.Rubric) {
			continue
		}
		amount, err := valueDeduction(r, basic, baseTaxable, in)
		if err != nil {
			return Payslip{}, err
		}
		category := Classify(r.Rubric)
		slip.Lines = append(slip.Lines, RubricLine{Rubric: r.Rubric, Category: category, Amount: amount})
		if category == CategoryWithholding {
			withheld = withheld.Add(amount)
		}
	}

	slip.TaxableTotal = taxable
	slip.NonTaxableTotal = nonTaxable
	slip.BaseTaxable = baseTaxable
	slip.GrossSalary = baseTaxable.Add(nonTaxable)
	slip.WithholdingTotal = withheld
	slip.NetSalary = slip.GrossSalary.Sub(withheld)
	return slip, nil
}

// valueBenefit applies the rubric formula for a non-discount rubric.
func valueBenefit(r NormalizedRubric, basic Money, seniorityYears int, dependents decimal.Decimal) Money {
	switch {
	case r.IsSeniorityBonus:
		// basic x rate x years of seniority
		v := basic.Value.Mul(r.Normalized).Mul(decimal.NewFromInt(int64(seniorityYears)))
		return Money{Value: v, Currency: basic.Currency}
	case r.IsFamilyAllowances:
		return Money{Value: r.Normalized.Mul(dependents), Currency: basic.Currency}
	case r.IsPercent:
		return Money{Value: basic.Value.Mul(r.Normalized).Div(hundred), Currency: basic.Currency}
	default:
		return Money{Value: r.Normalized, Currency: basic.Currency}
	}
}

// valueDeduction applies the rubric formula for a discount rubric. Income-tax
// rubrics run through the bracket scale; contribution percentages apply to
// the taxable base; plain percentages apply to the basic salary.
func valueDeduction(r NormalizedRubric, basic, baseTaxable Money, in CompositionInput) (Money, error) {
	switch {
	case IsIncomeTax(r.Rubric):
		if in.Scale == nil {
			return basic.Zero(), nil
		}
		annual, err := in.Rates.ConvertTo(baseTaxable, in.Scale.Currency)
		if err != nil {
			return Money{}, err
		}
		annual = annual.Mul(decimal.NewFromInt(12))
		calc := TaxCalculator{Scale: *in.Scale}
		return calc.MonthlyTax(annual, in.Employee.Dependents, in.Rates)
	case r.IsPercent && (r.IsMembershipFee || r.IsTax):
		return Money{Value: baseTaxable.Value.Mul(r.Normalized).Div(hundred), Currency: basic.Currency}, nil
	case r.IsPercent:
		return Money{Value: basic.Value.Mul(r.Normalized).Div(hundred), Currency: basic.Currency}, nil
	default:
		return Money{Value: r.Normalized, Currency: basic.Currency}, nil
	}
}

// ComposeAll composes payslips for a whole run, sequentially, aborting on
// the first error: a configuration error must leave nothing persisted.
func (c Composer) ComposeAll(employees []Employee, base CompositionInput, roster map[EmployeeID]RosterEntry) ([]Payslip, error) {
	slips := make([]Payslip, 0, len(employees))
	for _, emp := range employees {
		in := base
		in.Employee = emp
		if entry, ok := roster[emp.ID]; ok {
			in.WorkedDays = entry.WorkedDays
			in.Absences = entry.Absences
		} else {
			in.WorkedDays = base.Period.WorkingDays
			in.Absences = nil
		}
		slip, err := c.Compose(in)
		if err != nil {
			return nil, err
		}
		slips = append(slips, slip)
	}
	return slips, nil
}

// RosterEntry is the per-employee attendance input for one period.
type RosterEntry struct {
	EmployeeID EmployeeID
	WorkedDays int
	Absences   []PaidAbsence
}
