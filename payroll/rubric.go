// rubric.go - Classification predicates over rubric flags.
//
// The flags are not independently orthogonal, so the predicates below must be
// read together: IsBenefit/IsWithholding split the employee-facing axis, and
// IsPayrollTax/IsPensionFund split the employer-borne discounts. Every
// well-formed rubric lands in exactly one category.
package payroll

// IsBenefit reports whether the rubric adds to the employee's salary.
func IsBenefit(r Rubric) bool {
	return !r.IsDiscount
}

// IsWithholding reports whether the rubric is withheld from the employee.
func IsWithholding(r Rubric) bool {
	return r.IsDiscount && r.IsEmployee
}

// IsPayrollTax reports whether the rubric is an employer charge that is not a
// pension fund allocation.
func IsPayrollTax(r Rubric) bool {
	return !r.IsEmployee && r.IsDiscount && !r.IsLinkedPensionFund
}

// IsPensionFund reports whether the rubric is an employer pension allocation.
func IsPensionFund(r Rubric) bool {
	return !r.IsEmployee && r.IsDiscount && r.IsLinkedPensionFund
}

// Classify returns the commitment category of a rubric.
func Classify(r Rubric) RubricCategory {
	switch {
	case IsBenefit(r):
		return CategoryBenefit
	case IsWithholding(r):
		return CategoryWithholding
	case IsPensionFund(r):
		return CategoryPensionFund
	default:
		return CategoryPayrollTax
	}
}

// IsTaxableBenefit reports whether a benefit rubric counts toward the taxable
// base. Social-care benefits are non-taxable.
func IsTaxableBenefit(r Rubric) bool {
	return IsBenefit(r) && !r.IsSocialCare
}

// IsIncomeTax reports whether the rubric is valued via the progressive
// bracket scale rather than its own Value.
func IsIncomeTax(r Rubric) bool {
	return r.IsTax && r.IsEmployee
}

// Partitioned groups rubrics by category without mutating the input slice.
type Partitioned struct {
	Benefits     []Rubric
	Withholdings []Rubric
	PayrollTaxes []Rubric
	PensionFunds []Rubric
}

// Partition splits rubrics into the four commitment categories in one pass.
func Partition(rubrics []Rubric) Partitioned {
	var p Partitioned
	for _, r := range rubrics {
		switch Classify(r) {
		case CategoryBenefit:
			p.Benefits = append(p.Benefits, r)
		case CategoryWithholding:
			p.Withholdings = append(p.Withholdings, r)
		case CategoryPensionFund:
			p.PensionFunds = append(p.PensionFunds, r)
		case CategoryPayrollTax:
			p.PayrollTaxes = append(p.PayrollTaxes, r)
		}
	}
	return p
}
