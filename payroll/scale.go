/*
scale.go - Progressive income tax bracket tables and the tax calculator

PURPOSE:
  Computes the monthly income tax (IPR in the source domain) from an
  annualized taxable base and an ordered bracket table. Each bracket carries
  a precomputed cumulative: the total tax owed at the top of that bracket.
  The cumulative is administrator-authored reference data, so Validate()
  checks it for internal consistency before any run uses the scale.

ALGORITHM:
  1. Find the bracket where start < annual <= end. A base at or below the
     first bracket's start owes nothing: zero-attendance employees are
     legitimate data, not a scale problem.
  2. annualTax = (annual - bracket.start) * bracket.rate/100
                 + previousBracket.cumulative   (0 for the first bracket)
  3. monthly = annualTax / 12
  4. monthly -= monthly * dependents*2 / 100    (2% per dependent, uncapped)
  5. Convert to payment currency, round half-up at 2 decimals.

FAILURE:
  A base above the top bracket has no matching bracket; that is a
  configuration error (NoApplicableBracketError), fatal to the whole run.
  It is never retried.

NOTE ON THE DEPENDENT REDUCTION:
  The reduction is uncapped, so 50 or more dependents drive the tax
  negative. That matches the reference behavior; callers who want a floor
  must apply it themselves.
*/
package payroll

import "github.com/shopspring/decimal"

// =============================================================================
// TAX BRACKET TABLE
// =============================================================================

// TaxBracket is one row of a progressive scale, over annual income.
// Cumulative is the total tax owed by income exactly at End: the previous
// bracket's Cumulative plus this bracket's full-range marginal tax.
type TaxBracket struct {
	Start      decimal.Decimal // tranche start, exclusive
	End        decimal.Decimal // tranche end, inclusive
	Rate       decimal.Decimal // percent
	Cumulative decimal.Decimal
}

// TaxScale is an ordered bracket table in a single currency.
type TaxScale struct {
	Currency CurrencyID
	Brackets []TaxBracket
}

// cumulTolerance absorbs rounding in authored cumulative values.
var cumulTolerance = decimal.NewFromFloat(0.01)

// Validate checks ordering, contiguity, and cumulative consistency.
func (s TaxScale) Validate() error {
	if len(s.Brackets) == 0 {
		return &ScaleError{Index: 0, Reason: "no brackets configured"}
	}
	prevCumul := decimal.Zero
	for i, b := range s.Brackets {
		if !b.End.GreaterThan(b.Start) {
			return &ScaleError{Index: i, Reason: "end must exceed start"}
		}
		if i > 0 && !b.Start.Equal(s.Brackets[i-1].End) {
			return &ScaleError{Index: i, Reason: "start must equal previous end"}
		}
		marginal := b.End.Sub(b.Start).Mul(b.Rate).Div(decimal.NewFromInt(100))
		expected := prevCumul.Add(marginal)
		if b.Cumulative.Sub(expected).Abs().GreaterThan(cumulTolerance) {
			return &ScaleError{Index: i, Reason: "cumulative inconsistent with lower brackets"}
		}
		prevCumul = b.Cumulative
	}
	return nil
}

// match returns the index of the bracket containing annual, or -1.
func (s TaxScale) match(annual decimal.Decimal) int {
	for i, b := range s.Brackets {
		if annual.GreaterThan(b.Start) && !annual.GreaterThan(b.End) {
			return i
		}
	}
	return -1
}

// =============================================================================
// TAX CALCULATOR
// =============================================================================

// TaxCalculator computes monthly tax liabilities against one scale.
type TaxCalculator struct {
	Scale TaxScale
}

// AnnualTax computes the annual tax in the scale currency, before the
// dependent reduction. annual must already be in the scale currency.
// Bases at or below the lowest bracket's floor owe zero tax.
func (tc TaxCalculator) AnnualTax(annual Money) (Money, error) {
	if len(tc.Scale.Brackets) > 0 && !annual.Value.GreaterThan(tc.Scale.Brackets[0].Start) {
		return Money{Value: decimal.Zero, Currency: tc.Scale.Currency}, nil
	}
	i := tc.Scale.match(annual.Value)
	if i < 0 {
		return Money{}, &NoApplicableBracketError{Annual: annual}
	}
	b := tc.Scale.Brackets[i]
	prevCumul := decimal.Zero
	if i > 0 {
		prevCumul = tc.Scale.Brackets[i-1].Cumulative
	}
	tax := annual.Value.Sub(b.Start).Mul(b.Rate).Div(decimal.NewFromInt(100)).Add(prevCumul)
	return Money{Value: tax, Currency: tc.Scale.Currency}, nil
}

// MonthlyTax computes the monthly liability for an annualized taxable base,
// applies the per-dependent reduction, and converts into the payment
// currency at paymentRate/scaleRate. The result is rounded to 2 decimals.
func (tc TaxCalculator) MonthlyTax(annual Money, dependents int, rs RateSet) (Money, error) {
	annualTax, err := tc.AnnualTax(annual)
	if err != nil {
		return Money{}, err
	}

	monthly := annualTax.Value.Div(decimal.NewFromInt(12))

	if dependents > 0 {
		reduction := monthly.Mul(decimal.NewFromInt(int64(dependents) * 2)).Div(decimal.NewFromInt(100))
		monthly = monthly.Sub(reduction)
	}

	scaleRate, err := rs.Rate(tc.Scale.Currency)
	if err != nil {
		return Money{}, err
	}
	paymentRate, err := rs.Rate(rs.Payment)
	if err != nil {
		return Money{}, err
	}

	converted := monthly.Mul(paymentRate).Div(scaleRate)
	return Money{Value: converted.Round(2), Currency: rs.Payment}, nil
}
