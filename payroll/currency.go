/*
currency.go - Exchange rates and the single currency-normalization step

PURPOSE:
  Flat rubric values are authored in the enterprise currency; percentages and
  scale factors are dimensionless. Mixing converted and unconverted values in
  a sum is the single most consequential bug class in a payroll pipeline, so
  conversion happens exactly once, here, before any arithmetic. Every rubric
  that leaves NormalizeRubrics is tagged as being in the payment currency.

RATE MODEL:
  Rates are expressed against the enterprise currency: Rates[c] is the number
  of units of currency c per one enterprise unit. The enterprise currency
  itself has rate 1. Converting from currency a to currency b multiplies by
  Rates[b]/Rates[a].

SEE ALSO:
  - salary.go: Consumes normalized rubrics only
  - scale.go: Converts computed tax from the scale currency
*/
package payroll

import "github.com/shopspring/decimal"

// =============================================================================
// EXCHANGE RATE SET
// =============================================================================

// RateSet holds the exchange rates in force for one payroll run, keyed by
// currency, relative to the enterprise currency.
type RateSet struct {
	Enterprise CurrencyID
	Payment    CurrencyID
	Rates      map[CurrencyID]decimal.Decimal
}

// Rate returns the rate for a currency. The enterprise currency is always 1.
func (rs RateSet) Rate(c CurrencyID) (decimal.Decimal, error) {
	if c == rs.Enterprise {
		return decimal.NewFromInt(1), nil
	}
	r, ok := rs.Rates[c]
	if !ok || r.IsZero() {
		return decimal.Zero, ErrMissingRate
	}
	return r, nil
}

// Convert converts an amount into the payment currency.
func (rs RateSet) Convert(m Money) (Money, error) {
	return rs.ConvertTo(m, rs.Payment)
}

// ConvertTo converts an amount into the target currency.
func (rs RateSet) ConvertTo(m Money, target CurrencyID) (Money, error) {
	if m.Currency == target {
		return m, nil
	}
	from, err := rs.Rate(m.Currency)
	if err != nil {
		return Money{}, err
	}
	to, err := rs.Rate(target)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: m.Value.Mul(to).Div(from), Currency: target}, nil
}

// =============================================================================
// NORMALIZED RUBRIC - Value guaranteed to be in payment currency
// =============================================================================

// NormalizedRubric is a rubric whose flat value, if any, has been converted
// into the payment currency. Scale-factor rubrics (percent, seniority,
// family-allowance per-dependent values authored as enterprise amounts) keep
// their meaning; only genuinely monetary values are converted.
type NormalizedRubric struct {
	Rubric

	// Value in payment currency for flat rubrics; the raw scale factor
	// otherwise.
	Normalized decimal.Decimal

	// Converted records whether a currency conversion was applied. Percent
	// and seniority rubrics are never converted.
	Converted bool
}

// NormalizeRubrics applies the conversion step once per rubric. Flat values
// and per-dependent family allowances are monetary and get converted;
// percentages and seniority factors pass through untouched.
func NormalizeRubrics(rubrics []Rubric, rs RateSet) ([]NormalizedRubric, error) {
	out := make([]NormalizedRubric, 0, len(rubrics))
	for _, r := range rubrics {
		nr := NormalizedRubric{Rubric: r, Normalized: r.Value}
		if !r.IsPercent && !r.IsSeniorityBonus {
			converted, err := rs.Convert(Money{Value: r.Value, Currency: rs.Enterprise})
			if err != nil {
				return nil, err
			}
			nr.Normalized = converted.Value
			nr.Converted = true
		}
		out = append(out, nr)
	}
	return out, nil
}
