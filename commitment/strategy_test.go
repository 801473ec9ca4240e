package commitment_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/third-culture-software/payroll-engine/commitment"
	"github.com/third-culture-software/payroll-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const currencyUSD payroll.CurrencyID = 2

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func usd(s string) payroll.Money {
	return payroll.Money{Value: d(s), Currency: currencyUSD}
}

var (
	rubricPrime     = payroll.Rubric{ID: "prime", Label: "Prime", Abbreviation: "PRI", IsPercent: true, ExpenseAccountID: 6622}
	rubricTransport = payroll.Rubric{ID: "transport", Label: "Transport", Abbreviation: "TPR", IsSocialCare: true, ExpenseAccountID: 6621}
	rubricIPR       = payroll.Rubric{ID: "ipr", Label: "Income Tax IPR", Abbreviation: "IPR", IsEmployee: true, IsDiscount: true, IsTax: true, DebtorAccountID: 4421}
	rubricQPO       = payroll.Rubric{ID: "inss-qpo", Label: "INSS Employee Share", Abbreviation: "QPO", IsEmployee: true, IsDiscount: true, IsPercent: true, DebtorAccountID: 4011}
	rubricQPP       = payroll.Rubric{ID: "inss-qpp", Label: "INSS Employer Share", Abbreviation: "QPP", IsDiscount: true, IsPercent: true, DebtorAccountID: 4011, ExpenseAccountID: 6631}
	rubricPension   = payroll.Rubric{ID: "pension", Label: "Pension Fund", Abbreviation: "PEN", IsDiscount: true, IsLinkedPensionFund: true, DebtorAccountID: 4012, ExpenseAccountID: 6632}
)

// slip builds a payslip whose gross equals basic plus its benefit lines,
// the invariant the composer guarantees.
func slip(id string, cc payroll.CostCenterID, basic string, lines []payroll.RubricLine) payroll.Payslip {
	s := payroll.Payslip{
		Employee:    payroll.EmployeeID(id),
		Creditor:    payroll.CreditorID("cred-" + id),
		CostCenter:  cc,
		BasicSalary: usd(basic),
		Lines:       lines,
	}
	gross := s.BasicSalary
	withheld := usd("0")
	for _, line := range lines {
		switch line.Category {
		case payroll.CategoryBenefit:
			gross = gross.Add(line.Amount)
		case payroll.CategoryWithholding:
			withheld = withheld.Add(line.Amount)
		}
	}
	s.GrossSalary = gross
	s.WithholdingTotal = withheld
	s.NetSalary = gross.Sub(withheld)
	return s
}

func line(r payroll.Rubric, amount string) payroll.RubricLine {
	return payroll.RubricLine{Rubric: r, Category: payroll.Classify(r), Amount: usd(amount)}
}

func testInput(slips ...payroll.Payslip) commitment.Input {
	return commitment.Input{
		Period: payroll.PayPeriod{
			ID:          "2024-02",
			Start:       time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
			End:         time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
			WorkingDays: 21,
		},
		Date:     time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		Currency: currencyUSD,
		Payslips: slips,
		Accounts: commitment.Accounts{CommitmentAccount: 6611, PayableAccount: 4211},
		Types:    commitment.TransactionTypes{Commitment: 15, Withholding: 16, PayrollTax: 17, PensionFund: 18},
		Label:    "February 2024",
	}
}

// fullSlips covers every category across two cost centers.
func fullSlips() []payroll.Payslip {
	return []payroll.Payslip{
		slip("okonkwo", 1, "500", []payroll.RubricLine{
			line(rubricPrime, "50"),
			line(rubricTransport, "20"),
			line(rubricIPR, "60"),
			line(rubricQPO, "19.25"),
			line(rubricQPP, "27.50"),
			line(rubricPension, "11.40"),
		}),
		slip("mbuyi", 2, "225", []payroll.RubricLine{
			line(rubricPrime, "22.50"),
			line(rubricIPR, "12.10"),
			line(rubricQPO, "8.66"),
			line(rubricQPP, "12.38"),
			line(rubricPension, "5.13"),
		}),
	}
}

func debitTotal(v commitment.Voucher, account payroll.AccountID) decimal.Decimal {
	total := decimal.Zero
	for _, it := range v.Items {
		if it.AccountID == account {
			total = total.Add(it.Debit)
		}
	}
	return total
}

func byType(vouchers []commitment.Voucher, typeID int) []commitment.Voucher {
	var out []commitment.Voucher
	for _, v := range vouchers {
		if v.TypeID == typeID {
			out = append(out, v)
		}
	}
	return out
}

// =============================================================================
// MODE REGISTRY TESTS
// =============================================================================

func TestForMode(t *testing.T) {
	cases := []struct {
		mode commitment.Mode
		want commitment.Mode
	}{
		{commitment.ModeDefault, commitment.ModeDefault},
		{"", commitment.ModeDefault},
		{commitment.ModeGrouped, commitment.ModeGrouped},
		{commitment.ModeIndividually, commitment.ModeIndividually},
	}
	for _, tc := range cases {
		s, err := commitment.ForMode(tc.mode)
		require.NoError(t, err, "mode %q", tc.mode)
		assert.Equal(t, tc.want, s.Mode())
	}

	_, err := commitment.ForMode("sideways")
	assert.Error(t, err)
}

// =============================================================================
// BALANCE INVARIANT
// =============================================================================

func TestAllStrategies_VouchersBalance(t *testing.T) {
	// Every voucher any strategy produces must balance within 0.01 and
	// carry its rounded debit total as the amount.
	in := testInput(fullSlips()...)

	for _, mode := range []commitment.Mode{
		commitment.ModeDefault, commitment.ModeGrouped, commitment.ModeIndividually,
	} {
		s, err := commitment.ForMode(mode)
		require.NoError(t, err)

		vouchers, err := s.Build(in)
		require.NoError(t, err, "mode %s", mode)
		require.NotEmpty(t, vouchers, "mode %s", mode)

		for _, v := range vouchers {
			assert.True(t, v.Balanced(), "mode %s: voucher %s unbalanced", mode, v.Description)
			assert.True(t, v.Amount.Equal(v.DebitTotal().Round(2)),
				"mode %s: voucher %s amount %s != debit total %s", mode, v.Description, v.Amount, v.DebitTotal())
			assert.NotEmpty(t, v.Items, "mode %s: empty voucher emitted", mode)
		}
	}
}

// =============================================================================
// DEFAULT (AGGREGATE) STRATEGY
// =============================================================================

func TestAggregate_OneVoucherPerCategory(t *testing.T) {
	s, _ := commitment.ForMode(commitment.ModeDefault)
	vouchers, err := s.Build(testInput(fullSlips()...))
	require.NoError(t, err)

	require.Len(t, vouchers, 4)
	assert.Len(t, byType(vouchers, 15), 1, "commitment")
	assert.Len(t, byType(vouchers, 16), 1, "withholding")
	assert.Len(t, byType(vouchers, 17), 1, "payroll tax")
	assert.Len(t, byType(vouchers, 18), 1, "pension fund")
}

func TestAggregate_CommitmentVoucherFigures(t *testing.T) {
	// GIVEN: Two payslips with basics 500 and 225
	// WHEN: Building the default voucher set
	// THEN: The commitment voucher debits 725 on the commitment account
	//       and its amount equals the total gross

	s, _ := commitment.ForMode(commitment.ModeDefault)
	vouchers, err := s.Build(testInput(fullSlips()...))
	require.NoError(t, err)

	cv := byType(vouchers, 15)[0]
	assert.True(t, debitTotal(cv, 6611).Equal(d("725")),
		"basic debit total = %s", debitTotal(cv, 6611))
	// gross = 725 + benefits (50+20+22.50) = 817.50
	assert.True(t, cv.Amount.Equal(d("817.5")), "amount = %s", cv.Amount)

	// Gross credits carry the employee's creditor uuid as entity.
	entities := map[string]bool{}
	for _, it := range cv.Items {
		if it.Credit.IsPositive() {
			entities[it.EntityID] = true
		}
	}
	assert.True(t, entities["cred-okonkwo"] && entities["cred-mbuyi"])
}

func TestAggregate_WithholdingAggregatedPerRubric(t *testing.T) {
	s, _ := commitment.ForMode(commitment.ModeDefault)
	vouchers, err := s.Build(testInput(fullSlips()...))
	require.NoError(t, err)

	wv := byType(vouchers, 16)[0]
	// Debits: one per employee on the payable account. Credits: one per
	// withholding rubric, aggregated across employees.
	debits, credits := 0, 0
	for _, it := range wv.Items {
		if it.Debit.IsPositive() {
			debits++
		} else {
			credits++
		}
	}
	assert.Equal(t, 2, debits)
	assert.Equal(t, 2, credits) // ipr and inss-qpo

	// IPR credit is the sum over both employees: 60 + 12.10.
	for _, it := range wv.Items {
		if it.AccountID == 4421 {
			assert.True(t, it.Credit.Equal(d("72.1")), "ipr credit = %s", it.Credit)
		}
	}
}

func TestAggregate_SkipsEmptyCategories(t *testing.T) {
	// No pension lines, so no pension voucher.
	slips := []payroll.Payslip{
		slip("okonkwo", 1, "500", []payroll.RubricLine{
			line(rubricIPR, "60"),
		}),
	}
	s, _ := commitment.ForMode(commitment.ModeDefault)
	vouchers, err := s.Build(testInput(slips...))
	require.NoError(t, err)

	require.Len(t, vouchers, 2)
	assert.Empty(t, byType(vouchers, 17))
	assert.Empty(t, byType(vouchers, 18))
}

// =============================================================================
// GROUPED STRATEGY
// =============================================================================

func TestGrouped_BasicAggregatedByCostCenter(t *testing.T) {
	// GIVEN: Three employees across two cost centers
	// WHEN: Building the grouped voucher set
	// THEN: The commitment voucher has one basic debit per cost center
	//       while gross credits stay per employee

	slips := append(fullSlips(),
		slip("diallo", 1, "300", []payroll.RubricLine{
			line(rubricPrime, "30"),
		}))

	s, _ := commitment.ForMode(commitment.ModeGrouped)
	vouchers, err := s.Build(testInput(slips...))
	require.NoError(t, err)

	cv := byType(vouchers, 15)[0]

	basicDebits := 0
	grossCredits := 0
	for _, it := range cv.Items {
		if it.AccountID == 6611 && it.Debit.IsPositive() {
			basicDebits++
		}
		if it.AccountID == 4211 && it.Credit.IsPositive() {
			grossCredits++
		}
	}
	assert.Equal(t, 2, basicDebits, "one basic debit per cost center")
	assert.Equal(t, 3, grossCredits, "gross credits stay per employee")

	// Cost center 1 carries okonkwo (500) and diallo (300).
	assert.True(t, debitTotal(cv, 6611).Equal(d("1025")))
	assert.True(t, cv.Balanced())
}

func TestGrouped_ExpensesAggregatedByRubricAndCostCenter(t *testing.T) {
	// Two employees in the same cost center share one prime expense line.
	slips := []payroll.Payslip{
		slip("okonkwo", 1, "500", []payroll.RubricLine{line(rubricPrime, "50")}),
		slip("diallo", 1, "300", []payroll.RubricLine{line(rubricPrime, "30")}),
	}
	s, _ := commitment.ForMode(commitment.ModeGrouped)
	vouchers, err := s.Build(testInput(slips...))
	require.NoError(t, err)

	cv := byType(vouchers, 15)[0]
	primeLines := 0
	for _, it := range cv.Items {
		if it.AccountID == 6622 {
			primeLines++
			assert.True(t, it.Debit.Equal(d("80")), "prime debit = %s", it.Debit)
		}
	}
	assert.Equal(t, 1, primeLines)
}

// =============================================================================
// INDIVIDUAL STRATEGY
// =============================================================================

func TestByEmployee_VoucherSetPerEmployee(t *testing.T) {
	s, _ := commitment.ForMode(commitment.ModeIndividually)
	vouchers, err := s.Build(testInput(fullSlips()...))
	require.NoError(t, err)

	// Both employees have all four categories: 4 vouchers each.
	require.Len(t, vouchers, 8)
	assert.Len(t, byType(vouchers, 15), 2)
	assert.Len(t, byType(vouchers, 16), 2)
	assert.Len(t, byType(vouchers, 17), 2)
	assert.Len(t, byType(vouchers, 18), 2)
}

func TestByEmployee_SkipsEmployeeEmptyCategories(t *testing.T) {
	// One employee has withholdings, the other only a benefit.
	slips := []payroll.Payslip{
		slip("okonkwo", 1, "500", []payroll.RubricLine{line(rubricIPR, "60")}),
		slip("mbuyi", 2, "225", []payroll.RubricLine{line(rubricPrime, "22.50")}),
	}
	s, _ := commitment.ForMode(commitment.ModeIndividually)
	vouchers, err := s.Build(testInput(slips...))
	require.NoError(t, err)

	// okonkwo: commitment + withholding; mbuyi: commitment only.
	require.Len(t, vouchers, 3)
	assert.Len(t, byType(vouchers, 15), 2)
	assert.Len(t, byType(vouchers, 16), 1)
}

// =============================================================================
// ACCOUNT CHECK
// =============================================================================

func TestBuild_MissingAccountIsConfigError(t *testing.T) {
	broken := payroll.Rubric{ID: "broken", Label: "No Accounts", IsDiscount: true, IsEmployee: true}
	slips := []payroll.Payslip{
		slip("okonkwo", 1, "500", []payroll.RubricLine{line(broken, "10")}),
	}

	for _, mode := range []commitment.Mode{
		commitment.ModeDefault, commitment.ModeGrouped, commitment.ModeIndividually,
	} {
		s, _ := commitment.ForMode(mode)
		_, err := s.Build(testInput(slips...))
		require.Error(t, err, "mode %s", mode)
		assert.ErrorIs(t, err, payroll.ErrMissingAccount, "mode %s", mode)
	}
}

// =============================================================================
// REDUCE STAGE
// =============================================================================

func TestReduce_Totals(t *testing.T) {
	totals, err := commitment.Reduce(fullSlips())
	require.NoError(t, err)

	assert.True(t, totals.Basic.Equal(d("725")))
	assert.True(t, totals.ByCategory[payroll.CategoryBenefit].Equal(d("92.5")))
	assert.True(t, totals.ByCategory[payroll.CategoryWithholding].Equal(d("100.01")))
	assert.True(t, totals.ByCategory[payroll.CategoryPayrollTax].Equal(d("39.88")))
	assert.True(t, totals.ByCategory[payroll.CategoryPensionFund].Equal(d("16.53")))
	assert.Len(t, totals.PerEmployee, 2)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	slips := fullSlips()
	before := slips[0].GrossSalary.Value

	_, err := commitment.Reduce(slips)
	require.NoError(t, err)
	assert.True(t, slips[0].GrossSalary.Value.Equal(before))
}
