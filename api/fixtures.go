/*
fixtures.go - Demo fixture loaders for testing and demonstrations

PURPOSE:

	Provides pre-built payroll configurations that populate the database
	with realistic data for testing and demos. Each fixture stores a
	complete run configuration (period, rubrics, scale, employees) and a
	matching attendance roster.

AVAILABLE FIXTURES:

	cdf-progressive-tax:  Congolese Franc bracket scale with USD payment,
	                      seniority bonus, family allowance, pension fund
	partial-attendance:   Employee with worked days below the period and
	                      paid absences at a reduced rate
	flat-simple:          Flat allowances and percent deductions, no scale

USAGE VIA API:

	POST /api/fixtures/load
	{"name": "cdf-progressive-tax"}

ADDING NEW FIXTURES:
 1. Add to the 'fixtures' slice with name and description
 2. Create a builder function returning (factory.ConfigJSON, roster)
 3. Add a case to LoadFixture

NOTE:

	Fixtures overwrite any configuration stored under the same period id.
	Only use in development/demo environments.

SEE ALSO:
  - handlers.go: The regular configuration handlers
  - factory/config.go: The configuration schema the fixtures produce
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/third-culture-software/payroll-engine/factory"
	"github.com/third-culture-software/payroll-engine/payroll"
)

// =============================================================================
// FIXTURE DEFINITIONS
// =============================================================================

// FixtureDTO describes one loadable fixture.
type FixtureDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PeriodID    string `json:"period_id"`
}

var fixtures = []FixtureDTO{
	{
		Name:        "cdf-progressive-tax",
		Description: "CDF bracket scale, USD payment, seniority and family allowances",
		PeriodID:    "2024-02",
	},
	{
		Name:        "partial-attendance",
		Description: "Worked days below the period with paid absences at 80%",
		PeriodID:    "2024-03",
	},
	{
		Name:        "flat-simple",
		Description: "Flat allowances and percent deductions, no tax scale",
		PeriodID:    "2024-04",
	},
}

// ListFixtures returns the available fixtures.
func (h *Handler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, fixtures)
}

// LoadFixture stores a fixture's configuration and roster.
func (h *Handler) LoadFixture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var cfg factory.ConfigJSON
	var roster []payroll.RosterEntry
	switch req.Name {
	case "cdf-progressive-tax":
		cfg, roster = progressiveTaxFixture()
	case "partial-attendance":
		cfg, roster = partialAttendanceFixture()
	case "flat-simple":
		cfg, roster = flatSimpleFixture()
	default:
		writeError(w, http.StatusNotFound, "unknown fixture", nil)
		return
	}

	body, err := json.Marshal(cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode fixture", err)
		return
	}
	// Round-trip through the parser so a fixture can never store an
	// invalid configuration.
	rc, err := factory.ParseConfig(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "fixture configuration invalid", err)
		return
	}

	if err := h.Store.SaveConfig(r.Context(), rc.Period.ID, rc.Label, string(body)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save fixture", err)
		return
	}
	if err := h.Store.SaveRoster(r.Context(), rc.Period.ID, roster); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save fixture roster", err)
		return
	}

	h.Log.WithFields(logrus.Fields{"fixture": req.Name, "period": rc.Period.ID}).
		Info("fixture loaded")
	writeJSON(w, http.StatusOK, map[string]string{
		"name":      req.Name,
		"period_id": rc.Period.ID,
	})
}

// =============================================================================
// FIXTURE BUILDERS
// =============================================================================

// Currency ids used by every fixture: 1 = CDF, 2 = USD. USD is both the
// enterprise and payment currency; the CDF rate is 930 per USD.
const (
	currencyCDF = 1
	currencyUSD = 2
)

func dec(s string) decimal.Decimal { return payroll.MustParseDecimal(s) }

// cdfScale is a progressive annual income tax scale in CDF. Each bracket's
// cumulative is the tax owed at the top of that bracket.
func cdfScale() *factory.ScaleJSON {
	return &factory.ScaleJSON{
		CurrencyID: currencyCDF,
		Brackets: []factory.BracketJSON{
			{Start: dec("0"), End: dec("524160"), Rate: dec("0"), Cumulative: dec("0")},
			{Start: dec("524160"), End: dec("1428000"), Rate: dec("15"), Cumulative: dec("135576")},
			{Start: dec("1428000"), End: dec("2700000"), Rate: dec("20"), Cumulative: dec("389976")},
			{Start: dec("2700000"), End: dec("4620000"), Rate: dec("22.5"), Cumulative: dec("821976")},
			{Start: dec("4620000"), End: dec("7260000"), Rate: dec("25"), Cumulative: dec("1481976")},
			{Start: dec("7260000"), End: dec("10260000"), Rate: dec("30"), Cumulative: dec("2381976")},
			{Start: dec("10260000"), End: dec("13908000"), Rate: dec("32.5"), Cumulative: dec("3567576")},
			{Start: dec("13908000"), End: dec("16824000"), Rate: dec("35"), Cumulative: dec("4588176")},
			{Start: dec("16824000"), End: dec("22956000"), Rate: dec("37.5"), Cumulative: dec("6887676")},
			{Start: dec("22956000"), End: dec("1000000000"), Rate: dec("40"), Cumulative: dec("397705276")},
		},
	}
}

func standardAccounts() factory.AccountsJSON {
	return factory.AccountsJSON{CommitmentAccountID: 6611, PayableAccountID: 4211}
}

func standardTypes() factory.TransactionTypesJSON {
	return factory.TransactionTypesJSON{Commitment: 15, Withholding: 16, PayrollTax: 17, PensionFund: 18}
}

func standardRates() []factory.ExchangeRateJSON {
	return []factory.ExchangeRateJSON{
		{CurrencyID: currencyUSD, Rate: dec("1")},
		{CurrencyID: currencyCDF, Rate: dec("930")},
	}
}

func standardRubrics() []factory.RubricJSON {
	return []factory.RubricJSON{
		{
			ID: "rubric-transport", Label: "Transport", Abbreviation: "TPR",
			IsSocialCare: true, Value: dec("20"), ExpenseAccountID: 6621,
		},
		{
			ID: "rubric-prime", Label: "Prime", Abbreviation: "PRI",
			IsPercent: true, Value: dec("10"), ExpenseAccountID: 6622,
		},
		{
			ID: "rubric-seniority", Label: "Seniority Bonus", Abbreviation: "ANC",
			IsSeniorityBonus: true, Value: dec("0.035"), ExpenseAccountID: 6623,
		},
		{
			ID: "rubric-family", Label: "Family Allowance", Abbreviation: "ALF",
			IsFamilyAllowances: true, IsSocialCare: true, Value: dec("5"), ExpenseAccountID: 6624,
		},
		{
			ID: "rubric-ipr", Label: "Income Tax IPR", Abbreviation: "IPR",
			IsEmployee: true, IsDiscount: true, IsTax: true, DebtorAccountID: 4421,
		},
		{
			ID: "rubric-inss-qpo", Label: "INSS Employee Share", Abbreviation: "QPO",
			IsEmployee: true, IsDiscount: true, IsPercent: true, IsMembershipFee: true,
			Value: dec("3.5"), DebtorAccountID: 4011,
		},
		{
			ID: "rubric-inss-qpp", Label: "INSS Employer Share", Abbreviation: "QPP",
			IsDiscount: true, IsPercent: true, IsMembershipFee: true,
			Value: dec("5"), DebtorAccountID: 4011, ExpenseAccountID: 6631,
		},
		{
			ID: "rubric-pension", Label: "Pension Fund Allocation", Abbreviation: "PEN",
			IsDiscount: true, IsPercent: true, IsLinkedPensionFund: true,
			Value: dec("2"), DebtorAccountID: 4012, ExpenseAccountID: 6632,
		},
	}
}

// progressiveTaxFixture exercises the bracket scale end to end: a salary
// high enough to land in a taxed bracket, dependents reducing the tax, and
// a long-tenured employee triggering the seniority bonus.
func progressiveTaxFixture() (factory.ConfigJSON, []payroll.RosterEntry) {
	cfg := factory.ConfigJSON{
		Label:                "February 2024",
		EnterpriseCurrencyID: currencyUSD,
		PaymentCurrencyID:    currencyUSD,
		Mode:                 "default",
		Period: factory.PeriodJSON{
			ID: "2024-02", Start: "2024-02-01", End: "2024-02-29", WorkingDays: 21,
		},
		Accounts:         standardAccounts(),
		TransactionTypes: standardTypes(),
		ExchangeRates:    standardRates(),
		Scale:            cdfScale(),
		Rubrics:          standardRubrics(),
		Employees: []factory.EmployeeJSON{
			{
				UUID: "emp-okonkwo", DisplayName: "Chidi Okonkwo",
				CreditorUUID: "cred-okonkwo", CostCenterID: 1,
				BasicSalary: dec("500"), CurrencyID: currencyUSD,
				HireDate: "2010-06-01", Dependents: 3,
			},
			{
				UUID: "emp-mbuyi", DisplayName: "Therese Mbuyi",
				CreditorUUID: "cred-mbuyi", CostCenterID: 2,
				BasicSalary: dec("225"), CurrencyID: currencyUSD,
				HireDate: "1982-02-15", Dependents: 0,
			},
		},
	}
	return cfg, nil
}

// partialAttendanceFixture exercises worked-day proration and paid
// absences below 100% of the daily rate.
func partialAttendanceFixture() (factory.ConfigJSON, []payroll.RosterEntry) {
	cfg := factory.ConfigJSON{
		Label:                "March 2024",
		EnterpriseCurrencyID: currencyUSD,
		PaymentCurrencyID:    currencyUSD,
		Mode:                 "grouped",
		Period: factory.PeriodJSON{
			ID: "2024-03", Start: "2024-03-01", End: "2024-03-31", WorkingDays: 23,
		},
		Accounts:         standardAccounts(),
		TransactionTypes: standardTypes(),
		ExchangeRates:    standardRates(),
		Scale:            cdfScale(),
		Rubrics:          standardRubrics(),
		Employees: []factory.EmployeeJSON{
			{
				UUID: "emp-whitmore", DisplayName: "Harper Elise Whitmore",
				CreditorUUID: "cred-whitmore", CostCenterID: 1,
				BasicSalary: dec("30"), CurrencyID: currencyUSD,
				HireDate: "2021-09-01", Dependents: 0,
			},
		},
	}
	roster := []payroll.RosterEntry{
		{
			EmployeeID: "emp-whitmore",
			WorkedDays: 13,
			Absences: []payroll.PaidAbsence{
				{Label: "sick leave", Days: 10, Percentage: dec("80")},
			},
		},
	}
	return cfg, roster
}

// flatSimpleFixture is the smallest possible run: flat allowances and
// percent deductions with no bracket scale configured.
func flatSimpleFixture() (factory.ConfigJSON, []payroll.RosterEntry) {
	cfg := factory.ConfigJSON{
		Label:                "April 2024",
		EnterpriseCurrencyID: currencyUSD,
		PaymentCurrencyID:    currencyUSD,
		Mode:                 "individually",
		Period: factory.PeriodJSON{
			ID: "2024-04", Start: "2024-04-01", End: "2024-04-30", WorkingDays: 22,
		},
		Accounts:         standardAccounts(),
		TransactionTypes: standardTypes(),
		ExchangeRates:    standardRates(),
		Rubrics: []factory.RubricJSON{
			{
				ID: "rubric-housing", Label: "Housing", Abbreviation: "LOG",
				IsSocialCare: true, Value: dec("50"), ExpenseAccountID: 6625,
			},
			{
				ID: "rubric-union", Label: "Union Dues", Abbreviation: "SYN",
				IsEmployee: true, IsDiscount: true, IsPercent: true,
				Value: dec("1"), DebtorAccountID: 4421,
			},
		},
		Employees: []factory.EmployeeJSON{
			{
				UUID: "emp-diallo", DisplayName: "Amadou Diallo",
				CreditorUUID: "cred-diallo", CostCenterID: 1,
				BasicSalary: dec("300"), CurrencyID: currencyUSD,
				HireDate: "2019-01-15", Dependents: 1,
			},
			{
				UUID: "emp-kasongo", DisplayName: "Marie Kasongo",
				CreditorUUID: "cred-kasongo", CostCenterID: 1,
				BasicSalary: dec("280"), CurrencyID: currencyUSD,
				HireDate: "2022-05-02", Dependents: 2,
			},
		},
	}
	return cfg, nil
}
