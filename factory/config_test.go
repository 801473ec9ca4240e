package factory_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/third-culture-software/payroll-engine/commitment"
	"github.com/third-culture-software/payroll-engine/factory"
	"github.com/third-culture-software/payroll-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// validConfigJSON is a minimal but complete run configuration.
const validConfigJSON = `{
	"label": "February 2024",
	"enterprise_currency_id": 2,
	"payment_currency_id": 2,
	"mode": "grouped",
	"period": {
		"id": "2024-02",
		"start": "2024-02-01",
		"end": "2024-02-29",
		"working_days": 21
	},
	"accounts": {
		"commitment_account_id": 6611,
		"payable_account_id": 4211
	},
	"transaction_types": {
		"commitment": 15,
		"withholding": 16,
		"payroll_tax": 17,
		"pension_fund": 18
	},
	"exchange_rates": [
		{"currency_id": 2, "rate": "1"},
		{"currency_id": 1, "rate": "930"}
	],
	"scale": {
		"currency_id": 1,
		"brackets": [
			{"start": "0", "end": "524160", "rate": "0", "cumulative": "0"},
			{"start": "524160", "end": "1428000", "rate": "15", "cumulative": "135576"}
		]
	},
	"rubrics": [
		{
			"id": "rubric-ipr", "label": "Income Tax IPR", "abbr": "IPR",
			"is_employee": true, "is_discount": true, "is_tax": true,
			"debtor_account_id": 4421
		}
	],
	"employees": [
		{
			"uuid": "emp-okonkwo", "display_name": "Chidi Okonkwo",
			"creditor_uuid": "cred-okonkwo", "cost_center_id": 1,
			"basic_salary": "500", "currency_id": 2,
			"hire_date": "2010-06-01", "dependents": 3
		}
	]
}`

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestParseConfig_Complete(t *testing.T) {
	rc, err := factory.ParseConfig([]byte(validConfigJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rc.Label != "February 2024" {
		t.Errorf("label = %q", rc.Label)
	}
	if rc.Mode != commitment.ModeGrouped {
		t.Errorf("mode = %q", rc.Mode)
	}
	if rc.Period.ID != "2024-02" || rc.Period.WorkingDays != 21 {
		t.Errorf("period = %+v", rc.Period)
	}
	if rc.Accounts.CommitmentAccount != 6611 || rc.Accounts.PayableAccount != 4211 {
		t.Errorf("accounts = %+v", rc.Accounts)
	}
	if rc.Scale == nil || len(rc.Scale.Brackets) != 2 || rc.Scale.Currency != 1 {
		t.Fatalf("scale = %+v", rc.Scale)
	}
	if len(rc.Rubrics) != 1 || rc.Rubrics[0].ID != "rubric-ipr" {
		t.Fatalf("rubrics = %+v", rc.Rubrics)
	}
	if len(rc.Employees) != 1 {
		t.Fatalf("employees = %+v", rc.Employees)
	}
	e := rc.Employees[0]
	if e.Dependents != 3 || !e.BasicSalary.Value.Equal(d("500")) || e.BasicSalary.Currency != 2 {
		t.Errorf("employee = %+v", e)
	}
	if rate := rc.Rates.Rates[1]; !rate.Equal(d("930")) {
		t.Errorf("CDF rate = %s", rate)
	}
}

func TestParseConfig_MalformedJSON(t *testing.T) {
	if _, err := factory.ParseConfig([]byte("{not json")); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestParseConfig_MissingRequiredFields(t *testing.T) {
	if _, err := factory.ParseConfig([]byte(`{"label": "no period"}`)); err == nil {
		t.Fatal("expected validation error for missing required fields")
	}
}

func TestParseConfig_UnknownMode(t *testing.T) {
	cfg := []byte(replaceOnce(validConfigJSON, `"mode": "grouped"`, `"mode": "sideways"`))
	if _, err := factory.ParseConfig(cfg); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestParseConfig_EmptyModeDefaults(t *testing.T) {
	cfg := []byte(replaceOnce(validConfigJSON, `"mode": "grouped",`, ``))
	rc, err := factory.ParseConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.Mode != commitment.ModeDefault {
		t.Errorf("expected default mode, got %q", rc.Mode)
	}
}

func TestParseConfig_InvalidDates(t *testing.T) {
	cfg := []byte(replaceOnce(validConfigJSON, `"start": "2024-02-01"`, `"start": "02/01/2024"`))
	if _, err := factory.ParseConfig(cfg); err == nil {
		t.Fatal("expected an error for a malformed date")
	}
}

func TestParseConfig_InvertedPeriod(t *testing.T) {
	cfg := []byte(replaceOnce(validConfigJSON, `"end": "2024-02-29"`, `"end": "2024-01-15"`))
	if _, err := factory.ParseConfig(cfg); !errors.Is(err, payroll.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestParseConfig_InconsistentScale(t *testing.T) {
	cfg := []byte(replaceOnce(validConfigJSON, `"cumulative": "135576"`, `"cumulative": "999999"`))
	if _, err := factory.ParseConfig(cfg); !errors.Is(err, payroll.ErrInvalidScale) {
		t.Fatalf("expected ErrInvalidScale, got %v", err)
	}
}

func TestParseConfig_RubricWithoutAccounts(t *testing.T) {
	cfg := []byte(replaceOnce(validConfigJSON, `"debtor_account_id": 4421`, `"debtor_account_id": 0`))
	_, err := factory.ParseConfig(cfg)
	if !errors.Is(err, payroll.ErrMissingAccount) {
		t.Fatalf("expected ErrMissingAccount, got %v", err)
	}
	var ma *payroll.MissingAccountError
	if !errors.As(err, &ma) || ma.Rubric != "rubric-ipr" {
		t.Fatalf("expected MissingAccountError naming the rubric, got %v", err)
	}
}

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestToJSON_RoundTrip(t *testing.T) {
	rc, err := factory.ParseConfig([]byte(validConfigJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	back, err := factory.FromJSON(factory.ToJSON(rc))
	if err != nil {
		t.Fatalf("round-trip failed: %v", err)
	}

	if back.Label != rc.Label || back.Mode != rc.Mode {
		t.Errorf("label/mode changed: %q %q", back.Label, back.Mode)
	}
	if !back.Period.Start.Equal(rc.Period.Start) || !back.Period.End.Equal(rc.Period.End) {
		t.Errorf("period dates changed")
	}
	if len(back.Rubrics) != len(rc.Rubrics) || len(back.Employees) != len(rc.Employees) {
		t.Errorf("rubric/employee counts changed")
	}
	if back.Scale == nil || len(back.Scale.Brackets) != len(rc.Scale.Brackets) {
		t.Errorf("scale changed")
	}
}

func replaceOnce(s, old, new string) string {
	if !strings.Contains(s, old) {
		panic("substring not found: " + old)
	}
	return strings.Replace(s, old, new, 1)
}
