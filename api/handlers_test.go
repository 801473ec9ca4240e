package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/third-culture-software/payroll-engine/api"
	"github.com/third-culture-software/payroll-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	store, err := sqlite.New(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(store, log)))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func loadFixture(t *testing.T, srv *httptest.Server, name string) string {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/fixtures/load", `{"name":"`+name+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fixture load returned %d", resp.StatusCode)
	}
	var out map[string]string
	decodeBody(t, resp, &out)
	return out["period_id"]
}

// =============================================================================
// CONFIGURATION ENDPOINT TESTS
// =============================================================================

func TestSaveConfig_RejectsInvalidConfig(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/config", `{"label": "incomplete"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 400/422, got %d", resp.StatusCode)
	}
}

func TestGetConfig_UnknownPeriod(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/config/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestFixtureThenGetConfig(t *testing.T) {
	srv := newTestServer(t)
	periodID := loadFixture(t, srv, "cdf-progressive-tax")

	resp, err := http.Get(srv.URL + "/api/config/" + periodID)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var cfg map[string]any
	decodeBody(t, resp, &cfg)
	if cfg["label"] != "February 2024" {
		t.Errorf("label = %v", cfg["label"])
	}

	var periods []api.PeriodSummaryDTO
	resp, _ = http.Get(srv.URL + "/api/periods")
	decodeBody(t, resp, &periods)
	if len(periods) != 1 || periods[0].PeriodID != periodID {
		t.Errorf("periods = %+v", periods)
	}
}

// =============================================================================
// ROSTER ENDPOINT TESTS
// =============================================================================

func TestImportRoster_ReportsRowErrors(t *testing.T) {
	srv := newTestServer(t)
	periodID := loadFixture(t, srv, "cdf-progressive-tax")

	csv := "employee_uuid,worked_days,absences\nemp-unknown,10,\n"
	resp, err := http.Post(srv.URL+"/api/periods/"+periodID+"/roster", "text/csv",
		bytes.NewReader([]byte(csv)))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var out api.RosterImportResponse
	decodeBody(t, resp, &out)
	if len(out.Errors) != 1 || out.Errors[0].Line != 2 {
		t.Errorf("errors = %+v", out.Errors)
	}
	if out.Imported != 0 {
		t.Errorf("expected nothing imported, got %d", out.Imported)
	}
}

func TestImportRoster_Valid(t *testing.T) {
	srv := newTestServer(t)
	periodID := loadFixture(t, srv, "cdf-progressive-tax")

	csv := "employee_uuid,worked_days,absences\nemp-okonkwo,15,\n"
	resp, err := http.Post(srv.URL+"/api/periods/"+periodID+"/roster", "text/csv",
		bytes.NewReader([]byte(csv)))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out api.RosterImportResponse
	decodeBody(t, resp, &out)
	if out.Imported != 1 {
		t.Errorf("expected 1 imported, got %d", out.Imported)
	}
}

// =============================================================================
// PAYROLL PIPELINE TESTS
// =============================================================================

func TestPreviewPayroll(t *testing.T) {
	srv := newTestServer(t)
	periodID := loadFixture(t, srv, "partial-attendance")

	resp, err := http.Get(srv.URL + "/api/periods/" + periodID + "/preview")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var slips []api.PayslipDTO
	decodeBody(t, resp, &slips)
	if len(slips) != 1 {
		t.Fatalf("expected 1 payslip, got %d", len(slips))
	}
	// 30 over 23 days, 13 worked plus 10 days of absence at 80%.
	if slips[0].BasicSalary != "27.39" {
		t.Errorf("basic = %q", slips[0].BasicSalary)
	}

	// Preview persists nothing.
	var payments []api.PaymentDTO
	resp, _ = http.Get(srv.URL + "/api/periods/" + periodID + "/payments")
	decodeBody(t, resp, &payments)
	if len(payments) != 0 {
		t.Errorf("expected no persisted payments after preview, got %d", len(payments))
	}
}

func TestRunPayroll_EndToEnd(t *testing.T) {
	// GIVEN: The progressive-tax fixture
	// WHEN: Running payroll
	// THEN: Payments and posted vouchers are persisted, and every voucher
	//       balances

	srv := newTestServer(t)
	periodID := loadFixture(t, srv, "cdf-progressive-tax")

	resp := postJSON(t, srv.URL+"/api/periods/"+periodID+"/run", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var run api.RunResponse
	decodeBody(t, resp, &run)
	if run.Employees != 2 || len(run.Payslips) != 2 {
		t.Fatalf("run = %+v", run)
	}
	if len(run.Vouchers) == 0 {
		t.Fatal("expected vouchers")
	}

	var payments []api.PaymentDTO
	pResp, _ := http.Get(srv.URL + "/api/periods/" + periodID + "/payments")
	decodeBody(t, pResp, &payments)
	if len(payments) != 2 {
		t.Errorf("expected 2 persisted payments, got %d", len(payments))
	}

	var vouchers []api.VoucherDTO
	vResp, _ := http.Get(srv.URL + "/api/periods/" + periodID + "/vouchers")
	decodeBody(t, vResp, &vouchers)
	if len(vouchers) != len(run.Vouchers) {
		t.Errorf("expected %d persisted vouchers, got %d", len(run.Vouchers), len(vouchers))
	}

	tolerance := decimal.NewFromFloat(0.01)
	for _, v := range vouchers {
		if !v.Posted {
			t.Errorf("voucher %s not posted", v.ID)
		}
		debits, credits := decimal.Zero, decimal.Zero
		for _, it := range v.Items {
			debits = debits.Add(mustDecimal(t, it.Debit))
			credits = credits.Add(mustDecimal(t, it.Credit))
		}
		if debits.Sub(credits).Abs().GreaterThan(tolerance) {
			t.Errorf("voucher %s unbalanced: %s vs %s", v.ID, debits, credits)
		}
	}
}

func TestRunPayroll_RerunSupersedesPriorVouchers(t *testing.T) {
	// GIVEN: A period that has already been run
	// WHEN: Running it again
	// THEN: The prior run's vouchers are flagged reversed, the new run's
	//       stand posted, and the payments reflect only the latest run

	srv := newTestServer(t)
	periodID := loadFixture(t, srv, "cdf-progressive-tax")

	resp := postJSON(t, srv.URL+"/api/periods/"+periodID+"/run", "")
	var first api.RunResponse
	decodeBody(t, resp, &first)

	resp = postJSON(t, srv.URL+"/api/periods/"+periodID+"/run", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on re-run, got %d", resp.StatusCode)
	}
	var second api.RunResponse
	decodeBody(t, resp, &second)

	firstIDs := make(map[string]bool)
	for _, v := range first.Vouchers {
		firstIDs[v.ID] = true
	}

	var vouchers []api.VoucherDTO
	vResp, _ := http.Get(srv.URL + "/api/periods/" + periodID + "/vouchers")
	decodeBody(t, vResp, &vouchers)
	if len(vouchers) != len(first.Vouchers)+len(second.Vouchers) {
		t.Fatalf("expected %d vouchers, got %d", len(first.Vouchers)+len(second.Vouchers), len(vouchers))
	}
	for _, v := range vouchers {
		if firstIDs[v.ID] && !v.Reversed {
			t.Errorf("superseded voucher %s not flagged reversed", v.ID)
		}
		if !firstIDs[v.ID] && v.Reversed {
			t.Errorf("fresh voucher %s flagged reversed", v.ID)
		}
	}

	var payments []api.PaymentDTO
	pResp, _ := http.Get(srv.URL + "/api/periods/" + periodID + "/payments")
	decodeBody(t, pResp, &payments)
	if len(payments) != 2 {
		t.Errorf("expected payments replaced, not appended: got %d", len(payments))
	}
}

func TestRunPayroll_UnknownPeriod(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/periods/nope/run", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

// =============================================================================
// VOUCHER REVERSAL TESTS
// =============================================================================

func TestReverseVoucher_EndToEnd(t *testing.T) {
	srv := newTestServer(t)
	periodID := loadFixture(t, srv, "flat-simple")

	resp := postJSON(t, srv.URL+"/api/periods/"+periodID+"/run", "")
	var run api.RunResponse
	decodeBody(t, resp, &run)
	if len(run.Vouchers) == 0 {
		t.Fatal("expected vouchers")
	}

	id := run.Vouchers[0].ID
	rResp := postJSON(t, srv.URL+"/api/vouchers/"+id+"/reverse", "")
	defer rResp.Body.Close()
	if rResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", rResp.StatusCode)
	}

	var vouchers []api.VoucherDTO
	vResp, _ := http.Get(srv.URL + "/api/periods/" + periodID + "/vouchers")
	decodeBody(t, vResp, &vouchers)
	reversed := false
	for _, v := range vouchers {
		if v.ID == id && v.Reversed {
			reversed = true
		}
	}
	if !reversed {
		t.Error("expected the voucher flagged reversed")
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return v
}
