package factory_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/third-culture-software/payroll-engine/factory"
	"github.com/third-culture-software/payroll-engine/payroll"
)

func knownEmployees() map[payroll.EmployeeID]bool {
	return map[payroll.EmployeeID]bool{
		"emp-okonkwo":  true,
		"emp-mbuyi":    true,
		"emp-whitmore": true,
	}
}

func importErr(t *testing.T, err error) *payroll.ImportError {
	t.Helper()
	var ie *payroll.ImportError
	if !errors.As(err, &ie) {
		t.Fatalf("expected ImportError, got %v", err)
	}
	return ie
}

func TestParseRoster_Valid(t *testing.T) {
	csv := `employee_uuid,worked_days,absences
emp-whitmore,13,sick leave:10:80
emp-okonkwo,21,
emp-mbuyi,18,holiday:2:100|off day:1:66.66
`
	entries, err := factory.ParseRoster(strings.NewReader(csv), knownEmployees(), 21)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.EmployeeID != "emp-whitmore" || first.WorkedDays != 13 {
		t.Errorf("first entry = %+v", first)
	}
	if len(first.Absences) != 1 || first.Absences[0].Days != 10 || !first.Absences[0].Percentage.Equal(d("80")) {
		t.Errorf("first absences = %+v", first.Absences)
	}
	if len(entries[2].Absences) != 2 {
		t.Errorf("expected 2 absences on third entry, got %+v", entries[2].Absences)
	}
}

func TestParseRoster_BadHeader(t *testing.T) {
	csv := "uuid,days\nemp-okonkwo,21\n"
	_, err := factory.ParseRoster(strings.NewReader(csv), knownEmployees(), 21)
	ie := importErr(t, err)
	if ie.Rows[0].Line != 1 || ie.Rows[0].Field != "header" {
		t.Errorf("expected header error on line 1, got %+v", ie.Rows[0])
	}
}

func TestParseRoster_RowErrorsUseFileLineNumbers(t *testing.T) {
	// GIVEN: Errors on file lines 3 and 4 (header is line 1)
	// WHEN: Parsing
	// THEN: Each RowError carries the 1-based file line of its row

	csv := `employee_uuid,worked_days,absences
emp-okonkwo,21,
emp-unknown,10,
emp-mbuyi,notanumber,
`
	_, err := factory.ParseRoster(strings.NewReader(csv), knownEmployees(), 21)
	ie := importErr(t, err)
	if len(ie.Rows) != 2 {
		t.Fatalf("expected 2 row errors, got %d: %v", len(ie.Rows), err)
	}
	if ie.Rows[0].Line != 3 || ie.Rows[0].Field != "employee_uuid" {
		t.Errorf("first error = %+v", ie.Rows[0])
	}
	if ie.Rows[1].Line != 4 || ie.Rows[1].Field != "worked_days" {
		t.Errorf("second error = %+v", ie.Rows[1])
	}
}

func TestParseRoster_RejectsAsUnit(t *testing.T) {
	// One bad row rejects the whole file: no entries come back.
	csv := `employee_uuid,worked_days,absences
emp-okonkwo,21,
emp-unknown,10,
`
	entries, err := factory.ParseRoster(strings.NewReader(csv), knownEmployees(), 21)
	if err == nil {
		t.Fatal("expected an error")
	}
	if entries != nil {
		t.Errorf("expected no entries on failure, got %d", len(entries))
	}
	if !payroll.IsValidationError(err) {
		t.Errorf("expected a validation error, got %v", err)
	}
}

func TestParseRoster_WorkedDaysBounds(t *testing.T) {
	csv := `employee_uuid,worked_days,absences
emp-okonkwo,22,
emp-mbuyi,-1,
`
	_, err := factory.ParseRoster(strings.NewReader(csv), knownEmployees(), 21)
	ie := importErr(t, err)
	if len(ie.Rows) != 2 {
		t.Fatalf("expected 2 row errors, got %d", len(ie.Rows))
	}
	for _, row := range ie.Rows {
		if row.Field != "worked_days" {
			t.Errorf("expected worked_days errors, got %+v", row)
		}
	}
}

func TestParseRoster_DuplicateEmployee(t *testing.T) {
	csv := `employee_uuid,worked_days,absences
emp-okonkwo,21,
emp-okonkwo,15,
`
	_, err := factory.ParseRoster(strings.NewReader(csv), knownEmployees(), 21)
	ie := importErr(t, err)
	if len(ie.Rows) != 1 || ie.Rows[0].Line != 3 {
		t.Fatalf("expected one duplicate error on line 3, got %v", err)
	}
	if !strings.Contains(ie.Rows[0].Message, "line 2") {
		t.Errorf("expected the message to reference the first occurrence, got %q", ie.Rows[0].Message)
	}
}

func TestParseRoster_MalformedAbsences(t *testing.T) {
	cases := []string{
		"sick:10",     // missing percent
		"sick:0:80",   // zero days
		"sick:10:101", // percent above 100
		"sick:ten:80", // non-numeric days
	}
	for _, absence := range cases {
		csv := "employee_uuid,worked_days,absences\nemp-okonkwo,13," + absence + "\n"
		_, err := factory.ParseRoster(strings.NewReader(csv), knownEmployees(), 21)
		ie := importErr(t, err)
		if ie.Rows[0].Field != "absences" {
			t.Errorf("%q: expected absences error, got %+v", absence, ie.Rows[0])
		}
	}
}
