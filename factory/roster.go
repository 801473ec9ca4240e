/*
roster.go - CSV worked-days import for a pay period

PURPOSE:
  Operators submit attendance per employee as CSV. Validation errors are
  surfaced per row with a 1-based line number referencing the submitted
  file (line 1 is the header) so the operator can correct and re-submit.
  The whole file is rejected as a unit: valid rows are never partially
  applied alongside invalid ones.

FORMAT:
  employee_uuid,worked_days,absences

  absences is optional: pipe-separated label:days:percent entries, e.g.

    9f3a...,13,paid leave:10:80
    7c1b...,22,
    2d9e...,18,holiday:2:100|off day:2:66.66
*/
package factory

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/third-culture-software/payroll-engine/payroll"
)

// rosterColumns is the expected header.
var rosterColumns = []string{"employee_uuid", "worked_days", "absences"}

// ParseRoster reads a roster CSV. known holds the employee ids valid for
// the period; rows naming anyone else are rejected. workingDays bounds
// worked_days. On any row failure the returned error is an ImportError
// carrying every offending row, and no entries are returned.
func ParseRoster(r io.Reader, known map[payroll.EmployeeID]bool, workingDays int) ([]payroll.RosterEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, &payroll.ImportError{Rows: []*payroll.RowError{{Line: 1, Field: "header", Message: "cannot read header"}}}
	}

	var rows []*payroll.RowError
	if !headerMatches(header) {
		rows = append(rows, &payroll.RowError{
			Line: 1, Field: "header",
			Message: fmt.Sprintf("expected columns %s", strings.Join(rosterColumns, ",")),
		})
	}

	var entries []payroll.RosterEntry
	seen := make(map[payroll.EmployeeID]int)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rows = append(rows, &payroll.RowError{Line: line, Field: "row", Message: "malformed CSV record"})
			continue
		}
		entry, rowErrs := parseRosterRow(record, line, known, workingDays)
		if len(rowErrs) > 0 {
			rows = append(rows, rowErrs...)
			continue
		}
		if prev, dup := seen[entry.EmployeeID]; dup {
			rows = append(rows, &payroll.RowError{
				Line: line, Field: "employee_uuid",
				Message: fmt.Sprintf("duplicate of line %d", prev),
			})
			continue
		}
		seen[entry.EmployeeID] = line
		entries = append(entries, entry)
	}

	if len(rows) > 0 {
		return nil, &payroll.ImportError{Rows: rows}
	}
	return entries, nil
}

func headerMatches(header []string) bool {
	if len(header) != len(rosterColumns) {
		return false
	}
	for i, c := range rosterColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), c) {
			return false
		}
	}
	return true
}

func parseRosterRow(record []string, line int, known map[payroll.EmployeeID]bool, workingDays int) (payroll.RosterEntry, []*payroll.RowError) {
	var errs []*payroll.RowError
	rowErr := func(field, msg string) {
		errs = append(errs, &payroll.RowError{Line: line, Field: field, Message: msg})
	}

	if len(record) < 2 {
		rowErr("row", "expected at least employee_uuid and worked_days")
		return payroll.RosterEntry{}, errs
	}

	id := payroll.EmployeeID(strings.TrimSpace(record[0]))
	if id == "" {
		rowErr("employee_uuid", "missing")
	} else if !known[id] {
		rowErr("employee_uuid", "unknown employee")
	}

	worked, err := strconv.Atoi(strings.TrimSpace(record[1]))
	switch {
	case err != nil:
		rowErr("worked_days", "not an integer")
	case worked < 0:
		rowErr("worked_days", "must not be negative")
	case worked > workingDays:
		rowErr("worked_days", fmt.Sprintf("exceeds the period's %d working days", workingDays))
	}

	var absences []payroll.PaidAbsence
	if len(record) >= 3 && strings.TrimSpace(record[2]) != "" {
		absences, err = parseAbsences(strings.TrimSpace(record[2]))
		if err != nil {
			rowErr("absences", err.Error())
		}
	}

	if len(errs) > 0 {
		return payroll.RosterEntry{}, errs
	}
	return payroll.RosterEntry{EmployeeID: id, WorkedDays: worked, Absences: absences}, nil
}

// parseAbsences parses pipe-separated label:days:percent entries.
func parseAbsences(s string) ([]payroll.PaidAbsence, error) {
	var out []payroll.PaidAbsence
	for _, part := range strings.Split(s, "|") {
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("%q: expected label:days:percent", part)
		}
		days, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("%q: days must be a positive integer", part)
		}
		pct, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
		if err != nil || pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("%q: percent must be between 0 and 100", part)
		}
		out = append(out, payroll.PaidAbsence{
			Label:      strings.TrimSpace(fields[0]),
			Days:       days,
			Percentage: pct,
		})
	}
	return out, nil
}
