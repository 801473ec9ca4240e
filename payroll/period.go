// period.go - Pay periods, working-day counts, and seniority.
package payroll

import "time"

// PayPeriod is the date range a payroll run covers, with the total number of
// working days administrators configured for it. WorkingDays is the divisor
// for the daily rate, so it is authored rather than derived: enterprises
// differ on which weekdays count.
type PayPeriod struct {
	ID          string
	Start       time.Time
	End         time.Time
	WorkingDays int
}

// Validate checks the period shape.
func (p PayPeriod) Validate() error {
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	if p.WorkingDays <= 0 {
		return ErrInvalidPeriod
	}
	return nil
}

// CountWeekdays returns the number of Monday-Friday days in [start, end],
// a convenience default for WorkingDays.
func CountWeekdays(start, end time.Time) int {
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

// SeniorityYears returns whole years of service between the hiring date and
// the period end (integer floor).
func SeniorityYears(hireDate, periodEnd time.Time) int {
	if hireDate.After(periodEnd) {
		return 0
	}
	years := periodEnd.Year() - hireDate.Year()
	anniversary := hireDate.AddDate(years, 0, 0)
	if anniversary.After(periodEnd) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
