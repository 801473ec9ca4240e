/*
dto.go - Request/response data structures for the payroll API

PURPOSE:
  Defines all JSON payloads exchanged with clients. Keeps HTTP concerns
  out of the domain packages: domain types never carry json tags for the
  wire, and monetary values cross the wire as decimal strings.

SEE ALSO:
  - handlers.go: The handlers that produce and consume these
  - factory/config.go: The configuration schema (reused directly)
*/
package api

// PayslipDTO is the computed payslip for one employee.
type PayslipDTO struct {
	EmployeeID  string          `json:"employee_id"`
	DisplayName string          `json:"display_name,omitempty"`
	CostCenter  int             `json:"cost_center_id"`
	DailySalary string          `json:"daily_salary"`
	BasicSalary string          `json:"basic_salary"`
	BaseTaxable string          `json:"base_taxable"`
	GrossSalary string          `json:"gross_salary"`
	NetSalary   string          `json:"net_salary"`
	Withheld    string          `json:"withholding_total"`
	Lines       []RubricLineDTO `json:"lines"`
}

// RubricLineDTO is one valued rubric on a payslip.
type RubricLineDTO struct {
	RubricID string `json:"rubric_id"`
	Label    string `json:"label"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

// PaymentDTO is a persisted payment row.
type PaymentDTO struct {
	EmployeeID  string          `json:"employee_id"`
	BasicSalary string          `json:"basic_salary"`
	GrossSalary string          `json:"gross_salary"`
	NetSalary   string          `json:"net_salary"`
	Lines       []RubricLineDTO `json:"lines,omitempty"`
}

// VoucherDTO is a persisted voucher with its lines.
type VoucherDTO struct {
	ID          string           `json:"id"`
	Date        string           `json:"date"`
	TypeID      int              `json:"type_id"`
	CurrencyID  int              `json:"currency_id"`
	Amount      string           `json:"amount"`
	Description string           `json:"description"`
	Posted      bool             `json:"posted"`
	Reversed    bool             `json:"reversed"`
	Items       []VoucherItemDTO `json:"items"`
}

// VoucherItemDTO is one debit/credit line.
type VoucherItemDTO struct {
	AccountID   int    `json:"account_id"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	EntityID    string `json:"entity_id,omitempty"`
	CostCenter  int    `json:"cost_center_id,omitempty"`
	Description string `json:"description,omitempty"`
}

// RosterImportResponse reports the outcome of a roster upload.
type RosterImportResponse struct {
	PeriodID string           `json:"period_id"`
	Imported int              `json:"imported"`
	Errors   []RosterErrorDTO `json:"errors,omitempty"`
}

// RosterErrorDTO is one rejected roster row.
type RosterErrorDTO struct {
	Line    int    `json:"line"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RunResponse summarizes a completed payroll run.
type RunResponse struct {
	PeriodID  string       `json:"period_id"`
	Mode      string       `json:"mode"`
	Employees int          `json:"employees"`
	Vouchers  []VoucherDTO `json:"vouchers"`
	Payslips  []PayslipDTO `json:"payslips"`
}

// PeriodSummaryDTO is one configured period.
type PeriodSummaryDTO struct {
	PeriodID string `json:"period_id"`
	Label    string `json:"label"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
