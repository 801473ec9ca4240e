// strategy.go - Strategy interface and mode registry.
//
// The three strategies share the Reduce stage and the voucher assembly
// helpers; only the "emit vouchers" stage differs. Modes match the
// posting configuration values administrators choose.
package commitment

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/third-culture-software/payroll-engine/payroll"
)

// Mode selects a commitment strategy.
type Mode string

const (
	// ModeDefault emits one voucher per category with one line per
	// employee per category.
	ModeDefault Mode = "default"

	// ModeGrouped aggregates expense lines by cost center.
	ModeGrouped Mode = "grouped"

	// ModeIndividually emits one complete voucher set per employee.
	ModeIndividually Mode = "individually"
)

// Strategy builds the voucher set for a payroll run.
type Strategy interface {
	Mode() Mode
	Build(in Input) ([]Voucher, error)
}

// ForMode returns the strategy registered for a mode.
func ForMode(m Mode) (Strategy, error) {
	switch m {
	case ModeDefault, "":
		return aggregateStrategy{}, nil
	case ModeGrouped:
		return groupedStrategy{}, nil
	case ModeIndividually:
		return byEmployeeStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown commitment mode %q", m)
	}
}

// =============================================================================
// SHARED ASSEMBLY HELPERS
// =============================================================================

// newVoucher creates a voucher header; Amount is filled by seal.
func newVoucher(in Input, typeID int, description string) Voucher {
	return Voucher{
		ID:          uuid.NewString(),
		Date:        in.Date,
		TypeID:      typeID,
		Description: description,
		Currency:    in.Currency,
	}
}

// seal finalizes a voucher: sets the total and checks the balance.
func seal(v Voucher) (Voucher, error) {
	if len(v.Items) == 0 {
		return v, nil
	}
	if !v.Balanced() {
		return Voucher{}, fmt.Errorf("voucher %s (%s) is unbalanced", v.ID, v.Description)
	}
	v.Amount = v.DebitTotal().Round(2)
	return v, nil
}

// debit and credit build item lines.
func debit(account payroll.AccountID, amount decimal.Decimal, entity string, cc payroll.CostCenterID, desc string) VoucherItem {
	return VoucherItem{
		ID:          uuid.NewString(),
		AccountID:   account,
		Debit:       amount,
		Credit:      decimal.Zero,
		EntityID:    entity,
		CostCenter:  cc,
		Description: desc,
	}
}

func credit(account payroll.AccountID, amount decimal.Decimal, entity string, desc string) VoucherItem {
	return VoucherItem{
		ID:          uuid.NewString(),
		AccountID:   account,
		Debit:       decimal.Zero,
		Credit:      amount,
		EntityID:    entity,
		Description: desc,
	}
}

// appendSealed seals v and, when it has items, appends it to vouchers.
func appendSealed(vouchers []Voucher, v Voucher) ([]Voucher, error) {
	sealed, err := seal(v)
	if err != nil {
		return nil, err
	}
	if len(sealed.Items) == 0 {
		return vouchers, nil
	}
	return append(vouchers, sealed), nil
}
