/*
emitter.go - Ordered operation list for atomic persistence

PURPOSE:
  Sequences built vouchers into the ordered operation list a transaction
  executor applies atomically. The list opens by flagging the period's
  previously posted vouchers as reversed (a re-run supersedes the prior
  run); then for each voucher the order is fixed:

    1. voucher header insert
    2. voucher item batch insert
    3. post call (reconciliation into the general ledger)

  Reordering risks posting an incomplete voucher, so the emitter owns the
  sequence and executors must apply ops strictly in slice order, inside a
  single transaction: if any operation fails, none of the run is visible.

STORAGE ROUNDING:
  Item amounts are stored rounded to 2 decimals. Lines round independently,
  so the residue is settled on one line of the short side; the stored
  voucher always balances exactly.

EXECUTION:
  The executor belongs to the storage layer (store/sqlite). It provides
  rollback on failure and bounded retry on lock contention; the emitter and
  the strategies never retry anything.
*/
package commitment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// OPERATIONS
// =============================================================================

// OpKind discriminates operation types.
type OpKind int

const (
	// OpExec is a parameterized SQL statement.
	OpExec OpKind = iota

	// OpPostVoucher posts a voucher into the general ledger. Args holds the
	// voucher id. Executors implement this in place of the reference
	// implementation's stored procedure.
	OpPostVoucher
)

// Op is one step of the atomic persistence sequence.
type Op struct {
	Kind OpKind
	SQL  string
	Args []any
}

// Executor applies an op list as one atomic unit of work.
type Executor interface {
	Apply(ctx context.Context, ops []Op) error
}

// =============================================================================
// SQL TEMPLATES
// =============================================================================

const insertVoucherSQL = `INSERT INTO voucher
	(id, date, type_id, currency_id, amount, description, period_id, posted, reversed)
	VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0)`

const supersedeVouchersSQL = `UPDATE voucher
	SET reversed = 1 WHERE period_id = ? AND posted = 1 AND reversed = 0`

const insertVoucherItemPrefix = `INSERT INTO voucher_item
	(id, voucher_id, account_id, debit, credit, entity_id, cost_center_id, description)
	VALUES `

// =============================================================================
// EMITTER
// =============================================================================

// Emit sequences vouchers into the ordered op list. Every voucher is
// balance-checked again here: an unbalanced voucher must never reach the
// database regardless of which strategy produced it. A non-empty op list
// starts by flagging the period's previously posted vouchers as reversed,
// so a re-run supersedes the prior run in the same transaction that posts
// its replacement.
func Emit(vouchers []Voucher, periodID string) ([]Op, error) {
	var ops []Op
	for _, v := range vouchers {
		if !v.Balanced() {
			return nil, fmt.Errorf("refusing to emit unbalanced voucher %s (%s)", v.ID, v.Description)
		}
		if len(v.Items) == 0 {
			continue
		}

		ops = append(ops, Op{
			Kind: OpExec,
			SQL:  insertVoucherSQL,
			Args: []any{v.ID, v.Date, v.TypeID, int(v.Currency), v.Amount.Round(2).String(), v.Description, periodID},
		})

		debits, credits := storageAmounts(v.Items)

		placeholders := make([]string, 0, len(v.Items))
		args := make([]any, 0, len(v.Items)*8)
		for i, it := range v.Items {
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				it.ID, v.ID, int(it.AccountID),
				debits[i].String(), credits[i].String(),
				it.EntityID, int(it.CostCenter), it.Description)
		}
		ops = append(ops, Op{
			Kind: OpExec,
			SQL:  insertVoucherItemPrefix + strings.Join(placeholders, ", "),
			Args: args,
		})

		ops = append(ops, Op{Kind: OpPostVoucher, Args: []any{v.ID}})
	}
	if len(ops) > 0 {
		ops = append([]Op{{Kind: OpExec, SQL: supersedeVouchersSQL, Args: []any{periodID}}}, ops...)
	}
	return ops, nil
}

// storageAmounts rounds every line to 2 decimals for storage and settles the
// rounding residue on the largest line of the short side, so the stored
// voucher balances exactly even when the exact values only balanced within
// tolerance.
func storageAmounts(items []VoucherItem) (debits, credits []decimal.Decimal) {
	debits = make([]decimal.Decimal, len(items))
	credits = make([]decimal.Decimal, len(items))
	sumDebit, sumCredit := decimal.Zero, decimal.Zero
	for i, it := range items {
		debits[i] = it.Debit.Round(2)
		credits[i] = it.Credit.Round(2)
		sumDebit = sumDebit.Add(debits[i])
		sumCredit = sumCredit.Add(credits[i])
	}
	if diff := sumDebit.Sub(sumCredit); !diff.IsZero() {
		if diff.IsPositive() {
			i := largestLine(credits)
			credits[i] = credits[i].Add(diff)
		} else {
			i := largestLine(debits)
			debits[i] = debits[i].Sub(diff)
		}
	}
	return debits, credits
}

func largestLine(amounts []decimal.Decimal) int {
	best := 0
	for i, a := range amounts {
		if a.GreaterThan(amounts[best]) {
			best = i
		}
	}
	return best
}
