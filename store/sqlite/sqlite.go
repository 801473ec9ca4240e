/*
Package sqlite provides the SQLite-backed persistence for payroll runs.

PURPOSE:
  Stores the administrator-authored configuration, the attendance roster,
  the computed payments, and the vouchers the commitment builder emits.
  In production the same patterns apply to MySQL/PostgreSQL - only minor
  SQL dialect differences and a real stored posting procedure.

KEY TABLES:
  run_config:     Active configuration JSON per pay period
  roster:         Worked days and paid absences per employee per period
  payment:        Computed basic/gross/net per employee per period
  rubric_payment: Valued rubric lines per payment
  voucher:        Transaction headers; immutable once posted except the
                  reversed flag
  voucher_item:   Debit/credit lines
  general_ledger: Posted voucher lines (the PostVoucher stand-in)

ATOMICITY:
  Apply() is the commitment.Executor implementation: every operation of a
  run's op list executes inside one transaction, so a failed statement
  leaves nothing visible. Lock contention is retried up to 5 times with a
  fixed 50ms backoff before the error surfaces; nothing else is retried.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

SEE ALSO:
  - commitment/emitter.go: Produces the op lists Apply consumes
  - api/handlers.go: The only caller of this package
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/third-culture-software/payroll-engine/commitment"
	"github.com/third-culture-software/payroll-engine/payroll"
)

// Store implements persistence and the commitment.Executor interface.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	log *logrus.Logger
}

// Deadlock retry bounds: fixed backoff, no jitter.
const (
	lockRetries = 5
	lockBackoff = 50 * time.Millisecond
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, log *logrus.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if log == nil {
		log = logrus.New()
	}
	// One connection: SQLite serializes writes anyway, and :memory:
	// databases exist per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, log: log}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Active run configuration, one JSON blob per pay period
	CREATE TABLE IF NOT EXISTS run_config (
		period_id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		config_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Attendance roster
	CREATE TABLE IF NOT EXISTS roster (
		period_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		worked_days INTEGER NOT NULL,
		absences_json TEXT NOT NULL,
		PRIMARY KEY (period_id, employee_id)
	);

	-- Computed payments, replaced wholesale on re-run
	CREATE TABLE IF NOT EXISTS payment (
		period_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		basic_salary TEXT NOT NULL,
		gross_salary TEXT NOT NULL,
		net_salary TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (period_id, employee_id)
	);

	CREATE TABLE IF NOT EXISTS rubric_payment (
		period_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		rubric_id TEXT NOT NULL,
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		PRIMARY KEY (period_id, employee_id, rubric_id)
	);

	-- Vouchers: immutable after posting except the reversed flag
	CREATE TABLE IF NOT EXISTS voucher (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		type_id INTEGER NOT NULL,
		currency_id INTEGER NOT NULL,
		amount TEXT NOT NULL,
		description TEXT NOT NULL,
		period_id TEXT NOT NULL,
		posted INTEGER NOT NULL DEFAULT 0,
		reversed INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_voucher_period ON voucher(period_id);

	CREATE TABLE IF NOT EXISTS voucher_item (
		id TEXT PRIMARY KEY,
		voucher_id TEXT NOT NULL REFERENCES voucher(id),
		account_id INTEGER NOT NULL,
		debit TEXT NOT NULL,
		credit TEXT NOT NULL,
		entity_id TEXT,
		cost_center_id INTEGER NOT NULL DEFAULT 0,
		description TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_voucher_item_voucher ON voucher_item(voucher_id);

	-- Posted lines (stand-in for the posting procedure's target)
	CREATE TABLE IF NOT EXISTS general_ledger (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		voucher_id TEXT NOT NULL,
		account_id INTEGER NOT NULL,
		debit TEXT NOT NULL,
		credit TEXT NOT NULL,
		entity_id TEXT,
		cost_center_id INTEGER NOT NULL DEFAULT 0,
		period_id TEXT NOT NULL,
		posted_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_general_ledger_voucher ON general_ledger(voucher_id);
	CREATE INDEX IF NOT EXISTS idx_general_ledger_account ON general_ledger(account_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RUN CONFIGURATION
// =============================================================================

// SaveConfig stores the configuration JSON for a period.
func (s *Store) SaveConfig(ctx context.Context, periodID, label, configJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_config (period_id, label, config_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(period_id) DO UPDATE SET
			label = excluded.label,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at`,
		periodID, label, configJSON, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

// LoadConfig returns the configuration JSON for a period.
func (s *Store) LoadConfig(ctx context.Context, periodID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM run_config WHERE period_id = ?", periodID).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no configuration for period %s", periodID)
	}
	return configJSON, err
}

// ListPeriods returns the configured period ids with labels, newest first.
func (s *Store) ListPeriods(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT period_id, label FROM run_config ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		out[id] = label
	}
	return out, rows.Err()
}

// =============================================================================
// ROSTER
// =============================================================================

// SaveRoster replaces the roster for a period in one transaction: a new
// submission always supersedes the old one as a unit.
func (s *Store) SaveRoster(ctx context.Context, periodID string, entries []payroll.RosterEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM roster WHERE period_id = ?", periodID); err != nil {
		return err
	}
	for _, e := range entries {
		absences, _ := json.Marshal(e.Absences)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO roster (period_id, employee_id, worked_days, absences_json)
			VALUES (?, ?, ?, ?)`,
			periodID, string(e.EmployeeID), e.WorkedDays, string(absences)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadRoster returns the roster for a period keyed by employee.
func (s *Store) LoadRoster(ctx context.Context, periodID string) (map[payroll.EmployeeID]payroll.RosterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT employee_id, worked_days, absences_json FROM roster WHERE period_id = ?", periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[payroll.EmployeeID]payroll.RosterEntry)
	for rows.Next() {
		var id string
		var worked int
		var absencesJSON string
		if err := rows.Scan(&id, &worked, &absencesJSON); err != nil {
			return nil, err
		}
		entry := payroll.RosterEntry{EmployeeID: payroll.EmployeeID(id), WorkedDays: worked}
		if err := json.Unmarshal([]byte(absencesJSON), &entry.Absences); err != nil {
			return nil, fmt.Errorf("corrupt absences for employee %s: %w", id, err)
		}
		out[entry.EmployeeID] = entry
	}
	return out, rows.Err()
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentRecord is a persisted payment row.
type PaymentRecord struct {
	PeriodID   string
	EmployeeID payroll.EmployeeID
	Basic      string
	Gross      string
	Net        string
	Lines      []RubricPaymentRecord
}

// RubricPaymentRecord is one valued rubric on a persisted payment.
type RubricPaymentRecord struct {
	RubricID payroll.RubricID
	Category payroll.RubricCategory
	Amount   string
}

// SavePayslips replaces the period's payments with the computed slips,
// atomically. Amounts are stored rounded to 2 decimals.
func (s *Store) SavePayslips(ctx context.Context, periodID string, slips []payroll.Payslip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM payment WHERE period_id = ?", periodID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM rubric_payment WHERE period_id = ?", periodID); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, slip := range slips {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO payment (period_id, employee_id, basic_salary, gross_salary, net_salary, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			periodID, string(slip.Employee),
			slip.BasicSalary.Round2().Value.String(),
			slip.GrossSalary.Round2().Value.String(),
			slip.NetSalary.Round2().Value.String(),
			now); err != nil {
			return err
		}
		for _, line := range slip.Lines {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO rubric_payment (period_id, employee_id, rubric_id, category, amount)
				VALUES (?, ?, ?, ?, ?)`,
				periodID, string(slip.Employee), string(line.Rubric.ID),
				string(line.Category), line.Amount.Round2().Value.String()); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// ListPayments returns the persisted payments for a period with their
// rubric lines.
func (s *Store) ListPayments(ctx context.Context, periodID string) ([]PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, basic_salary, gross_salary, net_salary
		FROM payment WHERE period_id = ? ORDER BY employee_id`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PaymentRecord
	index := make(map[payroll.EmployeeID]int)
	for rows.Next() {
		var r PaymentRecord
		var id string
		if err := rows.Scan(&id, &r.Basic, &r.Gross, &r.Net); err != nil {
			return nil, err
		}
		r.PeriodID = periodID
		r.EmployeeID = payroll.EmployeeID(id)
		index[r.EmployeeID] = len(records)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lineRows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, rubric_id, category, amount
		FROM rubric_payment WHERE period_id = ? ORDER BY employee_id, rubric_id`, periodID)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var id, rubricID, category, amount string
		if err := lineRows.Scan(&id, &rubricID, &category, &amount); err != nil {
			return nil, err
		}
		if i, ok := index[payroll.EmployeeID(id)]; ok {
			records[i].Lines = append(records[i].Lines, RubricPaymentRecord{
				RubricID: payroll.RubricID(rubricID),
				Category: payroll.RubricCategory(category),
				Amount:   amount,
			})
		}
	}
	return records, lineRows.Err()
}

// =============================================================================
// EXECUTOR (commitment.Executor)
// =============================================================================

// Apply executes an op list inside one transaction, retrying the whole
// unit on lock contention up to the fixed bound. SQLite reports contention
// as SQLITE_BUSY/SQLITE_LOCKED; the server-database equivalent is a
// deadlock error.
func (s *Store) Apply(ctx context.Context, ops []commitment.Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for attempt := 0; attempt <= lockRetries; attempt++ {
		if attempt > 0 {
			s.log.WithFields(logrus.Fields{"attempt": attempt}).
				Warn("retrying payroll transaction after lock contention")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(lockBackoff):
			}
		}
		err = s.applyOnce(ctx, ops)
		if err == nil || !isLockError(err) {
			return err
		}
	}
	return fmt.Errorf("transaction failed after %d retries: %w", lockRetries, err)
}

func (s *Store) applyOnce(ctx context.Context, ops []commitment.Op) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		switch op.Kind {
		case commitment.OpExec:
			if _, err := tx.ExecContext(ctx, op.SQL, op.Args...); err != nil {
				return err
			}
		case commitment.OpPostVoucher:
			if len(op.Args) != 1 {
				return fmt.Errorf("post-voucher op expects exactly one argument")
			}
			id, ok := op.Args[0].(string)
			if !ok {
				return fmt.Errorf("post-voucher op expects a voucher id")
			}
			if err := postVoucher(ctx, tx, id); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown op kind %d", op.Kind)
		}
	}
	return tx.Commit()
}

// postVoucher copies the voucher's item lines into the general ledger and
// marks it posted. It must run after the header and items are inserted in
// the same transaction; the emitter guarantees that ordering.
func postVoucher(ctx context.Context, tx *sql.Tx, voucherID string) error {
	var periodID string
	var posted int
	err := tx.QueryRowContext(ctx,
		"SELECT period_id, posted FROM voucher WHERE id = ?", voucherID).Scan(&periodID, &posted)
	if err == sql.ErrNoRows {
		return fmt.Errorf("cannot post voucher %s: header not inserted", voucherID)
	}
	if err != nil {
		return err
	}
	if posted == 1 {
		return fmt.Errorf("voucher %s is already posted", voucherID)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO general_ledger (voucher_id, account_id, debit, credit, entity_id, cost_center_id, period_id, posted_at)
		SELECT voucher_id, account_id, debit, credit, entity_id, cost_center_id, ?, ?
		FROM voucher_item WHERE voucher_id = ?`,
		periodID, now, voucherID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, "UPDATE voucher SET posted = 1 WHERE id = ?", voucherID)
	return err
}

// =============================================================================
// VOUCHER QUERIES
// =============================================================================

// VoucherRecord is a persisted voucher with its item lines.
type VoucherRecord struct {
	ID          string
	Date        string
	TypeID      int
	CurrencyID  int
	Amount      string
	Description string
	Posted      bool
	Reversed    bool
	Items       []VoucherItemRecord
}

// VoucherItemRecord is one persisted voucher line.
type VoucherItemRecord struct {
	ID          string
	AccountID   int
	Debit       string
	Credit      string
	EntityID    string
	CostCenter  int
	Description string
}

// ListVouchers returns the vouchers of a period with their lines.
func (s *Store) ListVouchers(ctx context.Context, periodID string) ([]VoucherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, type_id, currency_id, amount, description, posted, reversed
		FROM voucher WHERE period_id = ? ORDER BY date, id`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vouchers []VoucherRecord
	index := make(map[string]int)
	for rows.Next() {
		var v VoucherRecord
		var posted, reversed int
		if err := rows.Scan(&v.ID, &v.Date, &v.TypeID, &v.CurrencyID, &v.Amount, &v.Description, &posted, &reversed); err != nil {
			return nil, err
		}
		v.Posted = posted == 1
		v.Reversed = reversed == 1
		index[v.ID] = len(vouchers)
		vouchers = append(vouchers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(vouchers) == 0 {
		return vouchers, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT vi.id, vi.voucher_id, vi.account_id, vi.debit, vi.credit, vi.entity_id, vi.cost_center_id, vi.description
		FROM voucher_item vi
		JOIN voucher v ON v.id = vi.voucher_id
		WHERE v.period_id = ?
		ORDER BY vi.voucher_id, vi.id`, periodID)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it VoucherItemRecord
		var voucherID string
		var entity, description sql.NullString
		if err := itemRows.Scan(&it.ID, &voucherID, &it.AccountID, &it.Debit, &it.Credit, &entity, &it.CostCenter, &description); err != nil {
			return nil, err
		}
		it.EntityID = entity.String
		it.Description = description.String
		if i, ok := index[voucherID]; ok {
			vouchers[i].Items = append(vouchers[i].Items, it)
		}
	}
	return vouchers, itemRows.Err()
}

// ReverseVoucher flips the reversed flag on a posted voucher. Posted
// vouchers are otherwise immutable.
func (s *Store) ReverseVoucher(ctx context.Context, voucherID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE voucher SET reversed = 1 WHERE id = ? AND posted = 1", voucherID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("voucher %s not found or not posted", voucherID)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
