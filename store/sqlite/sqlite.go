/*
Package sqlite provides the SQLite-backed tracker.Store.

PURPOSE:
  Persists the tracker's records - transactions, obligation series, credit
  cards, settings - in a single SQLite file. The same patterns apply to
  PostgreSQL; only minor SQL dialect differences.

KEY TABLES:
  transactions: Manually recorded income/expense entries
  obligations:  Recurring obligation definitions; the exclusion and
                settlement sets are stored as JSON arrays on the row that
                owns them, so the read-modify-write discipline maps onto a
                single-row update
  credit_cards: Accounts obligations can link to
  settings:     One row (id = 1): cycle boundaries, days off, savings plan

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking. The
  database is opened in WAL mode so readers do not block the writer.

USAGE:
  store, err := sqlite.New("./data/tracker.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool with versioned migrations.

SEE ALSO:
  - tracker/store.go: Interface definition
  - tracker/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/billing-engine/engine"
	"github.com/warp/billing-engine/tracker"
)

// Store implements tracker.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store at the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
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
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		kind TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_date
		ON transactions(date);

	CREATE TABLE IF NOT EXISTS obligations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		amount TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		anchor_date TEXT NOT NULL,
		recurrence TEXT NOT NULL,
		installments INTEGER,
		excluded_dates_json TEXT NOT NULL DEFAULT '[]',
		settled_dates_json TEXT NOT NULL DEFAULT '[]',
		card_id TEXT NOT NULL DEFAULT '',
		seq INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_obligations_card
		ON obligations(card_id) WHERE card_id != '';

	CREATE TABLE IF NOT EXISTS credit_cards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		credit_limit TEXT NOT NULL DEFAULT '0',
		seq INTEGER
	);

	-- Single-row table; id is always 1.
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		start_day INTEGER NOT NULL,
		end_day INTEGER,
		days_off_json TEXT NOT NULL DEFAULT '[]',
		daily_saving_target TEXT NOT NULL DEFAULT '0',
		savings_dates_json TEXT NOT NULL DEFAULT '[]',
		savings_adjustments_json TEXT NOT NULL DEFAULT '{}',
		savings_withdrawals_json TEXT NOT NULL DEFAULT '{}'
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Seed the default settings row so reads never miss.
	_, err := s.db.Exec(
		`INSERT INTO settings (id, start_day) VALUES (1, 1)
		 ON CONFLICT(id) DO NOTHING`,
	)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) Transactions(ctx context.Context) ([]tracker.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsQ(ctx, s.db)
}

func transactionsQ(ctx context.Context, q querier) ([]tracker.Transaction, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, amount, description, date, kind
		 FROM transactions ORDER BY date ASC, rowid ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []tracker.Transaction
	for rows.Next() {
		var tx tracker.Transaction
		var amount string
		if err := rows.Scan(&tx.ID, &amount, &tx.Description, &tx.Date, &tx.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Amount = engine.MustParseMoney(amount)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) SaveTransaction(ctx context.Context, tx tracker.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveTransactionQ(ctx, s.db, tx)
}

func saveTransactionQ(ctx context.Context, q querier, tx tracker.Transaction) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO transactions (id, amount, description, date, kind)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			description = excluded.description,
			date = excluded.date,
			kind = excluded.kind`,
		tx.ID, tx.Amount.String(), tx.Description, tx.Date, tx.Kind,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id engine.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRowQ(ctx, s.db, "transactions", string(id))
}

// =============================================================================
// OBLIGATIONS
// =============================================================================

func (s *Store) Obligations(ctx context.Context) ([]engine.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return obligationsQ(ctx, s.db)
}

const obligationColumns = `id, title, amount, category, kind, anchor_date,
	recurrence, installments, excluded_dates_json, settled_dates_json, card_id`

func obligationsQ(ctx context.Context, q querier) ([]engine.Obligation, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+obligationColumns+` FROM obligations ORDER BY seq ASC, rowid ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query obligations: %w", err)
	}
	defer rows.Close()

	var out []engine.Obligation
	for rows.Next() {
		o, err := scanObligation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) GetObligation(ctx context.Context, id engine.ObligationID) (engine.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getObligationQ(ctx, s.db, id)
}

func getObligationQ(ctx context.Context, q querier, id engine.ObligationID) (engine.Obligation, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+obligationColumns+` FROM obligations WHERE id = ?`, string(id),
	)
	o, err := scanObligation(row.Scan)
	if err == sql.ErrNoRows {
		return engine.Obligation{}, tracker.ErrNotFound
	}
	return o, err
}

func scanObligation(scan func(dest ...any) error) (engine.Obligation, error) {
	var (
		o            engine.Obligation
		amount       string
		installments sql.NullInt64
		excludedJSON string
		settledJSON  string
	)
	err := scan(
		&o.ID, &o.Title, &amount, &o.Category, &o.Kind, &o.AnchorDate,
		&o.Recurrence, &installments, &excludedJSON, &settledJSON, &o.CardID,
	)
	if err != nil {
		return o, err
	}

	o.Amount = engine.MustParseMoney(amount)
	if installments.Valid {
		n := int(installments.Int64)
		o.Installments = &n
	}
	if err := json.Unmarshal([]byte(excludedJSON), &o.ExcludedDates); err != nil {
		return o, fmt.Errorf("corrupt excluded_dates for %s: %w", o.ID, err)
	}
	if err := json.Unmarshal([]byte(settledJSON), &o.SettledDates); err != nil {
		return o, fmt.Errorf("corrupt settled_dates for %s: %w", o.ID, err)
	}
	return o, nil
}

func (s *Store) SaveObligation(ctx context.Context, o engine.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveObligationQ(ctx, s.db, o)
}

func saveObligationQ(ctx context.Context, q querier, o engine.Obligation) error {
	excludedJSON, err := json.Marshal(dateList(o.ExcludedDates))
	if err != nil {
		return err
	}
	settledJSON, err := json.Marshal(dateList(o.SettledDates))
	if err != nil {
		return err
	}

	var installments *int64
	if o.Installments != nil {
		n := int64(*o.Installments)
		installments = &n
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO obligations
		 (id, title, amount, category, kind, anchor_date, recurrence,
		  installments, excluded_dates_json, settled_dates_json, card_id, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		         (SELECT COALESCE(MAX(seq), 0) + 1 FROM obligations))
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			amount = excluded.amount,
			category = excluded.category,
			kind = excluded.kind,
			anchor_date = excluded.anchor_date,
			recurrence = excluded.recurrence,
			installments = excluded.installments,
			excluded_dates_json = excluded.excluded_dates_json,
			settled_dates_json = excluded.settled_dates_json,
			card_id = excluded.card_id`,
		o.ID, o.Title, o.Amount.String(), o.Category, o.Kind, o.AnchorDate,
		o.Recurrence, installments, string(excludedJSON), string(settledJSON), o.CardID,
	)
	if err != nil {
		return fmt.Errorf("failed to save obligation: %w", err)
	}
	return nil
}

// dateList normalizes nil to an empty slice so the stored JSON is always an
// array, never null.
func dateList(dates []engine.DateString) []engine.DateString {
	if dates == nil {
		return []engine.DateString{}
	}
	return dates
}

func (s *Store) DeleteObligation(ctx context.Context, id engine.ObligationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRowQ(ctx, s.db, "obligations", string(id))
}

// =============================================================================
// CREDIT CARDS
// =============================================================================

func (s *Store) Cards(ctx context.Context) ([]tracker.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cardsQ(ctx, s.db)
}

func cardsQ(ctx context.Context, q querier) ([]tracker.CreditCard, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, color, credit_limit
		 FROM credit_cards ORDER BY seq ASC, rowid ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var out []tracker.CreditCard
	for rows.Next() {
		var c tracker.CreditCard
		var limit string
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &limit); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		c.Limit = engine.MustParseMoney(limit)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SaveCard(ctx context.Context, c tracker.CreditCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveCardQ(ctx, s.db, c)
}

func saveCardQ(ctx context.Context, q querier, c tracker.CreditCard) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO credit_cards (id, name, color, credit_limit, seq)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM credit_cards))
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			credit_limit = excluded.credit_limit`,
		c.ID, c.Name, c.Color, c.Limit.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save card: %w", err)
	}
	return nil
}

func (s *Store) DeleteCard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRowQ(ctx, s.db, "credit_cards", id)
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) Settings(ctx context.Context) (tracker.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return settingsQ(ctx, s.db)
}

func settingsQ(ctx context.Context, q querier) (tracker.Settings, error) {
	row := q.QueryRowContext(ctx,
		`SELECT start_day, end_day, days_off_json, daily_saving_target,
		        savings_dates_json, savings_adjustments_json, savings_withdrawals_json
		 FROM settings WHERE id = 1`,
	)

	var (
		settings        tracker.Settings
		endDay          sql.NullInt64
		daysOffJSON     string
		target          string
		savingsJSON     string
		adjustmentsJSON string
		withdrawalsJSON string
	)
	err := row.Scan(&settings.StartDay, &endDay, &daysOffJSON, &target,
		&savingsJSON, &adjustmentsJSON, &withdrawalsJSON)
	if err == sql.ErrNoRows {
		return tracker.DefaultSettings(), nil
	}
	if err != nil {
		return settings, fmt.Errorf("failed to load settings: %w", err)
	}

	if endDay.Valid {
		n := int(endDay.Int64)
		settings.EndDay = &n
	}
	settings.DailySavingTarget = engine.MustParseMoney(target)
	if err := json.Unmarshal([]byte(daysOffJSON), &settings.DaysOff); err != nil {
		return settings, fmt.Errorf("corrupt days_off: %w", err)
	}
	if err := json.Unmarshal([]byte(savingsJSON), &settings.SavingsDates); err != nil {
		return settings, fmt.Errorf("corrupt savings_dates: %w", err)
	}
	if err := unmarshalMoneyMap(adjustmentsJSON, &settings.SavingsAdjustments); err != nil {
		return settings, fmt.Errorf("corrupt savings_adjustments: %w", err)
	}
	if err := unmarshalMoneyMap(withdrawalsJSON, &settings.SavingsWithdrawals); err != nil {
		return settings, fmt.Errorf("corrupt savings_withdrawals: %w", err)
	}
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings tracker.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveSettingsQ(ctx, s.db, settings)
}

func saveSettingsQ(ctx context.Context, q querier, settings tracker.Settings) error {
	daysOffJSON, err := json.Marshal(dateList(settings.DaysOff))
	if err != nil {
		return err
	}
	savingsJSON, err := json.Marshal(dateList(settings.SavingsDates))
	if err != nil {
		return err
	}
	adjustmentsJSON, err := marshalMoneyMap(settings.SavingsAdjustments)
	if err != nil {
		return err
	}
	withdrawalsJSON, err := marshalMoneyMap(settings.SavingsWithdrawals)
	if err != nil {
		return err
	}

	var endDay *int64
	if settings.EndDay != nil {
		n := int64(*settings.EndDay)
		endDay = &n
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO settings
		 (id, start_day, end_day, days_off_json, daily_saving_target,
		  savings_dates_json, savings_adjustments_json, savings_withdrawals_json)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			start_day = excluded.start_day,
			end_day = excluded.end_day,
			days_off_json = excluded.days_off_json,
			daily_saving_target = excluded.daily_saving_target,
			savings_dates_json = excluded.savings_dates_json,
			savings_adjustments_json = excluded.savings_adjustments_json,
			savings_withdrawals_json = excluded.savings_withdrawals_json`,
		settings.StartDay, endDay, string(daysOffJSON),
		settings.DailySavingTarget.String(), string(savingsJSON),
		adjustmentsJSON, withdrawalsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Money maps round-trip through their decimal string form.

func marshalMoneyMap(m map[engine.DateString]engine.Money) (string, error) {
	plain := make(map[engine.DateString]string, len(m))
	for k, v := range m {
		plain[k] = v.String()
	}
	b, err := json.Marshal(plain)
	return string(b), err
}

func unmarshalMoneyMap(data string, out *map[engine.DateString]engine.Money) error {
	var plain map[engine.DateString]string
	if err := json.Unmarshal([]byte(data), &plain); err != nil {
		return err
	}
	if len(plain) == 0 {
		return nil
	}
	m := make(map[engine.DateString]engine.Money, len(plain))
	for k, v := range plain {
		m[k] = engine.MustParseMoney(v)
	}
	*out = m
	return nil
}

// =============================================================================
// TRANSACTION SUPPORT
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tracker.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every call through the open sql.Tx so reads inside the
// transaction see its own writes.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Transactions(ctx context.Context) ([]tracker.Transaction, error) {
	return transactionsQ(ctx, ts.tx)
}

func (ts *txStore) SaveTransaction(ctx context.Context, tx tracker.Transaction) error {
	return saveTransactionQ(ctx, ts.tx, tx)
}

func (ts *txStore) DeleteTransaction(ctx context.Context, id engine.TransactionID) error {
	return deleteRowQ(ctx, ts.tx, "transactions", string(id))
}

func (ts *txStore) Obligations(ctx context.Context) ([]engine.Obligation, error) {
	return obligationsQ(ctx, ts.tx)
}

func (ts *txStore) GetObligation(ctx context.Context, id engine.ObligationID) (engine.Obligation, error) {
	return getObligationQ(ctx, ts.tx, id)
}

func (ts *txStore) SaveObligation(ctx context.Context, o engine.Obligation) error {
	return saveObligationQ(ctx, ts.tx, o)
}

func (ts *txStore) DeleteObligation(ctx context.Context, id engine.ObligationID) error {
	return deleteRowQ(ctx, ts.tx, "obligations", string(id))
}

func (ts *txStore) Cards(ctx context.Context) ([]tracker.CreditCard, error) {
	return cardsQ(ctx, ts.tx)
}

func (ts *txStore) SaveCard(ctx context.Context, c tracker.CreditCard) error {
	return saveCardQ(ctx, ts.tx, c)
}

func (ts *txStore) DeleteCard(ctx context.Context, id string) error {
	return deleteRowQ(ctx, ts.tx, "credit_cards", id)
}

func (ts *txStore) Settings(ctx context.Context) (tracker.Settings, error) {
	return settingsQ(ctx, ts.tx)
}

func (ts *txStore) SaveSettings(ctx context.Context, settings tracker.Settings) error {
	return saveSettingsQ(ctx, ts.tx, settings)
}

// Nested WithTx joins the ongoing transaction.
func (ts *txStore) WithTx(_ context.Context, fn func(tracker.Store) error) error {
	return fn(ts)
}

// =============================================================================
// HELPERS
// =============================================================================

func deleteRowQ(ctx context.Context, q querier, table, id string) error {
	res, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tracker.ErrNotFound
	}
	return nil
}
