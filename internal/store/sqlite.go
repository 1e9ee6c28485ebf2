package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"finquery/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the active dataset in SQLite. Amounts are stored
// as integer cents so summation stays exact. Replace runs inside one
// transaction, and per-request reads run inside one read transaction,
// so a request sees the old or the new dataset, never a mix.
type SQLiteStore struct {
	db *sql.DB
	sqliteReader
}

// sqlQuerier is satisfied by *sql.DB and *sql.Tx.
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqliteReader implements the read queries against either the pool or
// a pinned read transaction.
type sqliteReader struct {
	q sqlQuerier
}

// sqliteView pins a read transaction for the duration of a request.
// A transaction is bound to one connection, so concurrent reads on the
// view are serialized through the mutex.
type sqliteView struct {
	mu sync.Mutex
	sqliteReader
	tx *sql.Tx
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL so replace-ingestion does not block pinned read views.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, sqliteReader: sqliteReader{q: db}}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// View opens a read transaction. SQLite pins the transaction to the
// dataset state as of its first read, so every statement in the view
// observes the same rows.
func (s *SQLiteStore) View(ctx context.Context) (View, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("open read view: %w: %w", ErrUnavailable, err)
	}
	return &sqliteView{sqliteReader: sqliteReader{q: tx}, tx: tx}, nil
}

func (v *sqliteView) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tx.Rollback()
}

func (v *sqliteView) Aggregate(ctx context.Context, f core.Filter) (core.MetricResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sqliteReader.Aggregate(ctx, f)
}

func (v *sqliteView) Select(ctx context.Context, f core.Filter, limit int) ([]core.Transaction, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sqliteReader.Select(ctx, f, limit)
}

func (v *sqliteView) GroupTotals(ctx context.Context, f core.Filter, by Dimension) ([]GroupTotal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sqliteReader.GroupTotals(ctx, f, by)
}

func (v *sqliteView) Vocabulary(ctx context.Context) (core.Vocabulary, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sqliteReader.Vocabulary(ctx)
}

// whereClause translates a Filter into SQL. This is the only place the
// filter semantics exist for this backend: the aggregate, the row
// selection and the grouped totals all build on it.
func whereClause(f core.Filter) (string, []any) {
	conds := []string{"1=1"}
	var args []any

	if f.Month != "" {
		conds = append(conds, "year_month = ?")
		args = append(args, f.Month)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Merchant != "" {
		conds = append(conds, "merchant = ?")
		args = append(args, f.Merchant)
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, f.Source)
	}
	switch f.Kind {
	case core.Expense:
		conds = append(conds, "amount_cents >= 0")
	case core.Income:
		conds = append(conds, "amount_cents < 0")
	}

	return strings.Join(conds, " AND "), args
}

func (r sqliteReader) Aggregate(ctx context.Context, f core.Filter) (core.MetricResult, error) {
	where, args := whereClause(f)

	var cents int64
	var count int
	query := "SELECT COALESCE(SUM(amount_cents), 0), COUNT(*) FROM transactions WHERE " + where
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&cents, &count); err != nil {
		return core.MetricResult{}, fmt.Errorf("aggregate transactions: %w: %w", ErrUnavailable, err)
	}

	return core.MetricResult{Value: decimal.New(cents, -2), Count: count, Filters: f}, nil
}

func (r sqliteReader) Select(ctx context.Context, f core.Filter, limit int) ([]core.Transaction, error) {
	where, args := whereClause(f)

	query := `SELECT id, ingest_id, date, year_month, amount_cents, merchant, what, category, source
		FROM transactions WHERE ` + where + ` ORDER BY date DESC, id ASC`
	if limit >= 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var date string
		var cents int64
		if err := rows.Scan(&t.ID, &t.IngestID, &date, &t.YearMonth, &cents, &t.Merchant, &t.What, &t.Category, &t.Source); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Date, err = time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}
		t.Amount = decimal.New(cents, -2)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r sqliteReader) GroupTotals(ctx context.Context, f core.Filter, by Dimension) ([]GroupTotal, error) {
	var column string
	switch by {
	case ByCategory:
		column = "category"
	case ByMerchant:
		column = "merchant"
	case BySource:
		column = "source"
	default:
		return nil, fmt.Errorf("unsupported group dimension: %s", by)
	}

	where, args := whereClause(f)
	query := "SELECT " + column + ", COALESCE(SUM(amount_cents), 0), COUNT(*) FROM transactions WHERE " +
		where + " AND " + column + " != '' GROUP BY " + column +
		" ORDER BY SUM(amount_cents) DESC, " + column + " ASC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("group totals by %s: %w: %w", by, ErrUnavailable, err)
	}
	defer rows.Close()

	var groups []GroupTotal
	for rows.Next() {
		var key string
		var cents int64
		var count int
		if err := rows.Scan(&key, &cents, &count); err != nil {
			return nil, fmt.Errorf("scan group total: %w", err)
		}
		groups = append(groups, GroupTotal{
			Key:   key,
			Total: core.MetricResult{Value: decimal.New(cents, -2), Count: count, Filters: f},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group totals: %w", err)
	}
	return groups, nil
}

func (r sqliteReader) Vocabulary(ctx context.Context) (core.Vocabulary, error) {
	var vocab core.Vocabulary
	for _, d := range []struct {
		column string
		dest   *[]string
	}{
		{"category", &vocab.Categories},
		{"merchant", &vocab.Merchants},
		{"source", &vocab.Sources},
	} {
		values, err := r.distinct(ctx, d.column)
		if err != nil {
			return core.Vocabulary{}, err
		}
		*d.dest = values
	}
	return vocab, nil
}

func (r sqliteReader) distinct(ctx context.Context, column string) ([]string, error) {
	query := "SELECT DISTINCT " + column + " FROM transactions WHERE " + column + " != '' ORDER BY " + column
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w: %w", column, ErrUnavailable, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Replace clears the transactions table and bulk-inserts the new rows
// inside a single transaction.
func (s *SQLiteStore) Replace(ctx context.Context, ingestID string, txns []core.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM transactions"); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(id, ingest_id, date, year_month, amount_cents, abs_amount_cents, merchant, what, category, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txns {
		cents := t.Amount.Shift(2).IntPart()
		abs := cents
		if abs < 0 {
			abs = -abs
		}
		_, err := stmt.ExecContext(ctx,
			t.ID, ingestID, t.Date.Format("2006-01-02"), t.YearMonth,
			cents, abs, t.Merchant, t.What, t.Category, t.Source)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}

	slog.InfoContext(ctx, "Dataset replaced in SQLite",
		"ingest_id", ingestID,
		"rows", len(txns))
	return nil
}
