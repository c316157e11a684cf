package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
)

// SQLStore implements Store on database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	d      dialect
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open(sqliteDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	// A single connection avoids SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return newSQLStore(ctx, db, sqliteDialect)
}

// OpenPostgres connects to url, retrying with exponential backoff while the
// server comes up.
func OpenPostgres(ctx context.Context, url string) (*SQLStore, error) {
	if url == "" {
		return nil, fmt.Errorf("postgres connection url is empty")
	}

	const retries = 5
	backoff := time.Second
	var err error
	for i := 0; i < retries; i++ {
		var db *sql.DB
		db, err = sql.Open(postgresDialect.driver, url)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = db.PingContext(pingCtx)
			cancel()
			if err == nil {
				return newSQLStore(ctx, db, postgresDialect)
			}
			db.Close()
		}

		slog.Warn("postgres connection attempt failed", "attempt", i+1, "of", retries, "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("could not connect to postgres after %d attempts: %w", retries, err)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, d: d, logger: slog.Default().With("component", "store", "driver", d.name)}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetLogger replaces the store logger. Nil restores the default.
func (s *SQLStore) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	s.logger = l.With("component", "store", "driver", s.d.name)
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) exec(ctx context.Context, q queryer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.d.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, q queryer, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.d.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, q queryer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.d.rebind(query), args...)
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (s *SQLStore) Years(ctx context.Context) ([]int, error) {
	rows, err := s.query(ctx, s.db, `SELECT year FROM years ORDER BY year DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list years: %w", err)
	}
	defer rows.Close()

	years := []int{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("failed to scan year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

func (s *SQLStore) Year(ctx context.Context, year int) (*domain.YearData, error) {
	var (
		inputs, defaults, stored []byte
		lastUpdated              any
	)
	err := s.queryRow(ctx, s.db,
		`SELECT inputs, defaults, transactions, last_updated FROM years WHERE year = ?`, year,
	).Scan(&inputs, &defaults, &stored, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("year %d: %w", year, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load year %d: %w", year, err)
	}

	y := &domain.YearData{Year: year}
	if err := json.Unmarshal(inputs, &y.Inputs); err != nil {
		return nil, fmt.Errorf("failed to decode inputs for %d: %w", year, err)
	}
	if err := json.Unmarshal(defaults, &y.Defaults); err != nil {
		return nil, fmt.Errorf("failed to decode defaults for %d: %w", year, err)
	}
	storedTxs, err := decodeStoredTransactions(stored)
	if err != nil {
		s.logger.Warn("ignoring unreadable stored transactions", "year", year, "error", err)
	}
	if y.LastUpdated, err = scanTime(lastUpdated); err != nil {
		return nil, err
	}

	rowTxs, err := s.transactionRows(ctx, year)
	if err != nil {
		return nil, err
	}
	y.Transactions = domain.MergeTransactions(rowTxs, storedTxs)
	return y, nil
}

func (s *SQLStore) transactionRows(ctx context.Context, year int) ([]domain.RevenueTransaction, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT id, date, amount, description, sender, bill_to, notes, causale
		FROM transactions
		WHERE year = ?
		ORDER BY date DESC, created_at DESC`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for %d: %w", year, err)
	}
	defer rows.Close()

	var out []domain.RevenueTransaction
	for rows.Next() {
		var (
			tx                                         domain.RevenueTransaction
			date, amount                               any
			description, sender, billTo, notes, causal sql.NullString
		)
		if err := rows.Scan(&tx.ID, &date, &amount, &description, &sender, &billTo, &notes, &causal); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if tx.Date, err = scanDate(date); err != nil {
			return nil, err
		}
		if tx.Amount, err = scanAmount(amount); err != nil {
			return nil, err
		}
		tx.Description, tx.Sender, tx.BillTo = description.String, sender.String, billTo.String
		tx.Notes, tx.Causale = notes.String, causal.String
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *SQLStore) SaveYear(ctx context.Context, y *domain.YearData) error {
	if y == nil {
		return fmt.Errorf("%w: nil year record", ErrInvalid)
	}
	if err := checkYear(y.Year); err != nil {
		return err
	}
	rec := domain.NewYearData(y.Year, y.Inputs, y.Defaults, y.Transactions, now())
	rec.Transactions = withIDs(rec.Transactions)
	inputs, defaults, txs, err := encodeYear(rec)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, s.db, `
		INSERT INTO years (year, inputs, defaults, transactions, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (year) DO UPDATE SET
			inputs = excluded.inputs,
			defaults = excluded.defaults,
			transactions = excluded.transactions,
			last_updated = excluded.last_updated`,
		rec.Year, inputs, defaults, txs, s.d.timeArg(rec.LastUpdated))
	if err != nil {
		return fmt.Errorf("failed to save year %d: %w", y.Year, err)
	}
	s.logger.Debug("year saved", "year", y.Year, "transactions", len(rec.Transactions))
	return nil
}

func (s *SQLStore) DeleteYear(ctx context.Context, year int) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, `DELETE FROM transactions WHERE year = ?`, year); err != nil {
			return fmt.Errorf("failed to delete transactions of %d: %w", year, err)
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM years WHERE year = ?`, year); err != nil {
			return fmt.Errorf("failed to delete year %d: %w", year, err)
		}
		return nil
	})
}

func (s *SQLStore) AddTransaction(ctx context.Context, year int, t domain.RevenueTransaction) (domain.RevenueTransaction, error) {
	if err := checkYear(year); err != nil {
		return domain.RevenueTransaction{}, err
	}
	t.ID = transactionID(t.ID)
	t.Attachments = nil
	ts := s.d.timeArg(now())

	defaults := domain.DefaultInputValues(year)
	inputs, _, _, err := encodeYear(&domain.YearData{Inputs: defaults})
	if err != nil {
		return domain.RevenueTransaction{}, err
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := s.exec(ctx, tx, `
			INSERT INTO transactions (id, year, date, amount, description, sender, bill_to, notes, causale, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, year, t.Date, t.Amount.String(),
			nullString(t.Description), nullString(t.Sender), nullString(t.BillTo), nullString(t.Notes), nullString(t.Causale),
			ts)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
		// Creates the year with default inputs when it does not exist yet.
		_, err = s.exec(ctx, tx, `
			INSERT INTO years (year, inputs, defaults, transactions, last_updated)
			VALUES (?, ?, ?, '[]', ?)
			ON CONFLICT (year) DO UPDATE SET last_updated = excluded.last_updated`,
			year, inputs, inputs, ts)
		if err != nil {
			return fmt.Errorf("failed to touch year %d: %w", year, err)
		}
		return nil
	})
	if err != nil {
		return domain.RevenueTransaction{}, err
	}
	return t, nil
}

func (s *SQLStore) UpdateTransaction(ctx context.Context, t domain.RevenueTransaction) (domain.RevenueTransaction, error) {
	t.Attachments = nil
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, `
			UPDATE transactions
			SET date = ?, amount = ?, description = ?, sender = ?, bill_to = ?, notes = ?, causale = ?
			WHERE id = ?`,
			t.Date, t.Amount.String(),
			nullString(t.Description), nullString(t.Sender), nullString(t.BillTo), nullString(t.Notes), nullString(t.Causale),
			t.ID)
		if err != nil {
			return fmt.Errorf("failed to update transaction %s: %w", t.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		found, err := s.rewriteStored(ctx, tx, func(txs []domain.RevenueTransaction) ([]domain.RevenueTransaction, bool) {
			return replaceByID(txs, t)
		})
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("transaction %s: %w", t.ID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return domain.RevenueTransaction{}, err
	}
	return t, nil
}

func (s *SQLStore) DeleteTransaction(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, `DELETE FROM transactions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete transaction %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		found, err := s.rewriteStored(ctx, tx, func(txs []domain.RevenueTransaction) ([]domain.RevenueTransaction, bool) {
			return removeByID(txs, id)
		})
		if err != nil {
			return err
		}
		if n == 0 && !found {
			return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// rewriteStored applies fn to the stored transaction list of every year and
// writes back the lists it changed.
func (s *SQLStore) rewriteStored(ctx context.Context, tx *sql.Tx, fn func([]domain.RevenueTransaction) ([]domain.RevenueTransaction, bool)) (bool, error) {
	rows, err := s.query(ctx, tx, `SELECT year, transactions FROM years`)
	if err != nil {
		return false, fmt.Errorf("failed to read stored transactions: %w", err)
	}
	changed := map[int][]domain.RevenueTransaction{}
	for rows.Next() {
		var (
			year int
			raw  []byte
		)
		if err := rows.Scan(&year, &raw); err != nil {
			rows.Close()
			return false, fmt.Errorf("failed to scan stored transactions: %w", err)
		}
		txs, err := decodeStoredTransactions(raw)
		if err != nil {
			continue
		}
		if updated, ok := fn(txs); ok {
			changed[year] = updated
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}

	for year, txs := range changed {
		raw, err := json.Marshal(txs)
		if err != nil {
			return false, fmt.Errorf("failed to encode transactions: %w", err)
		}
		if _, err := s.exec(ctx, tx, `UPDATE years SET transactions = ?, last_updated = ? WHERE year = ?`,
			string(raw), s.d.timeArg(now()), year); err != nil {
			return false, fmt.Errorf("failed to update stored transactions of %d: %w", year, err)
		}
	}
	return len(changed) > 0, nil
}

func (s *SQLStore) Templates(ctx context.Context) ([]domain.TransactionTemplate, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT id, name, sender, bill_to, notes, created_at
		FROM transaction_templates
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	out := []domain.TransactionTemplate{}
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (s *SQLStore) Template(ctx context.Context, id string) (domain.TransactionTemplate, error) {
	row := s.queryRow(ctx, s.db, `
		SELECT id, name, sender, bill_to, notes, created_at
		FROM transaction_templates
		WHERE id = ?`, id)
	tpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TransactionTemplate{}, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return tpl, err
}

func (s *SQLStore) CreateTemplate(ctx context.Context, tpl domain.TransactionTemplate) (domain.TransactionTemplate, error) {
	if err := checkTemplate(tpl); err != nil {
		return domain.TransactionTemplate{}, err
	}
	ts := now()
	tpl.ID = templateID(ts)
	tpl.CreatedAt = ts
	_, err := s.exec(ctx, s.db, `
		INSERT INTO transaction_templates (id, name, sender, bill_to, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tpl.ID, tpl.Name, nullString(tpl.Sender), nullString(tpl.BillTo), nullString(tpl.Notes), s.d.timeArg(ts))
	if err != nil {
		return domain.TransactionTemplate{}, fmt.Errorf("failed to create template: %w", err)
	}
	return tpl, nil
}

func (s *SQLStore) UpdateTemplate(ctx context.Context, tpl domain.TransactionTemplate) (domain.TransactionTemplate, error) {
	if err := checkTemplate(tpl); err != nil {
		return domain.TransactionTemplate{}, err
	}
	res, err := s.exec(ctx, s.db, `
		UPDATE transaction_templates
		SET name = ?, sender = ?, bill_to = ?, notes = ?
		WHERE id = ?`,
		tpl.Name, nullString(tpl.Sender), nullString(tpl.BillTo), nullString(tpl.Notes), tpl.ID)
	if err != nil {
		return domain.TransactionTemplate{}, fmt.Errorf("failed to update template %s: %w", tpl.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.TransactionTemplate{}, fmt.Errorf("template %s: %w", tpl.ID, ErrNotFound)
	}
	return s.Template(ctx, tpl.ID)
}

func (s *SQLStore) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM transaction_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(r rowScanner) (domain.TransactionTemplate, error) {
	var (
		tpl                   domain.TransactionTemplate
		sender, billTo, notes sql.NullString
		createdAt             any
	)
	if err := r.Scan(&tpl.ID, &tpl.Name, &sender, &billTo, &notes, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tpl, err
		}
		return tpl, fmt.Errorf("failed to scan template: %w", err)
	}
	tpl.Sender, tpl.BillTo, tpl.Notes = sender.String, billTo.String, notes.String
	ts, err := scanTime(createdAt)
	if err != nil {
		return tpl, err
	}
	tpl.CreatedAt = ts
	return tpl, nil
}

func encodeYear(y *domain.YearData) (inputs, defaults, txs string, err error) {
	in, err := json.Marshal(y.Inputs)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode inputs: %w", err)
	}
	def, err := json.Marshal(y.Defaults)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode defaults: %w", err)
	}
	list := y.Transactions
	if list == nil {
		list = []domain.RevenueTransaction{}
	}
	tx, err := json.Marshal(list)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode transactions: %w", err)
	}
	return string(in), string(def), string(tx), nil
}

func decodeStoredTransactions(raw []byte) ([]domain.RevenueTransaction, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var txs []domain.RevenueTransaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, fmt.Errorf("failed to decode stored transactions: %w", err)
	}
	return txs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*SQLStore)(nil)
