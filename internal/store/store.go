// Package store persists tax years, their revenue transactions and the
// reusable transaction templates.
package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
	"github.com/melnicenkovadik/my-tax-calculator/internal/validation"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid record")
)

// Store is the persistence surface used by the CLI.
//
// A year record keeps its transactions in two places: the list saved with the
// year (SaveYear, imports) and the individually added transaction rows
// (AddTransaction). Year returns both merged by ID, rows first, newest first.
type Store interface {
	Years(ctx context.Context) ([]int, error)
	Year(ctx context.Context, year int) (*domain.YearData, error)
	SaveYear(ctx context.Context, y *domain.YearData) error
	DeleteYear(ctx context.Context, year int) error

	AddTransaction(ctx context.Context, year int, tx domain.RevenueTransaction) (domain.RevenueTransaction, error)
	UpdateTransaction(ctx context.Context, tx domain.RevenueTransaction) (domain.RevenueTransaction, error)
	DeleteTransaction(ctx context.Context, id string) error

	Templates(ctx context.Context) ([]domain.TransactionTemplate, error)
	Template(ctx context.Context, id string) (domain.TransactionTemplate, error)
	CreateTemplate(ctx context.Context, tpl domain.TransactionTemplate) (domain.TransactionTemplate, error)
	UpdateTemplate(ctx context.Context, tpl domain.TransactionTemplate) (domain.TransactionTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error

	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the store for driver. dsn is the SQLite file path or the
// PostgreSQL connection URL and is ignored for the memory driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, "":
		return OpenSQLite(ctx, dsn)
	case DriverPostgres, "postgresql", "pgx":
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q: expected %s, %s or %s", driver, DriverSQLite, DriverPostgres, DriverMemory)
	}
}

var nowFunc = time.Now

// SetNowFunc overrides the clock used for timestamps and template IDs. Intended for tests.
func SetNowFunc(f func() time.Time) {
	if f == nil {
		nowFunc = time.Now
		return
	}
	nowFunc = f
}

func now() time.Time { return nowFunc().UTC() }

// transactionID keeps a client supplied UUID and generates one otherwise.
func transactionID(candidate string) string {
	if validation.IsTransactionID(candidate) {
		return strings.ToLower(candidate)
	}
	return uuid.NewString()
}

// withIDs gives transactions saved without an ID a generated one, so the
// merge by ID in Year never folds them together. txs is modified in place.
func withIDs(txs []domain.RevenueTransaction) []domain.RevenueTransaction {
	for i := range txs {
		if strings.TrimSpace(txs[i].ID) == "" {
			txs[i].ID = uuid.NewString()
		}
	}
	return txs
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// templateID returns "<unix millis>-<8 base36 chars>".
func templateID(t time.Time) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	sb.WriteByte('-')
	limit := big.NewInt(int64(len(base36)))
	for i := 0; i < 8; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand never fails on supported platforms; fall back to the clock.
			n = big.NewInt(t.UnixNano() % int64(len(base36)))
		}
		sb.WriteByte(base36[n.Int64()])
	}
	return sb.String()
}

func checkYear(year int) error {
	if year < validation.MinYear || year > validation.MaxYear {
		return fmt.Errorf("%w: year %d out of range", ErrInvalid, year)
	}
	return nil
}

func checkTemplate(tpl domain.TransactionTemplate) error {
	if strings.TrimSpace(tpl.Name) == "" {
		return fmt.Errorf("%w: template name is required", ErrInvalid)
	}
	return nil
}

// removeByID drops the transaction with id from txs.
func removeByID(txs []domain.RevenueTransaction, id string) ([]domain.RevenueTransaction, bool) {
	out := make([]domain.RevenueTransaction, 0, len(txs))
	found := false
	for _, tx := range txs {
		if tx.ID == id {
			found = true
			continue
		}
		out = append(out, tx)
	}
	return out, found
}

// replaceByID swaps the transaction with the same ID as tx.
func replaceByID(txs []domain.RevenueTransaction, tx domain.RevenueTransaction) ([]domain.RevenueTransaction, bool) {
	out := make([]domain.RevenueTransaction, len(txs))
	copy(out, txs)
	for i := range out {
		if out[i].ID == tx.ID {
			out[i] = tx
			return out, true
		}
	}
	return out, false
}
