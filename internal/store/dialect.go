package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// sqliteTimeLayout sorts lexically in the same order as the instants it encodes.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// dialect captures the differences between the SQL backends.
type dialect struct {
	name       string
	driver     string
	schema     []string
	numbered   bool // $1, $2 placeholders instead of ?
	nativeTime bool // timestamps bound as time.Time
}

var sqliteDialect = dialect{
	name:   DriverSQLite,
	driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS years (
			year INTEGER PRIMARY KEY,
			inputs TEXT NOT NULL,
			defaults TEXT NOT NULL,
			transactions TEXT NOT NULL DEFAULT '[]',
			last_updated TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			year INTEGER NOT NULL,
			date TEXT NOT NULL,
			amount TEXT NOT NULL,
			description TEXT,
			sender TEXT,
			bill_to TEXT,
			notes TEXT,
			causale TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_year_idx ON transactions (year)`,
		`CREATE TABLE IF NOT EXISTS transaction_templates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			sender TEXT,
			bill_to TEXT,
			notes TEXT,
			created_at TEXT NOT NULL
		)`,
	},
}

var postgresDialect = dialect{
	name:       DriverPostgres,
	driver:     "pgx",
	numbered:   true,
	nativeTime: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS years (
			year INTEGER PRIMARY KEY,
			inputs JSONB NOT NULL,
			defaults JSONB NOT NULL,
			transactions JSONB NOT NULL DEFAULT '[]'::jsonb,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			year INTEGER NOT NULL,
			date DATE NOT NULL,
			amount NUMERIC(14, 2) NOT NULL,
			description TEXT,
			sender TEXT,
			bill_to TEXT,
			notes TEXT,
			causale TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_year_idx ON transactions (year)`,
		`CREATE TABLE IF NOT EXISTS transaction_templates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			sender TEXT,
			bill_to TEXT,
			notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (d dialect) timeArg(t time.Time) any {
	if d.nativeTime {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

// scanTime accepts whatever the driver returned for a timestamp column.
func scanTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseStoredTime(t)
	case []byte:
		return parseStoredTime(string(t))
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
}

func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// scanDate returns a DATE or TEXT column as YYYY-MM-DD.
func scanDate(v any) (string, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("2006-01-02"), nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	default:
		return "", fmt.Errorf("unexpected date type %T", v)
	}
}

// scanAmount returns a NUMERIC or TEXT column as a decimal.
func scanAmount(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case string:
		return decimal.NewFromString(t)
	case []byte:
		return decimal.NewFromString(string(t))
	case float64:
		return decimal.NewFromFloat(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unexpected amount type %T", v)
	}
}
