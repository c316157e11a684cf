package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
)

type txRow struct {
	year      int
	tx        domain.RevenueTransaction
	createdAt time.Time
}

// MemoryStore keeps everything in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	years     map[int]domain.YearData
	rows      map[string]txRow
	templates map[string]domain.TransactionTemplate
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		years:     make(map[int]domain.YearData),
		rows:      make(map[string]txRow),
		templates: make(map[string]domain.TransactionTemplate),
	}
}

func (m *MemoryStore) Years(ctx context.Context) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	years := make([]int, 0, len(m.years))
	for y := range m.years {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (m *MemoryStore) Year(ctx context.Context, year int) (*domain.YearData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	y, ok := m.years[year]
	if !ok {
		return nil, fmt.Errorf("year %d: %w", year, ErrNotFound)
	}

	rows := make([]txRow, 0)
	for _, r := range m.rows {
		if r.year == year {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].tx.Date != rows[j].tx.Date {
			return rows[i].tx.Date > rows[j].tx.Date
		}
		return rows[i].createdAt.After(rows[j].createdAt)
	})
	primary := make([]domain.RevenueTransaction, len(rows))
	for i, r := range rows {
		primary[i] = r.tx
	}

	out := y
	out.Transactions = domain.MergeTransactions(primary, y.Transactions)
	return &out, nil
}

func (m *MemoryStore) SaveYear(ctx context.Context, y *domain.YearData) error {
	if y == nil {
		return fmt.Errorf("%w: nil year record", ErrInvalid)
	}
	if err := checkYear(y.Year); err != nil {
		return err
	}
	rec := *domain.NewYearData(y.Year, y.Inputs, y.Defaults, y.Transactions, now())
	rec.Transactions = withIDs(rec.Transactions)
	m.mu.Lock()
	m.years[y.Year] = rec
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteYear(ctx context.Context, year int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.years, year)
	for id, r := range m.rows {
		if r.year == year {
			delete(m.rows, id)
		}
	}
	return nil
}

func (m *MemoryStore) AddTransaction(ctx context.Context, year int, tx domain.RevenueTransaction) (domain.RevenueTransaction, error) {
	if err := checkYear(year); err != nil {
		return domain.RevenueTransaction{}, err
	}
	tx.ID = transactionID(tx.ID)
	tx.Attachments = nil
	ts := now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rows[tx.ID]; exists {
		return domain.RevenueTransaction{}, fmt.Errorf("%w: transaction %s already exists", ErrInvalid, tx.ID)
	}
	m.rows[tx.ID] = txRow{year: year, tx: tx, createdAt: ts}
	y, ok := m.years[year]
	if !ok {
		defaults := domain.DefaultInputValues(year)
		y = domain.YearData{Year: year, Inputs: defaults, Defaults: defaults, Transactions: []domain.RevenueTransaction{}}
	}
	y.LastUpdated = ts
	m.years[year] = y
	return tx, nil
}

func (m *MemoryStore) UpdateTransaction(ctx context.Context, tx domain.RevenueTransaction) (domain.RevenueTransaction, error) {
	tx.Attachments = nil
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[tx.ID]; ok {
		r.tx = tx
		m.rows[tx.ID] = r
		return tx, nil
	}
	for year, y := range m.years {
		if updated, ok := replaceByID(y.Transactions, tx); ok {
			y.Transactions = updated
			y.LastUpdated = now()
			m.years[year] = y
			return tx, nil
		}
	}
	return domain.RevenueTransaction{}, fmt.Errorf("transaction %s: %w", tx.ID, ErrNotFound)
}

func (m *MemoryStore) DeleteTransaction(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	if _, ok := m.rows[id]; ok {
		delete(m.rows, id)
		found = true
	}
	for year, y := range m.years {
		if remaining, ok := removeByID(y.Transactions, id); ok {
			y.Transactions = remaining
			m.years[year] = y
			found = true
		}
	}
	if !found {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return nil
}

func (m *MemoryStore) Templates(ctx context.Context) ([]domain.TransactionTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.TransactionTemplate, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t)
	}
	sortTemplates(out)
	return out, nil
}

func (m *MemoryStore) Template(ctx context.Context, id string) (domain.TransactionTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return domain.TransactionTemplate{}, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *MemoryStore) CreateTemplate(ctx context.Context, tpl domain.TransactionTemplate) (domain.TransactionTemplate, error) {
	if err := checkTemplate(tpl); err != nil {
		return domain.TransactionTemplate{}, err
	}
	ts := now()
	tpl.ID = templateID(ts)
	tpl.CreatedAt = ts
	m.mu.Lock()
	m.templates[tpl.ID] = tpl
	m.mu.Unlock()
	return tpl, nil
}

func (m *MemoryStore) UpdateTemplate(ctx context.Context, tpl domain.TransactionTemplate) (domain.TransactionTemplate, error) {
	if err := checkTemplate(tpl); err != nil {
		return domain.TransactionTemplate{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.templates[tpl.ID]
	if !ok {
		return domain.TransactionTemplate{}, fmt.Errorf("template %s: %w", tpl.ID, ErrNotFound)
	}
	tpl.CreatedAt = existing.CreatedAt
	m.templates[tpl.ID] = tpl
	return tpl, nil
}

func (m *MemoryStore) DeleteTemplate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	delete(m.templates, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// sortTemplates orders templates newest first.
func sortTemplates(ts []domain.TransactionTemplate) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.After(ts[j].CreatedAt)
		}
		return ts[i].ID > ts[j].ID
	})
}

var _ Store = (*MemoryStore)(nil)
