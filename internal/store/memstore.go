package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Call records one RowStore invocation, in order.
type Call struct {
	Op    string // "select", "insert", "upsert"
	Table string
	Rows  int
}

// MemStore is an in-memory RowStore with the same semantics as the SQL
// adapter. It records every call and accepts per-call failure hooks, which is
// what the pipeline tests use to verify ordering and partial-failure
// behavior. It also backs fully offline dry runs.
type MemStore struct {
	mu     sync.Mutex
	tables map[string][]Row
	calls  []Call

	// SelectHook and InsertHook, when set, run before the operation and can
	// veto it by returning an error. InsertHook also guards upserts.
	SelectHook func(table string) error
	InsertHook func(table string, rows []Row) error
}

func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string][]Row)}
}

func (m *MemStore) Select(ctx context.Context, table string, filter Filter) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "select", Table: table})

	if m.SelectHook != nil {
		if err := m.SelectHook(table); err != nil {
			return nil, err
		}
	}

	var out []Row
	for _, row := range m.tables[table] {
		if !matches(row, filter.Eq) {
			continue
		}
		out = append(out, cloneRow(row))
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemStore) Insert(ctx context.Context, table string, rows []Row) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "insert", Table: table, Rows: len(rows)})

	if m.InsertHook != nil {
		if err := m.InsertHook(table, rows); err != nil {
			return nil, err
		}
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		stored := cloneRow(row)
		if stored.ID() == "" {
			stored["id"] = uuid.NewString()
		}
		m.tables[table] = append(m.tables[table], stored)
		out = append(out, cloneRow(stored))
	}
	return out, nil
}

func (m *MemStore) Upsert(ctx context.Context, table string, rows []Row, conflictKeys []string) (*UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "upsert", Table: table, Rows: len(rows)})

	if m.InsertHook != nil {
		if err := m.InsertHook(table, rows); err != nil {
			return nil, err
		}
	}

	res := &UpsertResult{}
	for _, row := range rows {
		if existing := m.findByKeys(table, row, conflictKeys); existing != nil {
			for k, v := range row {
				if k == "id" {
					continue
				}
				existing[k] = v
			}
			res.Updated++
			res.Rows = append(res.Rows, cloneRow(existing))
			continue
		}
		stored := cloneRow(row)
		if stored.ID() == "" {
			stored["id"] = uuid.NewString()
		}
		m.tables[table] = append(m.tables[table], stored)
		res.Created++
		res.Rows = append(res.Rows, cloneRow(stored))
	}
	return res, nil
}

// Seed inserts a row directly, bypassing hooks and the call log.
func (m *MemStore) Seed(table string, row Row) Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := cloneRow(row)
	if stored.ID() == "" {
		stored["id"] = uuid.NewString()
	}
	m.tables[table] = append(m.tables[table], stored)
	return cloneRow(stored)
}

// Count returns the number of rows in a table.
func (m *MemStore) Count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

// Rows returns a copy of a table's rows.
func (m *MemStore) Rows(table string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, 0, len(m.tables[table]))
	for _, row := range m.tables[table] {
		out = append(out, cloneRow(row))
	}
	return out
}

// Calls returns the ordered call log.
func (m *MemStore) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MemStore) findByKeys(table string, row Row, keys []string) Row {
	if len(keys) == 0 {
		return nil
	}
	for _, existing := range m.tables[table] {
		match := true
		for _, k := range keys {
			if existing[k] != row[k] {
				match = false
				break
			}
		}
		if match {
			return existing
		}
	}
	return nil
}

func matches(row Row, eq map[string]interface{}) bool {
	for k, v := range eq {
		if row[k] != v {
			return false
		}
	}
	return true
}

func cloneRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
