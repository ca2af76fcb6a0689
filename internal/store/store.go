// Package store exposes the generic row-level interface the import pipeline
// writes through. The pipeline never sees table schemas or the identifier
// scheme; surrogate ids are opaque strings under the "id" key.
package store

import (
	"context"
	"strconv"
)

// Row is one table row keyed by column name.
type Row map[string]interface{}

// ID returns the row's surrogate identifier, or "" when unassigned.
func (r Row) ID() string {
	if id, ok := r["id"].(string); ok {
		return id
	}
	return ""
}

// String returns the named column as a string, or "" for NULL or missing.
func (r Row) String(column string) string {
	if v, ok := r[column].(string); ok {
		return v
	}
	return ""
}

// Float returns the named column as a float64, or 0 for NULL or missing.
// MySQL's text protocol hands numeric columns (DECIMAL in particular) to the
// driver as bytes, which Select normalizes to strings, so this parses them.
func (r Row) Float(column string) float64 {
	switch v := r[column].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	}
	return 0
}

// Filter is an equality filter with an optional row cap. A zero Filter
// matches everything.
type Filter struct {
	Eq    map[string]interface{}
	Limit int
}

// UpsertResult carries the written rows plus how many hit the insert vs the
// update path, as far as the backend can tell.
type UpsertResult struct {
	Rows    []Row
	Created int
	Updated int
}

// RowStore is the backend contract. Calls have whole-call failure semantics:
// no sub-row granularity is guaranteed, which is why the batch inserter falls
// back to per-row writes when a bulk call fails.
type RowStore interface {
	Select(ctx context.Context, table string, filter Filter) ([]Row, error)
	Insert(ctx context.Context, table string, rows []Row) ([]Row, error)
	Upsert(ctx context.Context, table string, rows []Row, conflictKeys []string) (*UpsertResult, error)
}
