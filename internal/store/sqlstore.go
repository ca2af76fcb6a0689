package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// SQLStore implements RowStore over database/sql with MySQL semantics.
// Surrogate ids are client-generated UUIDs so inserted rows can be returned
// without a second query.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Select(ctx context.Context, table string, filter Filter) ([]Row, error) {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(table)

	var args []interface{}
	if len(filter.Eq) > 0 {
		keys := sortedKeys(filter.Eq)
		conds := make([]string, 0, len(keys))
		for _, k := range keys {
			conds = append(conds, k+" = ?")
			args = append(args, filter.Eq[k])
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	if filter.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = normalize(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *SQLStore) Insert(ctx context.Context, table string, rows []Row) ([]Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	columns := assignIDs(rows)
	query, args := buildInsert(table, columns, rows, "")

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SQLStore) Upsert(ctx context.Context, table string, rows []Row, conflictKeys []string) (*UpsertResult, error) {
	if len(rows) == 0 {
		return &UpsertResult{}, nil
	}

	columns := assignIDs(rows)

	conflict := make(map[string]bool, len(conflictKeys))
	for _, k := range conflictKeys {
		conflict[k] = true
	}
	var updates []string
	for _, col := range columns {
		if col == "id" || conflict[col] {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", col, col))
	}
	if len(updates) == 0 {
		// Nothing beyond the natural key; touch the key column so the
		// statement stays a valid upsert.
		updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", conflictKeys[0], conflictKeys[0]))
	}

	query, args := buildInsert(table, columns, rows, " ON DUPLICATE KEY UPDATE "+strings.Join(updates, ", "))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	// MySQL reports 1 affected row per insert and 2 per update, so with n
	// input rows: updated = affected - n. Rows whose values were unchanged
	// report 0 and are counted as creates; close enough for summaries.
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	updated := int(affected) - len(rows)
	if updated < 0 {
		updated = 0
	}

	return &UpsertResult{
		Rows:    rows,
		Created: len(rows) - updated,
		Updated: updated,
	}, nil
}

// assignIDs gives every row a UUID id if missing and returns the sorted
// column set of the batch (rows in one batch share a transform, but absent
// optional columns are tolerated and bound as NULL).
func assignIDs(rows []Row) []string {
	colSet := make(map[string]bool)
	for _, row := range rows {
		if row.ID() == "" {
			row["id"] = uuid.NewString()
		}
		for col := range row {
			colSet[col] = true
		}
	}
	columns := make([]string, 0, len(colSet))
	for col := range colSet {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

func buildInsert(table string, columns []string, rows []Row, suffix string) (string, []interface{}) {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	placeholders := make([]string, len(rows))
	args := make([]interface{}, 0, len(columns)*len(rows))
	for i, row := range rows {
		placeholders[i] = placeholder
		for _, col := range columns {
			args = append(args, row[col])
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s%s",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "), suffix)
	return query, args
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalize converts driver []byte values into strings so Row lookups behave
// the same across backends.
func normalize(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
