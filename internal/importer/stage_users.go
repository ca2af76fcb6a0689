package importer

import (
	"context"

	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
)

// Users is the first stage: no foreign keys to resolve, so every record
// survives the transform. Duplicate emails are absorbed by the upsert.
func (e *Executor) runUsers(ctx context.Context, records []model.UserImport, result *model.ImportResult) {
	rows := make([]store.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, userRow(rec))
	}

	outcome := e.batch.Upsert(ctx, model.StageUsers, "users", rows, []string{"email"})
	result.MergeStage(model.StageUsers, outcome.Created, outcome.Updated, outcome.Errors)
}

func userRow(rec model.UserImport) store.Row {
	row := store.Row{
		"email":     rec.Email,
		"full_name": rec.FullName,
		"role":      string(rec.Role),
		"is_active": true,
	}
	if rec.TeacherType != "" {
		row["teacher_type"] = string(rec.TeacherType)
	}
	if rec.Grade != 0 {
		row["grade"] = rec.Grade
	}
	if rec.Track != "" {
		row["track"] = rec.Track
	}
	return row
}
