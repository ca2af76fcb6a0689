package importer

import (
	"context"
	"fmt"

	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
)

// Students is the fourth stage. The class reference is optional: a student
// with no class name imports unassigned, and a class name that fails to
// resolve is a warning while the student row is still persisted with a null
// class reference.
func (e *Executor) runStudents(ctx context.Context, records []model.StudentImport, result *model.ImportResult) {
	rows := make([]store.Row, 0, len(records))
	for _, rec := range records {
		row := store.Row{
			"student_id": rec.StudentID,
			"full_name":  rec.FullName,
			"grade":      rec.Grade,
			"track":      rec.Track,
			"is_active":  true,
		}
		if rec.Level != "" {
			row["level"] = rec.Level
		}

		if rec.ClassName != "" {
			if classID := e.resolver.GetClassID(rec.ClassName); classID != "" {
				row["class_id"] = classID
			} else {
				result.AddWarning(model.StageStudents,
					fmt.Sprintf("class %s not found, importing student %s unassigned", rec.ClassName, rec.StudentID),
					rec)
				row["class_id"] = nil
			}
		}

		rows = append(rows, row)
	}

	outcome := e.batch.Upsert(ctx, model.StageStudents, "students", rows, []string{"student_id"})
	result.MergeStage(model.StageStudents, outcome.Created, outcome.Updated, outcome.Errors)
}
