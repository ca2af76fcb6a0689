package importer

import (
	"context"
	"fmt"

	"github.com/geonook/learning-management-system-esid-sub001/internal/config"
	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
)

// Classes is the second stage. The class rows themselves need no foreign
// keys. In trigger-assisted mode the database creates one course row per
// course type alongside each class, and this stage then patches the
// designated teacher onto the matching course; a teacher or class that fails
// to resolve at that point is only a warning, since the class row is already
// persisted.
func (e *Executor) runClasses(ctx context.Context, records []model.ClassImport, result *model.ImportResult) {
	rows := make([]store.Row, 0, len(records))
	for _, rec := range records {
		row := store.Row{
			"name":          rec.Name,
			"grade":         rec.Grade,
			"track":         rec.Track,
			"academic_year": rec.AcademicYear,
			"is_active":     true,
		}
		if rec.Level != "" {
			row["level"] = rec.Level
		}
		rows = append(rows, row)
	}

	outcome := e.batch.Upsert(ctx, model.StageClasses, "classes", rows,
		[]string{"name", "grade", "track", "academic_year"})
	result.MergeStage(model.StageClasses, outcome.Created, outcome.Updated, outcome.Errors)

	if e.cfg.CourseCreationMode == config.CourseCreationTriggerAssisted {
		e.patchClassTeachers(ctx, records, result)
	}
}

func (e *Executor) patchClassTeachers(ctx context.Context, records []model.ClassImport, result *model.ImportResult) {
	// Re-read so the just-written classes and their trigger-created courses
	// are visible.
	e.resolver.Refresh(ctx)

	for _, rec := range records {
		if rec.TeacherEmail == "" {
			continue
		}

		teacherID := e.resolver.GetUserID(rec.TeacherEmail)
		if teacherID == "" {
			result.AddWarning(model.StageClasses,
				fmt.Sprintf("teacher %s not found, skipping course assignment for class %s", rec.TeacherEmail, rec.Name),
				rec)
			continue
		}

		courseType := e.resolver.GetTeacherType(rec.TeacherEmail)
		if courseType == "" {
			result.AddWarning(model.StageClasses,
				fmt.Sprintf("teacher %s has no declared course type, skipping course assignment for class %s", rec.TeacherEmail, rec.Name),
				rec)
			continue
		}

		classID := e.resolver.GetClassID(rec.Name)
		if classID == "" {
			result.AddWarning(model.StageClasses,
				fmt.Sprintf("class %s not found after insert, skipping course assignment", rec.Name),
				rec)
			continue
		}

		if err := e.assignCourseTeacher(ctx, classID, courseType, teacherID); err != nil {
			result.AddWarning(model.StageClasses,
				fmt.Sprintf("failed to assign teacher %s to %s course of class %s: %v", rec.TeacherEmail, courseType, rec.Name, err),
				rec)
		}
	}
}

// assignCourseTeacher patches teacher_id onto the auto-created course row
// for (classID, courseType).
func (e *Executor) assignCourseTeacher(ctx context.Context, classID string, courseType model.CourseType, teacherID string) error {
	existing, err := e.store.Select(ctx, "courses", store.Filter{
		Eq:    map[string]interface{}{"class_id": classID, "course_type": string(courseType)},
		Limit: 1,
	})
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return fmt.Errorf("no auto-created course row for class %s type %s", classID, courseType)
	}

	row := existing[0]
	row["teacher_id"] = teacherID
	_, err = e.store.Upsert(ctx, "courses", []store.Row{row}, []string{"class_id", "course_type"})
	return err
}
