package importer

import (
	"context"
	"fmt"

	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
)

// courseStage is the strategy seam for the two Courses-stage designs that
// exist in deployments: one where the pipeline inserts course rows itself,
// and one where the database auto-creates them and the pipeline only patches
// teacher assignments. Selected via importer.course_creation_mode.
type courseStage interface {
	run(ctx context.Context, e *Executor, records []model.CourseImport, result *model.ImportResult)
}

// explicitCourseStage inserts course rows from class-name + teacher-email
// pairs. Both references must resolve; records missing either are warned and
// dropped. Rows are upserted on (class_id, course_type) so re-running the
// same import is idempotent.
type explicitCourseStage struct{}

func (explicitCourseStage) run(ctx context.Context, e *Executor, records []model.CourseImport, result *model.ImportResult) {
	rows := make([]store.Row, 0, len(records))
	for _, rec := range records {
		classID := e.resolver.GetClassID(rec.ClassName)
		if classID == "" {
			result.AddWarning(model.StageCourses,
				fmt.Sprintf("class %s not found, skipping %s course", rec.ClassName, rec.CourseType),
				rec)
			continue
		}
		teacherID := e.resolver.GetUserID(rec.TeacherEmail)
		if teacherID == "" {
			result.AddWarning(model.StageCourses,
				fmt.Sprintf("teacher %s not found, skipping %s course for class %s", rec.TeacherEmail, rec.CourseType, rec.ClassName),
				rec)
			continue
		}

		rows = append(rows, store.Row{
			"class_id":      classID,
			"course_type":   string(rec.CourseType),
			"teacher_id":    teacherID,
			"academic_year": rec.AcademicYear,
			"is_active":     true,
		})
	}

	outcome := e.batch.Upsert(ctx, model.StageCourses, "courses", rows, []string{"class_id", "course_type"})
	result.MergeStage(model.StageCourses, outcome.Created, outcome.Updated, outcome.Errors)
}

// triggerAssistedCourseStage never creates rows: the database already did
// when the class was inserted. It only resolves each record and patches the
// teacher onto the existing course row; a missing course row means the
// trigger has not produced it, which is a warning rather than an error.
type triggerAssistedCourseStage struct{}

func (triggerAssistedCourseStage) run(ctx context.Context, e *Executor, records []model.CourseImport, result *model.ImportResult) {
	updated := 0
	for _, rec := range records {
		classID := e.resolver.GetClassID(rec.ClassName)
		if classID == "" {
			result.AddWarning(model.StageCourses,
				fmt.Sprintf("class %s not found, skipping %s course assignment", rec.ClassName, rec.CourseType),
				rec)
			continue
		}
		teacherID := e.resolver.GetUserID(rec.TeacherEmail)
		if teacherID == "" {
			result.AddWarning(model.StageCourses,
				fmt.Sprintf("teacher %s not found, skipping %s course assignment for class %s", rec.TeacherEmail, rec.CourseType, rec.ClassName),
				rec)
			continue
		}

		if err := e.assignCourseTeacher(ctx, classID, rec.CourseType, teacherID); err != nil {
			result.AddWarning(model.StageCourses,
				fmt.Sprintf("failed to assign teacher %s to %s course of class %s: %v", rec.TeacherEmail, rec.CourseType, rec.ClassName, err),
				rec)
			continue
		}
		updated++
	}

	result.MergeStage(model.StageCourses, 0, updated, nil)
}
