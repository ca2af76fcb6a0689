package importer

import (
	"context"
	"fmt"

	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
)

// Scores is the last and most involved stage. Each record needs a resolved
// student, an entered-by teacher (falling back to the run's actor when the
// declared email does not resolve), and the course enrolling the student for
// the record's course type. The exam is resolved by name and auto-created
// under the course's class when absent; the new id is registered on the
// resolver immediately so later records naming the same exam reuse it
// instead of inserting a duplicate.
func (e *Executor) runScores(ctx context.Context, records []model.ScoreImport, actorID string, result *model.ImportResult) {
	rows := make([]store.Row, 0, len(records))
	for _, rec := range records {
		row := e.scoreRow(ctx, rec, actorID, result)
		if row != nil {
			rows = append(rows, row)
		}
	}

	outcome := e.batch.Upsert(ctx, model.StageScores, "scores", rows,
		[]string{"student_id", "exam_id", "assessment_code"})
	result.MergeStage(model.StageScores, outcome.Created, outcome.Updated, outcome.Errors)
}

// scoreRow resolves one score record into a store-ready row, or nil when a
// required reference is missing. Every missing-reference case is an
// independent warning; siblings in the batch continue processing.
func (e *Executor) scoreRow(ctx context.Context, rec model.ScoreImport, actorID string, result *model.ImportResult) store.Row {
	studentID := e.resolver.GetStudentID(rec.StudentID)
	if studentID == "" {
		result.AddWarning(model.StageScores,
			fmt.Sprintf("student %s not found, skipping score for exam %s", rec.StudentID, rec.ExamName),
			rec)
		return nil
	}

	enteredBy := ""
	if rec.EnteredByEmail != "" {
		enteredBy = e.resolver.GetUserID(rec.EnteredByEmail)
	}
	if enteredBy == "" {
		enteredBy = actorID
	}
	if enteredBy == "" {
		result.AddWarning(model.StageScores,
			fmt.Sprintf("no teacher resolved for %s and no import actor, skipping score for student %s", rec.EnteredByEmail, rec.StudentID),
			rec)
		return nil
	}

	course, ok := e.resolver.getCourse(studentID, rec.CourseType)
	if !ok {
		result.AddWarning(model.StageScores,
			fmt.Sprintf("no %s course enrollment for student %s, skipping score", rec.CourseType, rec.StudentID),
			rec)
		return nil
	}

	examID := e.resolver.GetExamID(rec.ExamName)
	if examID == "" {
		created, err := e.createExam(ctx, rec.ExamName, course.ClassID, enteredBy)
		if err != nil {
			result.AddWarning(model.StageScores,
				fmt.Sprintf("failed to auto-create exam %s: %v, skipping score for student %s", rec.ExamName, err, rec.StudentID),
				rec)
			return nil
		}
		examID = created
		e.resolver.AddExamMapping(rec.ExamName, examID)
	}

	return store.Row{
		"student_id":      studentID,
		"exam_id":         examID,
		"assessment_code": rec.AssessmentCode,
		"score":           rec.Score,
		"entered_by":      enteredBy,
	}
}

func (e *Executor) createExam(ctx context.Context, name, classID, createdBy string) (string, error) {
	rows, err := e.store.Insert(ctx, "exams", []store.Row{{
		"name":       name,
		"class_id":   classID,
		"created_by": createdBy,
	}})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 || rows[0].ID() == "" {
		return "", fmt.Errorf("store returned no id for exam %s", name)
	}
	return rows[0].ID(), nil
}
