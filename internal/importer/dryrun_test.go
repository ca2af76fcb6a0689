package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geonook/learning-management-system-esid-sub001/internal/config"
	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
)

func TestDryRun_NeverWrites(t *testing.T) {
	st := store.NewMemStore()
	seedEnrollment(st)
	checker := NewDryRunChecker(st, testConfig())

	input := &model.ImportInput{
		Users: []model.UserImport{
			{Email: "new@school.edu", FullName: "New", Role: model.RoleTeacher},
		},
		Courses: []model.CourseImport{
			{ClassName: "G8 Missing", CourseType: model.CourseTypeLT,
				TeacherEmail: "lt.teacher@school.edu", AcademicYear: "24-25"},
		},
	}

	result := checker.Check(context.Background(), input, "actor-1")

	require.Equal(t, 1, result.WouldCreate[model.StageUsers])
	require.Equal(t, 1, result.WouldCreate[model.StageCourses])
	require.Len(t, result.PotentialWarnings, 1)
	require.Equal(t, model.StageCourses, result.PotentialWarnings[0].Stage)
	require.Contains(t, result.PotentialWarnings[0].Message, "G8 Missing")

	for _, call := range st.Calls() {
		require.Equal(t, "select", call.Op, "dry run must not write to %s", call.Table)
	}
	require.Equal(t, 1, st.Count("users"))
	require.Equal(t, 1, st.Count("courses"))
}

func TestDryRun_WouldUpdateStaysZero(t *testing.T) {
	st := store.NewMemStore()
	seedEnrollment(st)
	checker := NewDryRunChecker(st, testConfig())

	// The student already exists, but would-create still counts the input
	// row: the counts are an upper bound, not a create/update forecast.
	input := &model.ImportInput{Students: []model.StudentImport{
		{StudentID: "P001", FullName: "First Student", Grade: 1, Track: "local", ClassName: "G1 Achievers"},
	}}

	result := checker.Check(context.Background(), input, "actor-1")

	require.Equal(t, 1, result.WouldCreate[model.StageStudents])
	for _, stage := range model.Stages {
		require.Equal(t, 0, result.WouldUpdate[stage])
	}
	require.Empty(t, result.PotentialWarnings)
}

func TestDryRun_MissingExamIsNotAWarning(t *testing.T) {
	st := store.NewMemStore()
	seedEnrollment(st)
	checker := NewDryRunChecker(st, testConfig())

	input := &model.ImportInput{Scores: []model.ScoreImport{
		{StudentID: "P001", ExamName: "Brand New Exam", CourseType: model.CourseTypeLT,
			AssessmentCode: "FA1", Score: 82},
	}}

	result := checker.Check(context.Background(), input, "actor-1")

	require.Empty(t, result.PotentialWarnings, "a missing exam is auto-created by a real run")
	require.Equal(t, 1, result.WouldCreate[model.StageScores])
}

func TestDryRun_ScoreWarningsMirrorRealRun(t *testing.T) {
	st := store.NewMemStore()
	seedEnrollment(st)
	checker := NewDryRunChecker(st, testConfig())

	input := &model.ImportInput{Scores: []model.ScoreImport{
		{StudentID: "P999", ExamName: "Midterm", CourseType: model.CourseTypeLT, AssessmentCode: "FA1", Score: 50},
		{StudentID: "P001", ExamName: "Midterm", CourseType: model.CourseTypeKCFS, AssessmentCode: "FA1", Score: 60},
	}}

	result := checker.Check(context.Background(), input, "actor-1")

	require.Len(t, result.PotentialWarnings, 2)
	require.Contains(t, result.PotentialWarnings[0].Message, "P999")
	require.Contains(t, result.PotentialWarnings[1].Message, "KCFS")
}

func TestDryRun_DegradedLookupIsReported(t *testing.T) {
	st := store.NewMemStore()
	st.SelectHook = func(table string) error {
		if table == "classes" {
			return errors.New("connection refused")
		}
		return nil
	}
	checker := NewDryRunChecker(st, testConfig())

	input := &model.ImportInput{Students: []model.StudentImport{
		{StudentID: "P500", FullName: "S", Grade: 1, Track: "local", ClassName: "G1 Achievers"},
	}}

	result := checker.Check(context.Background(), input, "actor-1")

	require.GreaterOrEqual(t, len(result.PotentialWarnings), 2)
	require.Equal(t, model.StageSystem, result.PotentialWarnings[0].Stage)
	require.Contains(t, result.PotentialWarnings[0].Message, "classes")
}

func TestDryRun_TriggerAssistedChecksClassTeachers(t *testing.T) {
	st := store.NewMemStore()
	cfg := testConfig()
	cfg.CourseCreationMode = config.CourseCreationTriggerAssisted
	checker := NewDryRunChecker(st, cfg)

	input := &model.ImportInput{Classes: []model.ClassImport{
		{Name: "G1 Achievers", Grade: 1, Track: "local", AcademicYear: "24-25",
			TeacherEmail: "nobody@school.edu"},
		{Name: "G1 Builders", Grade: 1, Track: "local", AcademicYear: "24-25"},
	}}

	result := checker.Check(context.Background(), input, "actor-1")

	require.Len(t, result.PotentialWarnings, 1)
	require.Equal(t, model.StageClasses, result.PotentialWarnings[0].Stage)
	require.Contains(t, result.PotentialWarnings[0].Message, "nobody@school.edu")
}
