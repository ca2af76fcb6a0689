package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geonook/learning-management-system-esid-sub001/internal/config"
	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
)

func testConfig() config.ImporterConfig {
	return config.ImporterConfig{
		ChunkSize:          100,
		RetryAttempts:      2,
		RetryDelay:         time.Millisecond,
		ChunkDelay:         time.Millisecond,
		LookupLimit:        1000,
		CourseCreationMode: config.CourseCreationExplicit,
	}
}

// seedEnrollment seeds a teacher, a class, its LT course, and one enrolled
// student, returning their ids keyed by role.
func seedEnrollment(st *store.MemStore) map[string]string {
	teacher := st.Seed("users", store.Row{
		"email": "lt.teacher@school.edu", "full_name": "LT Teacher",
		"role": "teacher", "teacher_type": "LT", "is_active": true,
	})
	class := st.Seed("classes", store.Row{
		"name": "G1 Achievers", "grade": 1, "track": "local",
		"academic_year": "24-25", "is_active": true,
	})
	course := st.Seed("courses", store.Row{
		"class_id": class.ID(), "course_type": "LT",
		"teacher_id": teacher.ID(), "academic_year": "24-25", "is_active": true,
	})
	student := st.Seed("students", store.Row{
		"student_id": "P001", "full_name": "First Student",
		"grade": 1, "track": "local", "class_id": class.ID(), "is_active": true,
	})
	return map[string]string{
		"teacher": teacher.ID(),
		"class":   class.ID(),
		"course":  course.ID(),
		"student": student.ID(),
	}
}

func TestExecute_UsersOnly(t *testing.T) {
	st := store.NewMemStore()
	exec := NewExecutor(st, testConfig())

	input := &model.ImportInput{Users: []model.UserImport{
		{Email: "a@school.edu", FullName: "A", Role: model.RoleTeacher, TeacherType: model.CourseTypeLT},
		{Email: "b@school.edu", FullName: "B", Role: model.RoleTeacher, TeacherType: model.CourseTypeIT},
		{Email: "c@school.edu", FullName: "C", Role: model.RoleHead},
	}}

	result := exec.Execute(context.Background(), input, "actor-1")

	require.True(t, result.Success)
	require.Empty(t, result.Errors)
	require.Empty(t, result.Warnings)
	require.Equal(t, 3, result.Summary[model.StageUsers].Created)
	require.Equal(t, 0, result.Summary[model.StageUsers].Updated)
	require.Equal(t, 3, st.Count("users"))
}

func TestExecute_StagesRunInDependencyOrder(t *testing.T) {
	st := store.NewMemStore()
	exec := NewExecutor(st, testConfig())

	input := &model.ImportInput{
		Users: []model.UserImport{
			{Email: "t@school.edu", FullName: "T", Role: model.RoleTeacher, TeacherType: model.CourseTypeLT},
		},
		Classes: []model.ClassImport{
			{Name: "G2 Builders", Grade: 2, Track: "local", AcademicYear: "24-25"},
		},
		Courses: []model.CourseImport{
			{ClassName: "G2 Builders", CourseType: model.CourseTypeLT, TeacherEmail: "t@school.edu", AcademicYear: "24-25"},
		},
		Students: []model.StudentImport{
			{StudentID: "P100", FullName: "S", Grade: 2, Track: "local", ClassName: "G2 Builders"},
		},
		Scores: []model.ScoreImport{
			{StudentID: "P100", ExamName: "Midterm", CourseType: model.CourseTypeLT, AssessmentCode: "FA1", Score: 88},
		},
	}

	result := exec.Execute(context.Background(), input, "actor-1")
	require.True(t, result.Success)
	require.Empty(t, result.Warnings)

	var writes []string
	for _, call := range st.Calls() {
		if call.Op != "select" {
			writes = append(writes, call.Op+":"+call.Table)
		}
	}
	require.Equal(t, []string{
		"upsert:users",
		"upsert:classes",
		"upsert:courses",
		"upsert:students",
		"insert:exams", // auto-created before its score row
		"upsert:scores",
	}, writes)
}

func TestExecute_RunTwiceIsIdempotent(t *testing.T) {
	st := store.NewMemStore()
	input := &model.ImportInput{
		Users: []model.UserImport{
			{Email: "t@school.edu", FullName: "T", Role: model.RoleTeacher, TeacherType: model.CourseTypeIT},
		},
		Classes: []model.ClassImport{
			{Name: "G3 Explorers", Grade: 3, Track: "intl", AcademicYear: "24-25"},
		},
		Courses: []model.CourseImport{
			{ClassName: "G3 Explorers", CourseType: model.CourseTypeIT, TeacherEmail: "t@school.edu", AcademicYear: "24-25"},
		},
		Students: []model.StudentImport{
			{StudentID: "P200", FullName: "S", Grade: 3, Track: "intl", ClassName: "G3 Explorers"},
		},
		Scores: []model.ScoreImport{
			{StudentID: "P200", ExamName: "Final", CourseType: model.CourseTypeIT, AssessmentCode: "SA1", Score: 95},
		},
	}

	first := NewExecutor(st, testConfig()).Execute(context.Background(), input, "actor-1")
	require.True(t, first.Success)

	second := NewExecutor(st, testConfig()).Execute(context.Background(), input, "actor-1")
	require.True(t, second.Success)
	require.Empty(t, second.Warnings)

	for _, stage := range model.Stages {
		require.Equal(t, 0, second.Summary[stage].Created, "stage %s created rows on re-run", stage)
	}
	require.Equal(t, 1, second.Summary[model.StageUsers].Updated)
	require.Equal(t, 1, second.Summary[model.StageScores].Updated)

	require.Equal(t, 1, st.Count("users"))
	require.Equal(t, 1, st.Count("classes"))
	require.Equal(t, 1, st.Count("courses"))
	require.Equal(t, 1, st.Count("students"))
	require.Equal(t, 1, st.Count("exams"))
	require.Equal(t, 1, st.Count("scores"))
}

func TestExecute_UnresolvedStudentIsWarningNotError(t *testing.T) {
	st := store.NewMemStore()
	seedEnrollment(st)
	exec := NewExecutor(st, testConfig())

	input := &model.ImportInput{Scores: []model.ScoreImport{
		{StudentID: "P999", ExamName: "Midterm", CourseType: model.CourseTypeLT, AssessmentCode: "FA1", Score: 70},
		{StudentID: "P001", ExamName: "Midterm", CourseType: model.CourseTypeLT, AssessmentCode: "FA1", Score: 85},
	}}

	result := exec.Execute(context.Background(), input, "actor-1")

	require.True(t, result.Success, "an unresolved reference must not fail the run")
	require.Empty(t, result.Errors)
	require.Len(t, result.Warnings, 1)
	require.Equal(t, model.StageScores, result.Warnings[0].Stage)
	require.Contains(t, result.Warnings[0].Message, "P999")
	require.Equal(t, 1, st.Count("scores"))
	require.Equal(t, 1, result.Summary[model.StageScores].Created)
}

func TestExecute_FailedStageDoesNotBlockLaterStages(t *testing.T) {
	st := store.NewMemStore()
	st.InsertHook = func(table string, rows []store.Row) error {
		if table == "classes" {
			return errors.New("table lock wait timeout")
		}
		return nil
	}
	exec := NewExecutor(st, testConfig())

	input := &model.ImportInput{
		Users: []model.UserImport{
			{Email: "a@school.edu", FullName: "A", Role: model.RoleTeacher, TeacherType: model.CourseTypeLT},
		},
		Classes: []model.ClassImport{
			{Name: "G4 Voyagers", Grade: 4, Track: "local", AcademicYear: "24-25"},
		},
		Students: []model.StudentImport{
			{StudentID: "P300", FullName: "S", Grade: 4, Track: "local"},
		},
	}

	result := exec.Execute(context.Background(), input, "actor-1")

	require.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	require.Equal(t, model.StageClasses, result.Errors[0].Stage)
	require.Equal(t, 1, result.Summary[model.StageClasses].Errors)

	// Earlier and later stages still landed their rows.
	require.Equal(t, 1, st.Count("users"))
	require.Equal(t, 0, st.Count("classes"))
	require.Equal(t, 1, st.Count("students"))
}

func TestExecute_ChunkFailureFallsBackPerRow(t *testing.T) {
	st := store.NewMemStore()
	bulkCalls := 0
	st.InsertHook = func(table string, rows []store.Row) error {
		if table == "users" && len(rows) > 1 {
			bulkCalls++
			if bulkCalls == 2 {
				return errors.New("deadlock found when trying to get lock")
			}
		}
		return nil
	}

	cfg := testConfig()
	cfg.ChunkSize = 5
	exec := NewExecutor(st, cfg)

	users := make([]model.UserImport, 12)
	for i := range users {
		users[i] = model.UserImport{
			Email:    fmt.Sprintf("u%02d@school.edu", i),
			FullName: fmt.Sprintf("User %02d", i),
			Role:     model.RoleTeacher,
		}
	}

	result := exec.Execute(context.Background(), &model.ImportInput{Users: users}, "actor-1")

	require.True(t, result.Success)
	require.Empty(t, result.Errors)
	require.Equal(t, 12, result.Summary[model.StageUsers].Created)
	require.Equal(t, 12, st.Count("users"))

	// The failed middle chunk was retried row by row.
	perRow := 0
	for _, call := range st.Calls() {
		if call.Op == "upsert" && call.Table == "users" && call.Rows == 1 {
			perRow++
		}
	}
	require.Equal(t, 5, perRow)
}

func TestExecute_RowExhaustingRetriesBecomesError(t *testing.T) {
	st := store.NewMemStore()
	st.InsertHook = func(table string, rows []store.Row) error {
		if table == "users" {
			for _, row := range rows {
				if row.String("email") == "bad@school.edu" {
					return errors.New("data too long for column 'email'")
				}
			}
		}
		return nil
	}

	cfg := testConfig()
	cfg.ChunkSize = 5
	exec := NewExecutor(st, cfg)

	input := &model.ImportInput{Users: []model.UserImport{
		{Email: "ok@school.edu", FullName: "OK", Role: model.RoleTeacher},
		{Email: "bad@school.edu", FullName: "Bad", Role: model.RoleTeacher},
	}}

	result := exec.Execute(context.Background(), input, "actor-1")

	require.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	require.Equal(t, model.StageUsers, result.Errors[0].Stage)
	require.Contains(t, result.Errors[0].Message, "data too long")
	require.Equal(t, 1, result.Summary[model.StageUsers].Created)
	require.Equal(t, 1, st.Count("users"))
}

func TestExecute_SharedExamCreatedOnce(t *testing.T) {
	st := store.NewMemStore()
	ids := seedEnrollment(st)
	st.Seed("students", store.Row{
		"student_id": "P002", "full_name": "Second Student",
		"grade": 1, "track": "local", "class_id": ids["class"], "is_active": true,
	})
	exec := NewExecutor(st, testConfig())

	input := &model.ImportInput{Scores: []model.ScoreImport{
		{StudentID: "P001", ExamName: "Unit 3 Quiz", CourseType: model.CourseTypeLT, AssessmentCode: "FA2", Score: 80},
		{StudentID: "P002", ExamName: "Unit 3 Quiz", CourseType: model.CourseTypeLT, AssessmentCode: "FA2", Score: 91},
	}}

	result := exec.Execute(context.Background(), input, "actor-1")

	require.True(t, result.Success)
	require.Empty(t, result.Warnings)
	require.Equal(t, 1, st.Count("exams"))
	require.Equal(t, 2, st.Count("scores"))

	examInserts := 0
	for _, call := range st.Calls() {
		if call.Op == "insert" && call.Table == "exams" {
			examInserts++
		}
	}
	require.Equal(t, 1, examInserts)
}

func TestExecute_EnteredByFallsBackToActor(t *testing.T) {
	st := store.NewMemStore()
	seedEnrollment(st)
	exec := NewExecutor(st, testConfig())

	input := &model.ImportInput{Scores: []model.ScoreImport{
		{StudentID: "P001", ExamName: "Midterm", CourseType: model.CourseTypeLT,
			AssessmentCode: "FA1", Score: 77, EnteredByEmail: "gone@school.edu"},
	}}

	result := exec.Execute(context.Background(), input, "actor-42")

	require.True(t, result.Success)
	require.Empty(t, result.Warnings)
	rows := st.Rows("scores")
	require.Len(t, rows, 1)
	require.Equal(t, "actor-42", rows[0].String("entered_by"))
}

func TestExecute_NoEnteredByAndNoActorDropsScore(t *testing.T) {
	st := store.NewMemStore()
	seedEnrollment(st)
	exec := NewExecutor(st, testConfig())

	input := &model.ImportInput{Scores: []model.ScoreImport{
		{StudentID: "P001", ExamName: "Midterm", CourseType: model.CourseTypeLT, AssessmentCode: "FA1", Score: 60},
	}}

	result := exec.Execute(context.Background(), input, "")

	require.True(t, result.Success)
	require.Len(t, result.Warnings, 1)
	require.Equal(t, model.StageScores, result.Warnings[0].Stage)
	require.Equal(t, 0, st.Count("scores"))
}

func TestExecute_UnresolvedClassImportsStudentUnassigned(t *testing.T) {
	st := store.NewMemStore()
	exec := NewExecutor(st, testConfig())

	input := &model.ImportInput{Students: []model.StudentImport{
		{StudentID: "P400", FullName: "S", Grade: 5, Track: "local", ClassName: "G5 Nowhere"},
	}}

	result := exec.Execute(context.Background(), input, "actor-1")

	require.True(t, result.Success)
	require.Len(t, result.Warnings, 1)
	require.Contains(t, result.Warnings[0].Message, "G5 Nowhere")

	rows := st.Rows("students")
	require.Len(t, rows, 1)
	require.Nil(t, rows[0]["class_id"])
}

func TestExecute_DegradedLookupWarnsOncePerTable(t *testing.T) {
	st := store.NewMemStore()
	st.SelectHook = func(table string) error {
		if table == "users" {
			return errors.New("connection refused")
		}
		return nil
	}
	exec := NewExecutor(st, testConfig())

	input := &model.ImportInput{Classes: []model.ClassImport{
		{Name: "G6 Pioneers", Grade: 6, Track: "intl", AcademicYear: "24-25"},
	}}

	result := exec.Execute(context.Background(), input, "actor-1")

	require.True(t, result.Success)
	require.Equal(t, 1, st.Count("classes"))

	var degraded []model.ImportWarning
	for _, w := range result.Warnings {
		if w.Stage == model.StageSystem {
			degraded = append(degraded, w)
		}
	}
	require.Len(t, degraded, 1, "a degraded table is reported once per run, not once per refresh")
	require.Contains(t, degraded[0].Message, "users")
}

func TestExecute_TriggerAssistedPatchesTeacherOntoCourse(t *testing.T) {
	st := store.NewMemStore()
	teacher := st.Seed("users", store.Row{
		"email": "it.teacher@school.edu", "full_name": "IT Teacher",
		"role": "teacher", "teacher_type": "IT", "is_active": true,
	})
	class := st.Seed("classes", store.Row{
		"name": "G7 Navigators", "grade": 7, "track": "intl",
		"academic_year": "24-25", "is_active": true,
	})
	// The course row a database trigger would have created with the class.
	st.Seed("courses", store.Row{
		"class_id": class.ID(), "course_type": "IT",
		"academic_year": "24-25", "is_active": true,
	})

	cfg := testConfig()
	cfg.CourseCreationMode = config.CourseCreationTriggerAssisted
	exec := NewExecutor(st, cfg)

	input := &model.ImportInput{Classes: []model.ClassImport{
		{Name: "G7 Navigators", Grade: 7, Track: "intl", AcademicYear: "24-25",
			TeacherEmail: "it.teacher@school.edu"},
	}}

	result := exec.Execute(context.Background(), input, "actor-1")

	require.True(t, result.Success)
	require.Empty(t, result.Warnings)
	require.Equal(t, 1, st.Count("classes"))
	require.Equal(t, 1, st.Count("courses"))

	rows := st.Rows("courses")
	require.Equal(t, teacher.ID(), rows[0].String("teacher_id"))
}

func TestExecute_TriggerAssistedCoursesStageNeverCreates(t *testing.T) {
	st := store.NewMemStore()
	seedEnrollment(st)

	cfg := testConfig()
	cfg.CourseCreationMode = config.CourseCreationTriggerAssisted
	exec := NewExecutor(st, cfg)

	input := &model.ImportInput{Courses: []model.CourseImport{
		{ClassName: "G1 Achievers", CourseType: model.CourseTypeLT,
			TeacherEmail: "lt.teacher@school.edu", AcademicYear: "24-25"},
		{ClassName: "G9 Missing", CourseType: model.CourseTypeLT,
			TeacherEmail: "lt.teacher@school.edu", AcademicYear: "24-25"},
	}}

	result := exec.Execute(context.Background(), input, "actor-1")

	require.True(t, result.Success)
	require.Len(t, result.Warnings, 1)
	require.Contains(t, result.Warnings[0].Message, "G9 Missing")
	require.Equal(t, 0, result.Summary[model.StageCourses].Created)
	require.Equal(t, 1, result.Summary[model.StageCourses].Updated)
	require.Equal(t, 1, st.Count("courses"))
}
