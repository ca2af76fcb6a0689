package sheet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/pkg/errors"
)

func validInput() *model.ImportInput {
	return &model.ImportInput{
		Users: []model.UserImport{
			{Email: "t@school.edu", FullName: "T", Role: model.RoleTeacher, TeacherType: model.CourseTypeLT},
		},
		Classes: []model.ClassImport{
			{Name: "G1 Achievers", Grade: 1, Track: "local", AcademicYear: "24-25"},
		},
		Courses: []model.CourseImport{
			{ClassName: "G1 Achievers", CourseType: model.CourseTypeLT, TeacherEmail: "t@school.edu", AcademicYear: "24-25"},
		},
		Students: []model.StudentImport{
			{StudentID: "P001", FullName: "S", Grade: 1, Track: "local"},
		},
		Scores: []model.ScoreImport{
			{StudentID: "P001", ExamName: "Midterm", CourseType: model.CourseTypeLT, AssessmentCode: "FA1", Score: 100},
		},
	}
}

func TestValidator_AcceptsValidInput(t *testing.T) {
	require.NoError(t, NewValidator().Validate(context.Background(), validInput()))
}

func TestValidator_EmptyInput(t *testing.T) {
	err := NewValidator().Validate(context.Background(), &model.ImportInput{})
	require.ErrorIs(t, err, errors.ErrSchemaValidation)
}

func TestValidator_RejectsBadFields(t *testing.T) {
	v := NewValidator()
	ctx := context.Background()

	in := validInput()
	in.Users[0].Email = "not-an-email"
	requireValidationError(t, v.Validate(ctx, in), "email")

	in = validInput()
	in.Users[0].Role = "principal"
	requireValidationError(t, v.Validate(ctx, in), "role")

	in = validInput()
	in.Classes[0].Grade = 13
	requireValidationError(t, v.Validate(ctx, in), "grade")

	in = validInput()
	in.Courses[0].CourseType = "ESL"
	requireValidationError(t, v.Validate(ctx, in), "course_type")

	in = validInput()
	in.Students[0].StudentID = "p1" // lowercase and too short
	requireValidationError(t, v.Validate(ctx, in), "student_id")

	in = validInput()
	in.Scores[0].Score = 101
	requireValidationError(t, v.Validate(ctx, in), "score")

	in = validInput()
	in.Scores[0].Score = -1
	requireValidationError(t, v.Validate(ctx, in), "score")
}

func requireValidationError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var verr errors.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, field, verr.Field)
}
