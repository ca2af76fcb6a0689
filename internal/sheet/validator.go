package sheet

import (
	"context"
	"regexp"

	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/pkg/errors"
)

type Validator struct {
	studentIDRegex *regexp.Regexp
	emailRegex     *regexp.Regexp
}

func NewValidator() *Validator {
	return &Validator{
		studentIDRegex: regexp.MustCompile(`^[A-Z0-9]{4,20}$`),
		emailRegex:     regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`),
	}
}

func (v *Validator) Validate(ctx context.Context, input *model.ImportInput) error {
	if input.Empty() {
		return errors.ErrSchemaValidation
	}

	for _, rec := range input.Users {
		if !v.emailRegex.MatchString(rec.Email) {
			return errors.ValidationError{Field: "email", Value: rec.Email, Message: "must be a valid email address"}
		}
		if !rec.Role.Valid() {
			return errors.ValidationError{Field: "role", Value: rec.Role, Message: "must be one of admin, head, teacher, office"}
		}
		if rec.TeacherType != "" && !rec.TeacherType.Valid() {
			return errors.ValidationError{Field: "teacher_type", Value: rec.TeacherType, Message: "must be one of LT, IT, KCFS"}
		}
	}

	for _, rec := range input.Classes {
		if rec.Grade < 1 || rec.Grade > 12 {
			return errors.ValidationError{Field: "grade", Value: rec.Grade, Message: "must be between 1 and 12"}
		}
	}

	for _, rec := range input.Courses {
		if !rec.CourseType.Valid() {
			return errors.ValidationError{Field: "course_type", Value: rec.CourseType, Message: "must be one of LT, IT, KCFS"}
		}
		if !v.emailRegex.MatchString(rec.TeacherEmail) {
			return errors.ValidationError{Field: "teacher_email", Value: rec.TeacherEmail, Message: "must be a valid email address"}
		}
	}

	for _, rec := range input.Students {
		if !v.studentIDRegex.MatchString(rec.StudentID) {
			return errors.ValidationError{Field: "student_id", Value: rec.StudentID, Message: "must be 4-20 uppercase alphanumeric characters"}
		}
		if rec.Grade < 1 || rec.Grade > 12 {
			return errors.ValidationError{Field: "grade", Value: rec.Grade, Message: "must be between 1 and 12"}
		}
	}

	for _, rec := range input.Scores {
		if !v.studentIDRegex.MatchString(rec.StudentID) {
			return errors.ValidationError{Field: "student_id", Value: rec.StudentID, Message: "must be 4-20 uppercase alphanumeric characters"}
		}
		if !rec.CourseType.Valid() {
			return errors.ValidationError{Field: "course_type", Value: rec.CourseType, Message: "must be one of LT, IT, KCFS"}
		}
		if rec.Score < 0 || rec.Score > 100 {
			return errors.ValidationError{Field: "score", Value: rec.Score, Message: "must be between 0 and 100"}
		}
	}

	return nil
}
