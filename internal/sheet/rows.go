package sheet

import (
	"fmt"
	"strconv"

	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
)

// rowGetter returns the trimmed cell value for a column name, or "".
type rowGetter func(col string) string

func decodeUser(get rowGetter) (model.UserImport, error) {
	var rec model.UserImport

	rec.Email = get("email")
	if rec.Email == "" {
		return rec, fmt.Errorf("email is required")
	}
	rec.FullName = get("full_name")
	if rec.FullName == "" {
		return rec, fmt.Errorf("full_name is required")
	}
	rec.Role = model.UserRole(get("role"))
	if rec.Role == "" {
		return rec, fmt.Errorf("role is required")
	}

	rec.TeacherType = model.CourseType(get("teacher_type"))
	rec.Track = get("track")
	if g := get("grade"); g != "" {
		grade, err := strconv.Atoi(g)
		if err != nil {
			return rec, fmt.Errorf("invalid grade value: %s", g)
		}
		rec.Grade = grade
	}
	return rec, nil
}

func decodeClass(get rowGetter) (model.ClassImport, error) {
	var rec model.ClassImport

	rec.Name = get("name")
	if rec.Name == "" {
		return rec, fmt.Errorf("name is required")
	}
	g := get("grade")
	if g == "" {
		return rec, fmt.Errorf("grade is required")
	}
	grade, err := strconv.Atoi(g)
	if err != nil {
		return rec, fmt.Errorf("invalid grade value: %s", g)
	}
	rec.Grade = grade
	rec.Track = get("track")
	if rec.Track == "" {
		return rec, fmt.Errorf("track is required")
	}
	rec.AcademicYear = get("academic_year")
	if rec.AcademicYear == "" {
		return rec, fmt.Errorf("academic_year is required")
	}

	rec.Level = get("level")
	rec.TeacherEmail = get("teacher_email")
	return rec, nil
}

func decodeCourse(get rowGetter) (model.CourseImport, error) {
	var rec model.CourseImport

	rec.ClassName = get("class_name")
	if rec.ClassName == "" {
		return rec, fmt.Errorf("class_name is required")
	}
	rec.CourseType = model.CourseType(get("course_type"))
	if rec.CourseType == "" {
		return rec, fmt.Errorf("course_type is required")
	}
	rec.TeacherEmail = get("teacher_email")
	if rec.TeacherEmail == "" {
		return rec, fmt.Errorf("teacher_email is required")
	}
	rec.AcademicYear = get("academic_year")
	if rec.AcademicYear == "" {
		return rec, fmt.Errorf("academic_year is required")
	}
	return rec, nil
}

func decodeStudent(get rowGetter) (model.StudentImport, error) {
	var rec model.StudentImport

	rec.StudentID = get("student_id")
	if rec.StudentID == "" {
		return rec, fmt.Errorf("student_id is required")
	}
	rec.FullName = get("full_name")
	if rec.FullName == "" {
		return rec, fmt.Errorf("full_name is required")
	}
	g := get("grade")
	if g == "" {
		return rec, fmt.Errorf("grade is required")
	}
	grade, err := strconv.Atoi(g)
	if err != nil {
		return rec, fmt.Errorf("invalid grade value: %s", g)
	}
	rec.Grade = grade
	rec.Track = get("track")
	if rec.Track == "" {
		return rec, fmt.Errorf("track is required")
	}

	rec.Level = get("level")
	rec.ClassName = get("class_name")
	return rec, nil
}

func decodeScore(get rowGetter) (model.ScoreImport, error) {
	var rec model.ScoreImport

	rec.StudentID = get("student_id")
	if rec.StudentID == "" {
		return rec, fmt.Errorf("student_id is required")
	}
	rec.ExamName = get("exam_name")
	if rec.ExamName == "" {
		return rec, fmt.Errorf("exam_name is required")
	}
	rec.CourseType = model.CourseType(get("course_type"))
	if rec.CourseType == "" {
		return rec, fmt.Errorf("course_type is required")
	}
	rec.AssessmentCode = get("assessment_code")
	if rec.AssessmentCode == "" {
		return rec, fmt.Errorf("assessment_code is required")
	}
	s := get("score")
	if s == "" {
		return rec, fmt.Errorf("score is required")
	}
	score, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return rec, fmt.Errorf("invalid score value: %s", s)
	}
	rec.Score = score

	rec.EnteredByEmail = get("entered_by_email")
	return rec, nil
}
