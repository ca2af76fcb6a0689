package model

// CourseType identifies one of the three course tracks a class carries.
type CourseType string

const (
	CourseTypeLT   CourseType = "LT"
	CourseTypeIT   CourseType = "IT"
	CourseTypeKCFS CourseType = "KCFS"
)

func (t CourseType) Valid() bool {
	switch t {
	case CourseTypeLT, CourseTypeIT, CourseTypeKCFS:
		return true
	}
	return false
}

// UserRole is the set of roles accepted by the Users sheet.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleHead    UserRole = "head"
	RoleTeacher UserRole = "teacher"
	RoleOffice  UserRole = "office"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleHead, RoleTeacher, RoleOffice:
		return true
	}
	return false
}

// UserImport is one pre-validated row from the Users sheet. Natural key: email.
type UserImport struct {
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Role        UserRole   `json:"role"`
	TeacherType CourseType `json:"teacher_type,omitempty"`
	Grade       int        `json:"grade,omitempty"`
	Track       string     `json:"track,omitempty"`
}

// ClassImport is one row from the Classes sheet. Natural key:
// (name, grade, track, academic_year). TeacherEmail is only consulted in
// trigger-assisted mode, where the class's auto-created course row gets the
// teacher patched onto it after the class is persisted.
type ClassImport struct {
	Name         string `json:"name"`
	Grade        int    `json:"grade"`
	Level        string `json:"level,omitempty"`
	Track        string `json:"track"`
	AcademicYear string `json:"academic_year"`
	TeacherEmail string `json:"teacher_email,omitempty"`
}

// CourseImport is one row from the Courses sheet. Natural key:
// (class name, course_type).
type CourseImport struct {
	ClassName    string     `json:"class_name"`
	CourseType   CourseType `json:"course_type"`
	TeacherEmail string     `json:"teacher_email"`
	AcademicYear string     `json:"academic_year"`
}

// StudentImport is one row from the Students sheet. Natural key: student_id.
// ClassName may be empty; students can be imported unassigned.
type StudentImport struct {
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
	Grade     int    `json:"grade"`
	Level     string `json:"level,omitempty"`
	Track     string `json:"track"`
	ClassName string `json:"class_name,omitempty"`
}

// ScoreImport is one row from the Scores sheet. Natural key:
// (student_id, exam name, assessment_code). CourseType is used only to
// resolve the course reference and is never persisted on the score row.
type ScoreImport struct {
	StudentID      string     `json:"student_id"`
	ExamName       string     `json:"exam_name"`
	CourseType     CourseType `json:"course_type"`
	AssessmentCode string     `json:"assessment_code"`
	Score          float64    `json:"score"`
	EnteredByEmail string     `json:"entered_by_email,omitempty"`
}

// ImportInput bundles the five validated record lists for one run. Any list
// may be empty; the corresponding stage is skipped.
type ImportInput struct {
	Users    []UserImport    `json:"users,omitempty"`
	Classes  []ClassImport   `json:"classes,omitempty"`
	Courses  []CourseImport  `json:"courses,omitempty"`
	Students []StudentImport `json:"students,omitempty"`
	Scores   []ScoreImport   `json:"scores,omitempty"`
}

func (in *ImportInput) Empty() bool {
	return len(in.Users) == 0 && len(in.Classes) == 0 && len(in.Courses) == 0 &&
		len(in.Students) == 0 && len(in.Scores) == 0
}
