// Package importer implements the five-stage bulk import pipeline:
// Users -> Classes -> Courses -> Students -> Scores. Stages run strictly in
// that order so every stage can resolve references to rows written by the
// stages before it.
package importer

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/geonook/learning-management-system-esid-sub001/internal/logger"
	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
)

type teacherRef struct {
	ID          string
	TeacherType model.CourseType
}

type courseRef struct {
	ID      string
	ClassID string
}

// Resolver translates natural keys from import rows into surrogate ids. Maps
// are rebuilt wholesale on every Refresh rather than patched incrementally,
// so a stage never sees a stale view of the previous stage's writes.
type Resolver struct {
	store       store.RowStore
	lookupLimit int

	users    map[string]teacherRef // email -> user
	classes  map[string]string     // class name -> class id
	students map[string]string     // student number -> student id
	exams    map[string]string     // exam name -> exam id
	courses  map[string]courseRef  // student id + course type -> course

	degraded []string
	log      zerolog.Logger
}

func NewResolver(st store.RowStore, lookupLimit int) *Resolver {
	return &Resolver{
		store:       st,
		lookupLimit: lookupLimit,
		log:         logger.Get().With().Str("component", "resolver").Logger(),
	}
}

// Refresh rebuilds all five lookup maps. A failed lookup query degrades that
// entity type to an empty map instead of failing the run: every reference of
// that type then resolves to "not found" and surfaces as a per-record
// warning. Degraded types are reported via Degraded so the orchestrator can
// tell operators "the lookup broke" apart from "nothing matched".
func (r *Resolver) Refresh(ctx context.Context) {
	r.degraded = r.degraded[:0]

	r.users = make(map[string]teacherRef)
	for _, row := range r.fetch(ctx, "users") {
		if email := row.String("email"); email != "" {
			r.users[email] = teacherRef{
				ID:          row.ID(),
				TeacherType: model.CourseType(row.String("teacher_type")),
			}
		}
	}

	r.classes = make(map[string]string)
	for _, row := range r.fetch(ctx, "classes") {
		if name := row.String("name"); name != "" {
			r.classes[name] = row.ID()
		}
	}

	studentRows := r.fetch(ctx, "students")
	r.students = make(map[string]string)
	classByStudent := make(map[string]string, len(studentRows))
	for _, row := range studentRows {
		number := row.String("student_id")
		if number == "" {
			continue
		}
		r.students[number] = row.ID()
		if classID := row.String("class_id"); classID != "" {
			classByStudent[row.ID()] = classID
		}
	}

	r.exams = make(map[string]string)
	for _, row := range r.fetch(ctx, "exams") {
		if name := row.String("name"); name != "" {
			r.exams[name] = row.ID()
		}
	}

	// A student's course for a given course type is the course attached to
	// the student's class, so the map is the join of the two fetches above.
	courseByClass := make(map[string]courseRef)
	for _, row := range r.fetch(ctx, "courses") {
		classID := row.String("class_id")
		courseType := row.String("course_type")
		if classID == "" || courseType == "" {
			continue
		}
		courseByClass[classID+"|"+courseType] = courseRef{ID: row.ID(), ClassID: classID}
	}
	r.courses = make(map[string]courseRef)
	for studentID, classID := range classByStudent {
		for _, courseType := range []model.CourseType{model.CourseTypeLT, model.CourseTypeIT, model.CourseTypeKCFS} {
			if ref, ok := courseByClass[classID+"|"+string(courseType)]; ok {
				r.courses[studentID+"|"+string(courseType)] = ref
			}
		}
	}
}

func (r *Resolver) fetch(ctx context.Context, table string) []store.Row {
	rows, err := r.store.Select(ctx, table, store.Filter{Limit: r.lookupLimit})
	if err != nil {
		r.log.Warn().Err(err).Str("table", table).Msg("Lookup query failed, degrading to empty map")
		r.degraded = append(r.degraded, table)
		return nil
	}
	return rows
}

// Degraded lists the entity tables whose last lookup query failed outright.
func (r *Resolver) Degraded() []string {
	return r.degraded
}

// GetUserID returns the surrogate id for a user email, or "".
func (r *Resolver) GetUserID(email string) string {
	return r.users[email].ID
}

// GetTeacherType returns the declared course type of a teacher, or "".
func (r *Resolver) GetTeacherType(email string) model.CourseType {
	return r.users[email].TeacherType
}

// GetClassID returns the surrogate id for a class name, or "".
func (r *Resolver) GetClassID(name string) string {
	return r.classes[name]
}

// GetStudentID returns the surrogate id for a school-issued student number, or "".
func (r *Resolver) GetStudentID(number string) string {
	return r.students[number]
}

// GetExamID returns the surrogate id for an exam name, or "".
func (r *Resolver) GetExamID(name string) string {
	return r.exams[name]
}

// GetCourseID returns the id of the course enrolling a student for a course
// type, or "".
func (r *Resolver) GetCourseID(studentID string, courseType model.CourseType) string {
	return r.courses[studentID+"|"+string(courseType)].ID
}

func (r *Resolver) getCourse(studentID string, courseType model.CourseType) (courseRef, bool) {
	ref, ok := r.courses[studentID+"|"+string(courseType)]
	return ref, ok
}

// AddExamMapping registers an exam created mid-stage so later records in the
// same run reuse its id instead of inserting a duplicate.
func (r *Resolver) AddExamMapping(name, id string) {
	if r.exams == nil {
		r.exams = make(map[string]string)
	}
	r.exams[name] = id
}
