package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db), mock
}

func TestSQLStore_SelectBuildsFilteredQuery(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT * FROM courses WHERE class_id = ? AND course_type = ? LIMIT 1").
		WithArgs("class-1", "LT").
		WillReturnRows(sqlmock.NewRows([]string{"id", "class_id", "course_type", "teacher_id"}).
			AddRow([]byte("course-1"), []byte("class-1"), []byte("LT"), nil))

	rows, err := st.Select(context.Background(), "courses", Filter{
		Eq:    map[string]interface{}{"class_id": "class-1", "course_type": "LT"},
		Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "course-1", rows[0].ID())
	require.Equal(t, "LT", rows[0].String("course_type"))
	require.Equal(t, "", rows[0].String("teacher_id"), "NULL reads as empty string")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SelectDecimalColumnsReadAsFloat(t *testing.T) {
	st, mock := newMockStore(t)

	// MySQL's text protocol returns DECIMAL columns as bytes.
	mock.ExpectQuery("SELECT * FROM scores WHERE exam_id = ?").
		WithArgs("exam-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam_id", "score"}).
			AddRow([]byte("score-1"), []byte("exam-1"), []byte("85.50")))

	rows, err := st.Select(context.Background(), "scores", Filter{
		Eq: map[string]interface{}{"exam_id": "exam-1"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 85.5, rows[0].Float("score"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SelectWithoutFilterSelectsAll(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT * FROM users LIMIT 1000").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow([]byte("u1"), []byte("a@school.edu")).
			AddRow([]byte("u2"), []byte("b@school.edu")))

	rows, err := st.Select(context.Background(), "users", Filter{Limit: 1000})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "a@school.edu", rows[0].String("email"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_InsertAssignsIDs(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO exams (class_id, created_by, id, name) VALUES (?, ?, ?, ?)").
		WithArgs("class-1", "user-1", sqlmock.AnyArg(), "Midterm").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := st.Insert(context.Background(), "exams", []Row{
		{"name": "Midterm", "class_id": "class-1", "created_by": "user-1"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotEmpty(t, rows[0].ID(), "insert assigns a client-side id")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_UpsertCountsUpdatesFromAffectedRows(t *testing.T) {
	st, mock := newMockStore(t)

	// 3 input rows, 4 affected: MySQL reports 2 per updated row, so one
	// update and two creates.
	mock.ExpectExec("INSERT INTO users (email, full_name, id) VALUES (?, ?, ?), (?, ?, ?), (?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE full_name = VALUES(full_name)").
		WillReturnResult(sqlmock.NewResult(0, 4))

	res, err := st.Upsert(context.Background(), "users", []Row{
		{"email": "a@school.edu", "full_name": "A"},
		{"email": "b@school.edu", "full_name": "B"},
		{"email": "c@school.edu", "full_name": "C"},
	}, []string{"email"})
	require.NoError(t, err)
	require.Equal(t, 2, res.Created)
	require.Equal(t, 1, res.Updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_UpsertWithOnlyKeyColumnsStillValid(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO enrollments (id, student_id) VALUES (?, ?) " +
		"ON DUPLICATE KEY UPDATE student_id = VALUES(student_id)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := st.Upsert(context.Background(), "enrollments", []Row{
		{"student_id": "stu-1"},
	}, []string{"student_id"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)
	require.Equal(t, 0, res.Updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_EmptyBatchesAreNoOps(t *testing.T) {
	st, mock := newMockStore(t)

	rows, err := st.Insert(context.Background(), "users", nil)
	require.NoError(t, err)
	require.Empty(t, rows)

	res, err := st.Upsert(context.Background(), "users", nil, []string{"email"})
	require.NoError(t, err)
	require.Zero(t, res.Created)
	require.Zero(t, res.Updated)

	require.NoError(t, mock.ExpectationsWereMet())
}
