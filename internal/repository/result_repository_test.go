package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anshuhim02/student-result-api/internal/models"
)

func TestResultCreateCommitsResultAndSubjects(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO results").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO subjects").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO subjects").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result := &models.Result{UserID: "u1", StudentName: "Anshu", Grade: "A"}
	subjects := []models.Subject{
		{SubjectName: "Math", Obtained: 80, Total: 100},
		{SubjectName: "English", Obtained: 45, Total: 50},
	}

	err := repo.Create(context.Background(), result, subjects)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, 0, subjects[0].Position)
	assert.Equal(t, 1, subjects[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultCreateRollsBackOnSubjectFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO results").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO subjects").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Result{UserID: "u1", StudentName: "Anshu"}, []models.Subject{
		{SubjectName: "Math", Obtained: 80, Total: 100},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultListFiltersAndSorts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "student_name", "board", "exam", "school", "class_name", "year", "total_obtained", "total_marks", "percentage", "grade", "image_path", "created_at"}).
		AddRow("r1", "u1", "Anshu", "CBSE", "Finals", "DPS", "10", 2024, 125, 150, 83.33, "A", nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND student_name ILIKE $2 ORDER BY percentage ASC")).
		WithArgs("u1", "%ansh%").
		WillReturnRows(rows)

	results, err := repo.List(context.Background(), "u1", models.ResultFilter{Search: "ansh", Sort: models.SortAscending})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Anshu", results[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultListDefaultsToDescending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "student_name", "board", "exam", "school", "class_name", "year", "total_obtained", "total_marks", "percentage", "grade", "image_path", "created_at"})
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 ORDER BY percentage DESC")).
		WithArgs("u1").
		WillReturnRows(rows)

	results, err := repo.List(context.Background(), "u1", models.ResultFilter{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultListByCreated(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "student_name", "board", "exam", "school", "class_name", "year", "total_obtained", "total_marks", "percentage", "grade", "image_path", "created_at"})
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 ORDER BY created_at DESC")).
		WithArgs("u1").
		WillReturnRows(rows)

	_, err := repo.ListByCreated(context.Background(), "u1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultGetScopedByOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND user_id = $2 LIMIT 1")).
		WithArgs("r1", "intruder").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "intruder", "r1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestResultGetSubjectsOrdered(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	rows := sqlmock.NewRows([]string{"id", "result_id", "subject_name", "obtained", "total", "position"}).
		AddRow("s1", "r1", "Math", 80, 100, 0).
		AddRow("s2", "r1", "English", 45, 50, 1)
	mock.ExpectQuery(regexp.QuoteMeta("FROM subjects WHERE result_id = $1 ORDER BY position ASC")).
		WithArgs("r1").
		WillReturnRows(rows)

	subjects, err := repo.GetSubjects(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "Math", subjects[0].SubjectName)
	assert.Equal(t, "English", subjects[1].SubjectName)
}

func TestResultUpdateReplacesSubjects(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE results SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM subjects").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO subjects").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result := &models.Result{ID: "r1", StudentName: "Anshu"}
	err := repo.Update(context.Background(), "u1", result, []models.Subject{
		{SubjectName: "Physics", Obtained: 60, Total: 100},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultUpdateUnownedRowReturnsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE results SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), "intruder", &models.Result{ID: "r1"}, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultDeleteCascades(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM subjects").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM results").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "u1", "r1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultDeleteUnownedRowReturnsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM subjects").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM results").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "intruder", "r1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
