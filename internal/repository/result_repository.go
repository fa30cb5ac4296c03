package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Anshuhim02/student-result-api/internal/models"
)

// ResultRepository handles result and subject persistence. Every operation is
// scoped by the owning user id; a row that exists but belongs to another user
// surfaces as sql.ErrNoRows, identical to an absent row.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new result repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = `id, user_id, student_name, board, exam, school, class_name, year, total_obtained, total_marks, percentage, grade, image_path, created_at`

// Create inserts a result and its subject rows in one transaction.
func (r *ResultRepository) Create(ctx context.Context, result *models.Result, subjects []models.Subject) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create result: %w", err)
	}

	const insertResult = `INSERT INTO results (id, user_id, student_name, board, exam, school, class_name, year, total_obtained, total_marks, percentage, grade, image_path, created_at)
        VALUES (:id, :user_id, :student_name, :board, :exam, :school, :class_name, :year, :total_obtained, :total_marks, :percentage, :grade, :image_path, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertResult, result); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert result: %w", err)
	}

	if err := insertSubjects(ctx, tx, result.ID, subjects); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create result: %w", err)
	}
	return nil
}

// List returns the user's results filtered by an optional case-insensitive
// student name substring, ordered by percentage.
func (r *ResultRepository) List(ctx context.Context, userID string, filter models.ResultFilter) ([]models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE user_id = $1`, resultColumns)
	args := []interface{}{userID}

	if filter.Search != "" {
		query += fmt.Sprintf(" AND student_name ILIKE $%d", len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}

	if filter.Sort == models.SortAscending {
		query += " ORDER BY percentage ASC"
	} else {
		query += " ORDER BY percentage DESC"
	}

	results := make([]models.Result, 0)
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// ListByCreated returns all results for the user, newest first. Used by the
// CSV export.
func (r *ResultRepository) ListByCreated(ctx context.Context, userID string) ([]models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE user_id = $1 ORDER BY created_at DESC`, resultColumns)
	results := make([]models.Result, 0)
	if err := r.db.SelectContext(ctx, &results, query, userID); err != nil {
		return nil, fmt.Errorf("list results by created: %w", err)
	}
	return results, nil
}

// Get returns a single owned result.
func (r *ResultRepository) Get(ctx context.Context, userID, id string) (*models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE id = $1 AND user_id = $2 LIMIT 1`, resultColumns)
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	return &result, nil
}

// GetSubjects returns the subject rows for a result in submission order.
func (r *ResultRepository) GetSubjects(ctx context.Context, resultID string) ([]models.Subject, error) {
	const query = `SELECT id, result_id, subject_name, obtained, total, position FROM subjects WHERE result_id = $1 ORDER BY position ASC`
	subjects := make([]models.Subject, 0)
	if err := r.db.SelectContext(ctx, &subjects, query, resultID); err != nil {
		return nil, fmt.Errorf("get subjects: %w", err)
	}
	return subjects, nil
}

// Update overwrites the result's scalar fields and replaces its subject rows
// wholesale, all in one transaction so a mid-sequence failure cannot leave
// the result with stale or missing subjects.
func (r *ResultRepository) Update(ctx context.Context, userID string, result *models.Result, subjects []models.Subject) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update result: %w", err)
	}

	const updateResult = `UPDATE results SET student_name = $3, board = $4, exam = $5, school = $6, class_name = $7, year = $8,
        total_obtained = $9, total_marks = $10, percentage = $11, grade = $12, image_path = $13
        WHERE id = $1 AND user_id = $2`
	res, err := tx.ExecContext(ctx, updateResult,
		result.ID, userID,
		result.StudentName, result.Board, result.Exam, result.School, result.ClassName, result.Year,
		result.TotalObtained, result.TotalMarks, result.Percentage, result.Grade, result.ImagePath,
	)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update result affected rows: %w", err)
	}
	if affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE result_id = $1`, result.ID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete old subjects: %w", err)
	}

	if err := insertSubjects(ctx, tx, result.ID, subjects); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update result: %w", err)
	}
	return nil
}

// Delete removes an owned result and its subject rows in one transaction.
func (r *ResultRepository) Delete(ctx context.Context, userID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete result: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE result_id = $1`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete subjects: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM results WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete result affected rows: %w", err)
	}
	if affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete result: %w", err)
	}
	return nil
}

func insertSubjects(ctx context.Context, tx *sqlx.Tx, resultID string, subjects []models.Subject) error {
	const query = `INSERT INTO subjects (id, result_id, subject_name, obtained, total, position)
        VALUES (:id, :result_id, :subject_name, :obtained, :total, :position)`
	for i := range subjects {
		if subjects[i].ID == "" {
			subjects[i].ID = uuid.NewString()
		}
		subjects[i].ResultID = resultID
		subjects[i].Position = i
		if _, err := tx.NamedExecContext(ctx, query, subjects[i]); err != nil {
			return fmt.Errorf("insert subject: %w", err)
		}
	}
	return nil
}
