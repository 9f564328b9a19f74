package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/practicum-api/internal/models"
)

// RegisteredStudentRepository reads students enrolled in a practice.
type RegisteredStudentRepository struct {
	db *sqlx.DB
}

// NewRegisteredStudentRepository constructs the repository.
func NewRegisteredStudentRepository(db *sqlx.DB) *RegisteredStudentRepository {
	return &RegisteredStudentRepository{db: db}
}

// ListUnassigned returns the practice's students whose participation, if any,
// has no project yet.
func (r *RegisteredStudentRepository) ListUnassigned(ctx context.Context, practiceID string) ([]models.RegisteredStudent, error) {
	const query = `
SELECT rs.id, rs.practice_id, rs.full_name, rs.major_id, rs.year, rs.group_name, rs.created_at
FROM registered_students rs
LEFT JOIN participations pa ON pa.registered_student_id = rs.id
WHERE rs.practice_id = $1 AND pa.project_id IS NULL
ORDER BY rs.id ASC`
	var students []models.RegisteredStudent
	if err := r.db.SelectContext(ctx, &students, query, practiceID); err != nil {
		return nil, fmt.Errorf("list unassigned students: %w", err)
	}
	return students, nil
}

// ListByPractice returns every student enrolled in the practice.
func (r *RegisteredStudentRepository) ListByPractice(ctx context.Context, practiceID string) ([]models.RegisteredStudent, error) {
	const query = `SELECT id, practice_id, full_name, major_id, year, group_name, created_at FROM registered_students WHERE practice_id = $1 ORDER BY id ASC`
	var students []models.RegisteredStudent
	if err := r.db.SelectContext(ctx, &students, query, practiceID); err != nil {
		return nil, fmt.Errorf("list registered students: %w", err)
	}
	return students, nil
}

// Upsert inserts or refreshes an enrollment keyed by id.
func (r *RegisteredStudentRepository) Upsert(ctx context.Context, student *models.RegisteredStudent) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO registered_students (id, practice_id, full_name, major_id, year, group_name, created_at)
		VALUES (:id, :practice_id, :full_name, :major_id, :year, :group_name, :created_at)
		ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, major_id = EXCLUDED.major_id,
			year = EXCLUDED.year, group_name = EXCLUDED.group_name`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("upsert registered student: %w", err)
	}
	return nil
}
