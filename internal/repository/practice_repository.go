package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/practicum-api/internal/models"
)

const practiceColumns = `id, name, major_id, year, course_start, course_end, start_date, end_date, created_at`

// PracticeRepository handles persistence for practices and majors.
type PracticeRepository struct {
	db *sqlx.DB
}

// NewPracticeRepository instantiates a practice repository.
func NewPracticeRepository(db *sqlx.DB) *PracticeRepository {
	return &PracticeRepository{db: db}
}

// FindByID loads a practice by identifier.
func (r *PracticeRepository) FindByID(ctx context.Context, id string) (*models.Practice, error) {
	query := `SELECT ` + practiceColumns + ` FROM practices WHERE id = $1`
	var practice models.Practice
	if err := r.db.GetContext(ctx, &practice, query, id); err != nil {
		return nil, err
	}
	return &practice, nil
}

// ListCurrent returns practices running on the given day, earliest first.
func (r *PracticeRepository) ListCurrent(ctx context.Context, at time.Time) ([]models.Practice, error) {
	query := `SELECT ` + practiceColumns + ` FROM practices WHERE start_date <= $1 AND end_date >= $1 ORDER BY start_date ASC, id ASC`
	var practices []models.Practice
	if err := r.db.SelectContext(ctx, &practices, query, at.UTC().Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("list current practices: %w", err)
	}
	return practices, nil
}

// Upsert inserts or refreshes a practice keyed by id.
func (r *PracticeRepository) Upsert(ctx context.Context, practice *models.Practice) error {
	if practice.ID == "" {
		practice.ID = uuid.NewString()
	}
	if practice.CreatedAt.IsZero() {
		practice.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO practices (id, name, major_id, year, course_start, course_end, start_date, end_date, created_at)
		VALUES (:id, :name, :major_id, :year, :course_start, :course_end, :start_date, :end_date, :created_at)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, major_id = EXCLUDED.major_id, year = EXCLUDED.year,
			course_start = EXCLUDED.course_start, course_end = EXCLUDED.course_end,
			start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date`
	if _, err := r.db.NamedExecContext(ctx, query, practice); err != nil {
		return fmt.Errorf("upsert practice: %w", err)
	}
	return nil
}

// UpsertMajor inserts or refreshes a major keyed by id.
func (r *PracticeRepository) UpsertMajor(ctx context.Context, major *models.Major) error {
	if major.ID == "" {
		major.ID = uuid.NewString()
	}
	if major.CreatedAt.IsZero() {
		major.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO majors (id, name, years, created_at) VALUES (:id, :name, :years, :created_at)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, years = EXCLUDED.years`
	if _, err := r.db.NamedExecContext(ctx, query, major); err != nil {
		return fmt.Errorf("upsert major: %w", err)
	}
	return nil
}
