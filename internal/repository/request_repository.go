package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/practicum-api/internal/models"
)

// RequestRepository persists student project requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// ListByPractice returns requests of the practice's students ordered by
// ascending priority. Ties fall back to student then request id.
func (r *RequestRepository) ListByPractice(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	query := `
SELECT rq.id, rq.registered_student_id, rq.project_id, rq.priority, rq.checked
FROM requests rq
JOIN registered_students rs ON rs.id = rq.registered_student_id
WHERE rs.practice_id = $1`
	if filter.CheckedOnly {
		query += ` AND rq.checked = TRUE`
	}
	query += `
ORDER BY rq.priority ASC, rq.registered_student_id ASC, rq.id ASC`

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, filter.PracticeID); err != nil {
		return nil, fmt.Errorf("list practice requests: %w", err)
	}
	return requests, nil
}

// Upsert stores a request; the (student, project) pair identifies it.
func (r *RequestRepository) Upsert(ctx context.Context, req *models.Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	const query = `INSERT INTO requests (id, registered_student_id, project_id, priority, checked)
		VALUES (:id, :registered_student_id, :project_id, :priority, :checked)
		ON CONFLICT (registered_student_id, project_id) DO UPDATE SET priority = EXCLUDED.priority, checked = EXCLUDED.checked`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("upsert request: %w", err)
	}
	return nil
}
