package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/practicum-api/internal/models"
)

const participationColumns = `id, registered_student_id, project_id, proposed_grade, grade, created_at, updated_at`

// ParticipationRepository persists assignment outcomes. The schema keeps at most
// one participation per registered student.
type ParticipationRepository struct {
	db *sqlx.DB
}

// NewParticipationRepository constructs the repository.
func NewParticipationRepository(db *sqlx.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// FindByStudent loads the participation of a registered student.
func (r *ParticipationRepository) FindByStudent(ctx context.Context, registeredStudentID string) (*models.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM participations WHERE registered_student_id = $1`
	var part models.Participation
	if err := r.db.GetContext(ctx, &part, query, registeredStudentID); err != nil {
		return nil, err
	}
	return &part, nil
}

// GetOrCreate returns the student's participation, inserting an empty one when
// none exists. A concurrent insert for the same student fails with the
// database's unique violation instead of producing a second row.
func (r *ParticipationRepository) GetOrCreate(ctx context.Context, registeredStudentID string) (*models.Participation, bool, error) {
	existing, err := r.FindByStudent(ctx, registeredStudentID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("find participation: %w", err)
	}

	now := time.Now().UTC()
	part := &models.Participation{
		ID:                  uuid.NewString(),
		RegisteredStudentID: registeredStudentID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	const query = `INSERT INTO participations (id, registered_student_id, project_id, created_at, updated_at)
		VALUES (:id, :registered_student_id, :project_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, part); err != nil {
		return nil, false, fmt.Errorf("create participation: %w", err)
	}
	return part, true, nil
}

// AssignProject sets the project of an unassigned participation. It returns
// sql.ErrNoRows when the row is gone or was assigned by someone else meanwhile.
func (r *ParticipationRepository) AssignProject(ctx context.Context, participationID, projectID string) error {
	const query = `UPDATE participations SET project_id = $1, updated_at = $2 WHERE id = $3 AND project_id IS NULL`
	result, err := r.db.ExecContext(ctx, query, projectID, time.Now().UTC(), participationID)
	if err != nil {
		return fmt.Errorf("assign participation project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check assigned participation rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByProject returns how many of the practice's registered students hold a
// participation on each project. Participations from other practice periods
// sharing the project are not counted.
func (r *ParticipationRepository) CountByProject(ctx context.Context, practiceID string) (map[string]int, error) {
	const query = `
SELECT pa.project_id, COUNT(*) AS total
FROM participations pa
JOIN registered_students rs ON rs.id = pa.registered_student_id
JOIN practice_projects pp ON pp.project_id = pa.project_id AND pp.practice_id = rs.practice_id
WHERE rs.practice_id = $1
GROUP BY pa.project_id`
	var rows []struct {
		ProjectID string `db:"project_id"`
		Total     int    `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, practiceID); err != nil {
		return nil, fmt.Errorf("count participations by project: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ProjectID] = row.Total
	}
	return counts, nil
}

// ListByPractice returns the roster of the practice: every enrolled student with
// their participation, assigned or not.
func (r *ParticipationRepository) ListByPractice(ctx context.Context, practiceID string) ([]models.ParticipationDetail, error) {
	const query = `
SELECT COALESCE(pa.id, '') AS id, rs.id AS registered_student_id, pa.project_id, pa.proposed_grade, pa.grade,
       COALESCE(pa.created_at, rs.created_at) AS created_at, COALESCE(pa.updated_at, rs.created_at) AS updated_at,
       rs.full_name AS student_name, rs.group_name, p.name AS project_name, p.tutor_name
FROM registered_students rs
LEFT JOIN participations pa ON pa.registered_student_id = rs.id
LEFT JOIN projects p ON p.id = pa.project_id
WHERE rs.practice_id = $1
ORDER BY rs.group_name ASC, rs.full_name ASC`
	var roster []models.ParticipationDetail
	if err := r.db.SelectContext(ctx, &roster, query, practiceID); err != nil {
		return nil, fmt.Errorf("list practice participations: %w", err)
	}
	return roster, nil
}

// Record stores a participation with its project and grades, replacing any
// participation the student already has.
func (r *ParticipationRepository) Record(ctx context.Context, part *models.Participation) error {
	now := time.Now().UTC()
	if part.ID == "" {
		part.ID = uuid.NewString()
	}
	if part.CreatedAt.IsZero() {
		part.CreatedAt = now
	}
	part.UpdatedAt = now
	const query = `INSERT INTO participations (id, registered_student_id, project_id, proposed_grade, grade, created_at, updated_at)
		VALUES (:id, :registered_student_id, :project_id, :proposed_grade, :grade, :created_at, :updated_at)
		ON CONFLICT (registered_student_id) DO UPDATE SET project_id = EXCLUDED.project_id,
			proposed_grade = EXCLUDED.proposed_grade, grade = EXCLUDED.grade, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, part); err != nil {
		return fmt.Errorf("record participation: %w", err)
	}
	return nil
}
