package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/practicum-api/internal/models"
)

// ProjectRepository persists projects, their practice links and requirements.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// ListByPractice returns projects offered under the practice.
func (r *ProjectRepository) ListByPractice(ctx context.Context, practiceID string) ([]models.Project, error) {
	const query = `
SELECT p.id, p.name, p.description, p.tutor_name, p.created_at
FROM projects p
JOIN practice_projects pp ON pp.project_id = p.id
WHERE pp.practice_id = $1
ORDER BY p.name ASC, p.id ASC`
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, practiceID); err != nil {
		return nil, fmt.Errorf("list practice projects: %w", err)
	}
	return projects, nil
}

// ListRequirementsByPractice returns every requirement of the practice's projects.
func (r *ProjectRepository) ListRequirementsByPractice(ctx context.Context, practiceID string) ([]models.Requirement, error) {
	const query = `
SELECT rq.id, rq.project_id, rq.major_id, rq.year, rq.students_count
FROM requirements rq
JOIN practice_projects pp ON pp.project_id = rq.project_id
WHERE pp.practice_id = $1
ORDER BY rq.project_id ASC, rq.year ASC`
	var reqs []models.Requirement
	if err := r.db.SelectContext(ctx, &reqs, query, practiceID); err != nil {
		return nil, fmt.Errorf("list practice requirements: %w", err)
	}
	return reqs, nil
}

// Upsert inserts or refreshes a project keyed by id.
func (r *ProjectRepository) Upsert(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO projects (id, name, description, tutor_name, created_at)
		VALUES (:id, :name, :description, :tutor_name, :created_at)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, tutor_name = EXCLUDED.tutor_name`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}
	return nil
}

// LinkPractice offers the project under the practice. Linking twice is a no-op.
func (r *ProjectRepository) LinkPractice(ctx context.Context, practiceID, projectID string) error {
	const query = `INSERT INTO practice_projects (practice_id, project_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, practiceID, projectID); err != nil {
		return fmt.Errorf("link project to practice: %w", err)
	}
	return nil
}

// UpsertRequirement stores a requirement; project, major and year identify it.
func (r *ProjectRepository) UpsertRequirement(ctx context.Context, req *models.Requirement) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	const query = `INSERT INTO requirements (id, project_id, major_id, year, students_count)
		VALUES (:id, :project_id, :major_id, :year, :students_count)
		ON CONFLICT (project_id, major_id, year) DO UPDATE SET students_count = EXCLUDED.students_count`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("upsert requirement: %w", err)
	}
	return nil
}
