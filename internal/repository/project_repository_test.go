package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/practicum-api/internal/models"
)

func TestProjectRepositoryListByPractice(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "description", "tutor_name", "created_at"}).
		AddRow("proj-a", "Compilers", "Build a compiler", "Somoza", time.Now()).
		AddRow("proj-b", "Databases", "Tune queries", "Vera", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("JOIN practice_projects pp ON pp.project_id = p.id WHERE pp.practice_id = $1")).
		WithArgs("practice-1").
		WillReturnRows(rows)

	projects, err := repo.ListByPractice(context.Background(), "practice-1")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Vera", projects[1].TutorName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepositoryListRequirements(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	rows := sqlmock.NewRows([]string{"id", "project_id", "major_id", "year", "students_count"}).
		AddRow("req-1", "proj-a", "cs", 2, 2).
		AddRow("req-2", "proj-a", "math", 3, 1)
	mock.ExpectQuery(regexp.QuoteMeta("FROM requirements rq JOIN practice_projects pp")).
		WithArgs("practice-1").
		WillReturnRows(rows)

	reqs, err := repo.ListRequirementsByPractice(context.Background(), "practice-1")
	require.NoError(t, err)
	assert.Equal(t, []models.Requirement{
		{ID: "req-1", ProjectID: "proj-a", MajorID: "cs", Year: 2, StudentsCount: 2},
		{ID: "req-2", ProjectID: "proj-a", MajorID: "math", Year: 3, StudentsCount: 1},
	}, reqs)

	mock.ExpectQuery(regexp.QuoteMeta("FROM requirements rq")).
		WithArgs("practice-2").
		WillReturnError(errors.New("connection reset"))
	_, err = repo.ListRequirementsByPractice(context.Background(), "practice-2")
	assert.ErrorContains(t, err, "list practice requirements")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepositoryWrites(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	mock.ExpectExec("INSERT INTO projects").
		WithArgs("proj-a", "Compilers", "", "Somoza", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Upsert(context.Background(), &models.Project{ID: "proj-a", Name: "Compilers", TutorName: "Somoza"}))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO practice_projects (practice_id, project_id) VALUES ($1, $2) ON CONFLICT DO NOTHING")).
		WithArgs("practice-1", "proj-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.LinkPractice(context.Background(), "practice-1", "proj-a"))

	mock.ExpectExec("INSERT INTO requirements .* ON CONFLICT \\(project_id, major_id, year\\)").
		WithArgs(sqlmock.AnyArg(), "proj-a", "cs", 3, 2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	req := &models.Requirement{ProjectID: "proj-a", MajorID: "cs", Year: 3, StudentsCount: 2}
	require.NoError(t, repo.UpsertRequirement(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
