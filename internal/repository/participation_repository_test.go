package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/practicum-api/internal/models"
	"github.com/noah-isme/practicum-api/pkg/database"
)

var participationRowColumns = []string{"id", "registered_student_id", "project_id", "proposed_grade", "grade", "created_at", "updated_at"}

func TestParticipationRepositoryGetOrCreateExisting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	rows := sqlmock.NewRows(participationRowColumns).
		AddRow("part-1", "rs-1", "proj-a", nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM participations WHERE registered_student_id = $1")).
		WithArgs("rs-1").
		WillReturnRows(rows)

	part, created, err := repo.GetOrCreate(context.Background(), "rs-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, part.Assigned())
	assert.Equal(t, "proj-a", *part.ProjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryGetOrCreateInserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM participations WHERE registered_student_id = $1")).
		WithArgs("rs-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO participations").
		WithArgs(sqlmock.AnyArg(), "rs-1", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	part, created, err := repo.GetOrCreate(context.Background(), "rs-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, part.Assigned())
	assert.NotEmpty(t, part.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryGetOrCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM participations WHERE registered_student_id = $1")).
		WithArgs("rs-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO participations").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "participations_registered_student_id_key"})

	_, _, err := repo.GetOrCreate(context.Background(), "rs-1")
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryAssignProject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE participations SET project_id = $1, updated_at = $2 WHERE id = $3 AND project_id IS NULL")).
		WithArgs("proj-a", sqlmock.AnyArg(), "part-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AssignProject(context.Background(), "part-1", "proj-a"))

	mock.ExpectExec("UPDATE participations SET project_id").
		WithArgs("proj-b", sqlmock.AnyArg(), "part-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.AssignProject(context.Background(), "part-2", "proj-b")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryCountByProject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	rows := sqlmock.NewRows([]string{"project_id", "total"}).
		AddRow("proj-a", 2).
		AddRow("proj-b", 1)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN registered_students rs ON rs.id = pa.registered_student_id")).
		WithArgs("practice-1").
		WillReturnRows(rows)

	counts, err := repo.CountByProject(context.Background(), "practice-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"proj-a": 2, "proj-b": 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryCountByProjectScopesToPractice(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	// graded participations of an earlier period on a shared project do not match
	mock.ExpectQuery(regexp.QuoteMeta("WHERE rs.practice_id = $1")).
		WithArgs("practice-2016").
		WillReturnRows(sqlmock.NewRows([]string{"project_id", "total"}))

	counts, err := repo.CountByProject(context.Background(), "practice-2016")
	require.NoError(t, err)
	assert.Empty(t, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryListByPractice(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	cols := append(append([]string{}, participationRowColumns...), "student_name", "group_name", "project_name", "tutor_name")
	now := time.Now()
	rows := sqlmock.NewRows(cols).
		AddRow("part-1", "rs-1", "proj-a", nil, 5, now, now, "Eddy Almuina", "C311", "Compilers", "Somoza").
		AddRow("", "rs-2", nil, nil, nil, now, now, "Jose Martinez", "C311", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM registered_students rs LEFT JOIN participations pa")).
		WithArgs("practice-1").
		WillReturnRows(rows)

	roster, err := repo.ListByPractice(context.Background(), "practice-1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Compilers", *roster[0].ProjectName)
	assert.Equal(t, 5, *roster[0].Grade)
	assert.Nil(t, roster[1].ProjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepositoryRecord(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	project := "proj-a"
	grade := 5
	part := &models.Participation{RegisteredStudentID: "rs-1", ProjectID: &project, ProposedGrade: &grade, Grade: &grade}
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (registered_student_id) DO UPDATE")).
		WithArgs(sqlmock.AnyArg(), "rs-1", "proj-a", 5, 5, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Record(context.Background(), part))
	assert.NotEmpty(t, part.ID)
	assert.False(t, part.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
