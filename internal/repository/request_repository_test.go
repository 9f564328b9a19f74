package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/practicum-api/internal/models"
)

var requestRowColumns = []string{"id", "registered_student_id", "project_id", "priority", "checked"}

func TestRequestRepositoryListCheckedOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	rows := sqlmock.NewRows(requestRowColumns).
		AddRow("req-1", "rs-1", "proj-a", 1, true)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE rs.practice_id = $1 AND rq.checked = TRUE ORDER BY rq.priority ASC")).
		WithArgs("practice-1").
		WillReturnRows(rows)

	requests, err := repo.ListByPractice(context.Background(), models.RequestFilter{PracticeID: "practice-1", CheckedOnly: true})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.True(t, requests[0].Checked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	rows := sqlmock.NewRows(requestRowColumns).
		AddRow("req-1", "rs-1", "proj-a", 1, false).
		AddRow("req-2", "rs-1", "proj-b", 2, false)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE rs.practice_id = $1 ORDER BY rq.priority ASC, rq.registered_student_id ASC, rq.id ASC")).
		WithArgs("practice-1").
		WillReturnRows(rows)

	requests, err := repo.ListByPractice(context.Background(), models.RequestFilter{PracticeID: "practice-1"})
	require.NoError(t, err)
	assert.Len(t, requests, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("INSERT INTO requests .* ON CONFLICT \\(registered_student_id, project_id\\)").
		WithArgs(sqlmock.AnyArg(), "rs-1", "proj-a", 1, true).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Upsert(context.Background(), &models.Request{RegisteredStudentID: "rs-1", ProjectID: "proj-a", Priority: 1, Checked: true}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
