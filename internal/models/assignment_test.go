package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfirmedPolicy(t *testing.T) {
	p, err := ParseConfirmedPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ConfirmedExempt, p)

	p, err = ParseConfirmedPolicy(" CONSUME ")
	require.NoError(t, err)
	assert.Equal(t, ConfirmedConsume, p)

	_, err = ParseConfirmedPolicy("sometimes")
	assert.Error(t, err)
}

func TestApplicableRequirement(t *testing.T) {
	reqs := []Requirement{
		{ID: "r1", MajorID: "cs", Year: 2, StudentsCount: 3},
		{ID: "r2", MajorID: "cs", Year: 4, StudentsCount: 1},
		{ID: "r3", MajorID: "math", Year: 1, StudentsCount: 2},
	}

	req, ok := ApplicableRequirement(reqs, "cs", 3)
	require.True(t, ok)
	assert.Equal(t, "r1", req.ID)

	req, ok = ApplicableRequirement(reqs, "cs", 5)
	require.True(t, ok)
	assert.Equal(t, "r2", req.ID)

	_, ok = ApplicableRequirement(reqs, "cs", 1)
	assert.False(t, ok)
	_, ok = ApplicableRequirement(reqs, "physics", 3)
	assert.False(t, ok)
}

func TestPracticeRunning(t *testing.T) {
	p := Practice{
		StartDate: time.Date(2016, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2016, 7, 22, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, p.Running(time.Date(2016, 7, 1, 9, 30, 0, 0, time.UTC)))
	assert.True(t, p.Running(time.Date(2016, 7, 22, 23, 0, 0, 0, time.UTC)))
	assert.False(t, p.Running(time.Date(2016, 6, 30, 23, 59, 0, 0, time.UTC)))
	assert.False(t, p.Running(time.Date(2016, 7, 23, 0, 0, 0, 0, time.UTC)))
}

func TestParticipationAssigned(t *testing.T) {
	var nilPart *Participation
	assert.False(t, nilPart.Assigned())

	empty := ""
	assert.False(t, (&Participation{ProjectID: &empty}).Assigned())

	project := "proj-1"
	assert.True(t, (&Participation{ProjectID: &project}).Assigned())
}

func TestAssignmentRunCount(t *testing.T) {
	run := AssignmentRun{Assignments: []Assignment{
		{Phase: PhaseConfirmed}, {Phase: PhasePreference}, {Phase: PhasePreference},
	}}
	assert.Equal(t, 1, run.Count(PhaseConfirmed))
	assert.Equal(t, 2, run.Count(PhasePreference))
}
