package models

import (
	"fmt"
	"strings"
	"time"
)

// ConfirmedPolicy decides whether tutor-confirmed assignments use up capacity
// before the preference phase.
type ConfirmedPolicy string

const (
	ConfirmedExempt  ConfirmedPolicy = "exempt"
	ConfirmedConsume ConfirmedPolicy = "consume"
)

// ParseConfirmedPolicy maps configuration text onto a policy. Empty means exempt.
func ParseConfirmedPolicy(raw string) (ConfirmedPolicy, error) {
	switch ConfirmedPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ConfirmedExempt:
		return ConfirmedExempt, nil
	case ConfirmedConsume:
		return ConfirmedConsume, nil
	default:
		return "", fmt.Errorf("unknown confirmed policy %q", raw)
	}
}

// AssignmentPhase names the step of a run that produced an assignment.
type AssignmentPhase string

const (
	PhaseConfirmed  AssignmentPhase = "confirmed"
	PhasePreference AssignmentPhase = "preference"
)

// Assignment records one student placed on a project during a run.
type Assignment struct {
	RegisteredStudentID string          `json:"registered_student_id"`
	ProjectID           string          `json:"project_id"`
	Phase               AssignmentPhase `json:"phase"`
	Priority            int             `json:"priority"`
	OffProfile          bool            `json:"off_profile,omitempty"`
}

// AssignmentRun summarises one execution of the assignment procedure.
type AssignmentRun struct {
	ID               string          `json:"id"`
	PracticeID       string          `json:"practice_id"`
	Policy           ConfirmedPolicy `json:"policy"`
	Seed             int64           `json:"seed"`
	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       time.Time       `json:"finished_at"`
	InitialCapacity  map[string]int  `json:"initial_capacity"`
	Assignments      []Assignment    `json:"assignments"`
	SkippedConfirmed int             `json:"skipped_confirmed"`
	Unassigned       []string        `json:"unassigned"`
	OpenSlots        int             `json:"open_slots"`
}

// Count returns how many assignments the given phase produced.
func (r *AssignmentRun) Count(phase AssignmentPhase) int {
	n := 0
	for _, a := range r.Assignments {
		if a.Phase == phase {
			n++
		}
	}
	return n
}
