package service

import (
	"context"

	"github.com/noah-isme/practicum-api/internal/models"
	appErrors "github.com/noah-isme/practicum-api/pkg/errors"
)

type capacityProjectReader interface {
	ListByPractice(ctx context.Context, practiceID string) ([]models.Project, error)
	ListRequirementsByPractice(ctx context.Context, practiceID string) ([]models.Requirement, error)
}

type participationCounter interface {
	CountByProject(ctx context.Context, practiceID string) (map[string]int, error)
}

// Capacity holds the remaining open slots per project for one run. It is never
// shared between runs.
type Capacity struct {
	remaining    map[string]int
	requirements map[string][]models.Requirement
}

func newCapacity(projects []models.Project, reqs []models.Requirement, taken map[string]int) *Capacity {
	c := &Capacity{
		remaining:    make(map[string]int, len(projects)),
		requirements: make(map[string][]models.Requirement, len(projects)),
	}
	for _, project := range projects {
		c.remaining[project.ID] = 0
	}
	for _, req := range reqs {
		if _, ok := c.remaining[req.ProjectID]; !ok {
			continue
		}
		c.remaining[req.ProjectID] += req.StudentsCount
		c.requirements[req.ProjectID] = append(c.requirements[req.ProjectID], req)
	}
	for projectID := range c.remaining {
		left := c.remaining[projectID] - taken[projectID]
		if left < 0 {
			left = 0
		}
		c.remaining[projectID] = left
	}
	return c
}

// Remaining returns the open slots of a project; unknown projects have none.
func (c *Capacity) Remaining(projectID string) int {
	return c.remaining[projectID]
}

// Available reports whether the project can take one more student.
func (c *Capacity) Available(projectID string) bool {
	return c.Remaining(projectID) > 0
}

// Take consumes one slot of the project, never going below zero.
func (c *Capacity) Take(projectID string) {
	if c.remaining[projectID] > 0 {
		c.remaining[projectID]--
	}
}

// Fits reports whether any requirement of the project applies to a student of
// the given major and year.
func (c *Capacity) Fits(projectID, majorID string, year int) bool {
	_, ok := models.ApplicableRequirement(c.requirements[projectID], majorID, year)
	return ok
}

// Snapshot copies the remaining slots keyed by project id.
func (c *Capacity) Snapshot() map[string]int {
	out := make(map[string]int, len(c.remaining))
	for id, n := range c.remaining {
		out[id] = n
	}
	return out
}

// Total sums the remaining slots over all projects.
func (c *Capacity) Total() int {
	total := 0
	for _, n := range c.remaining {
		total += n
	}
	return total
}

// CapacityTracker derives remaining project capacity from persisted state.
type CapacityTracker struct {
	projects       capacityProjectReader
	participations participationCounter
}

// NewCapacityTracker wires the tracker to its readers.
func NewCapacityTracker(projects capacityProjectReader, participations participationCounter) *CapacityTracker {
	return &CapacityTracker{projects: projects, participations: participations}
}

// Build sums every requirement of each practice project and subtracts the
// participations already pointing at it.
func (t *CapacityTracker) Build(ctx context.Context, practiceID string) (*Capacity, error) {
	projects, err := t.projects.ListByPractice(ctx, practiceID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load practice projects")
	}
	reqs, err := t.projects.ListRequirementsByPractice(ctx, practiceID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load project requirements")
	}
	taken, err := t.participations.CountByProject(ctx, practiceID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count participations")
	}
	return newCapacity(projects, reqs, taken), nil
}
