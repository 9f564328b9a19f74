package models

import "time"

// Project is a unit of work offered under one or more practices.
type Project struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	TutorName   string    `db:"tutor_name" json:"tutor_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Requirement states that a project needs StudentsCount students of a major at
// the given year or later.
type Requirement struct {
	ID            string `db:"id" json:"id"`
	ProjectID     string `db:"project_id" json:"project_id"`
	MajorID       string `db:"major_id" json:"major_id"`
	Year          int    `db:"year" json:"year"`
	StudentsCount int    `db:"students_count" json:"students_count"`
}

// ApplicableRequirement returns the most specific requirement for a student of
// the given major and year: same major, highest year not above the student's.
func ApplicableRequirement(reqs []Requirement, majorID string, year int) (Requirement, bool) {
	var (
		best  Requirement
		found bool
	)
	for _, req := range reqs {
		if req.MajorID != majorID || req.Year > year {
			continue
		}
		if !found || req.Year > best.Year {
			best = req
			found = true
		}
	}
	return best, found
}
