package models

import "time"

// RegisteredStudent is a student enrolled in a practice.
type RegisteredStudent struct {
	ID         string    `db:"id" json:"id"`
	PracticeID string    `db:"practice_id" json:"practice_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	MajorID    string    `db:"major_id" json:"major_id"`
	Year       int       `db:"year" json:"year"`
	Group      string    `db:"group_name" json:"group"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
