package models

import "time"

// Major is a degree programme students are enrolled in.
type Major struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Years     int       `db:"years" json:"years"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Practice is a time-bounded internship offering for a major and year. It scopes
// the students, projects and requests that take part in one assignment run.
type Practice struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	MajorID     string    `db:"major_id" json:"major_id"`
	Year        int       `db:"year" json:"year"`
	CourseStart time.Time `db:"course_start" json:"course_start"`
	CourseEnd   time.Time `db:"course_end" json:"course_end"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Running reports whether the practice is in progress on the given day.
func (p Practice) Running(at time.Time) bool {
	day := truncateDay(at)
	return !day.Before(truncateDay(p.StartDate)) && !day.After(truncateDay(p.EndDate))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
