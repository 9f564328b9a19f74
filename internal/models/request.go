package models

// Request is a registered student's ranked interest in a project. Lower
// Priority is more preferred; Checked marks tutor pre-confirmation.
type Request struct {
	ID                  string `db:"id" json:"id"`
	RegisteredStudentID string `db:"registered_student_id" json:"registered_student_id"`
	ProjectID           string `db:"project_id" json:"project_id"`
	Priority            int    `db:"priority" json:"priority"`
	Checked             bool   `db:"checked" json:"checked"`
}

// RequestFilter narrows request listings for a practice.
type RequestFilter struct {
	PracticeID  string
	CheckedOnly bool
}
