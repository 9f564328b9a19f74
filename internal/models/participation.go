package models

import "time"

// Participation is the assignment outcome for a registered student. A nil
// ProjectID means the student has not been assigned yet.
type Participation struct {
	ID                  string    `db:"id" json:"id"`
	RegisteredStudentID string    `db:"registered_student_id" json:"registered_student_id"`
	ProjectID           *string   `db:"project_id" json:"project_id,omitempty"`
	ProposedGrade       *int      `db:"proposed_grade" json:"proposed_grade,omitempty"`
	Grade               *int      `db:"grade" json:"grade,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// Assigned reports whether the participation already points at a project.
func (p *Participation) Assigned() bool {
	return p != nil && p.ProjectID != nil && *p.ProjectID != ""
}

// ParticipationDetail enriches a participation with roster fields.
type ParticipationDetail struct {
	Participation
	StudentName string  `db:"student_name" json:"student_name"`
	Group       string  `db:"group_name" json:"group"`
	ProjectName *string `db:"project_name" json:"project_name,omitempty"`
	TutorName   *string `db:"tutor_name" json:"tutor_name,omitempty"`
}
