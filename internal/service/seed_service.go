package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/noah-isme/practicum-api/internal/models"
	appErrors "github.com/noah-isme/practicum-api/pkg/errors"
)

const fixtureDateLayout = "2006-01-02"

// SeedFixture describes a practicum dataset. Entities reference each other by
// key; keys also derive stable row ids so reseeding updates in place.
type SeedFixture struct {
	Majors         []MajorFixture         `mapstructure:"majors" validate:"dive"`
	Practices      []PracticeFixture      `mapstructure:"practices" validate:"dive"`
	Projects       []ProjectFixture       `mapstructure:"projects" validate:"dive"`
	Students       []StudentFixture       `mapstructure:"students" validate:"dive"`
	Requests       []RequestFixture       `mapstructure:"requests" validate:"dive"`
	Participations []ParticipationFixture `mapstructure:"participations" validate:"dive"`
}

type MajorFixture struct {
	Key   string `mapstructure:"key" validate:"required"`
	Name  string `mapstructure:"name" validate:"required"`
	Years int    `mapstructure:"years" validate:"min=1"`
}

type PracticeFixture struct {
	Key         string `mapstructure:"key" validate:"required"`
	Name        string `mapstructure:"name" validate:"required"`
	Major       string `mapstructure:"major" validate:"required"`
	Year        int    `mapstructure:"year" validate:"min=1"`
	CourseStart string `mapstructure:"course_start" validate:"required,datetime=2006-01-02"`
	CourseEnd   string `mapstructure:"course_end" validate:"required,datetime=2006-01-02"`
	StartDate   string `mapstructure:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `mapstructure:"end_date" validate:"required,datetime=2006-01-02"`
}

type RequirementFixture struct {
	Major    string `mapstructure:"major" validate:"required"`
	Year     int    `mapstructure:"year" validate:"min=1"`
	Students int    `mapstructure:"students" validate:"min=1"`
}

type ProjectFixture struct {
	Key          string               `mapstructure:"key" validate:"required"`
	Name         string               `mapstructure:"name" validate:"required"`
	Description  string               `mapstructure:"description"`
	Tutor        string               `mapstructure:"tutor"`
	Practices    []string             `mapstructure:"practices" validate:"min=1,dive,required"`
	Requirements []RequirementFixture `mapstructure:"requirements" validate:"dive"`
}

type StudentFixture struct {
	Key      string `mapstructure:"key" validate:"required"`
	Practice string `mapstructure:"practice" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	Major    string `mapstructure:"major" validate:"required"`
	Year     int    `mapstructure:"year" validate:"min=1"`
	Group    string `mapstructure:"group"`
}

type RequestFixture struct {
	Student  string `mapstructure:"student" validate:"required"`
	Project  string `mapstructure:"project" validate:"required"`
	Priority int    `mapstructure:"priority" validate:"min=1"`
	Checked  bool   `mapstructure:"checked"`
}

type ParticipationFixture struct {
	Student       string `mapstructure:"student" validate:"required"`
	Project       string `mapstructure:"project"`
	ProposedGrade *int   `mapstructure:"proposed_grade" validate:"omitempty,min=2,max=5"`
	Grade         *int   `mapstructure:"grade" validate:"omitempty,min=2,max=5"`
}

// SeedResult counts the rows written by a seed.
type SeedResult struct {
	Majors         int `json:"majors"`
	Practices      int `json:"practices"`
	Projects       int `json:"projects"`
	Requirements   int `json:"requirements"`
	Students       int `json:"students"`
	Requests       int `json:"requests"`
	Participations int `json:"participations"`
}

// LoadSeedFixture reads a YAML, JSON or TOML fixture file.
func LoadSeedFixture(path string) (*SeedFixture, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var fixture SeedFixture
	if err := v.Unmarshal(&fixture); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return &fixture, nil
}

type seedPracticeWriter interface {
	UpsertMajor(ctx context.Context, major *models.Major) error
	Upsert(ctx context.Context, practice *models.Practice) error
}

type seedProjectWriter interface {
	Upsert(ctx context.Context, project *models.Project) error
	LinkPractice(ctx context.Context, practiceID, projectID string) error
	UpsertRequirement(ctx context.Context, req *models.Requirement) error
}

type seedStudentWriter interface {
	Upsert(ctx context.Context, student *models.RegisteredStudent) error
}

type seedRequestWriter interface {
	Upsert(ctx context.Context, req *models.Request) error
}

type seedParticipationWriter interface {
	Record(ctx context.Context, part *models.Participation) error
}

// SeedService loads fixtures into the store.
type SeedService struct {
	practices      seedPracticeWriter
	projects       seedProjectWriter
	students       seedStudentWriter
	requests       seedRequestWriter
	participations seedParticipationWriter
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewSeedService constructs a SeedService.
func NewSeedService(practices seedPracticeWriter, projects seedProjectWriter, students seedStudentWriter, requests seedRequestWriter, participations seedParticipationWriter, validate *validator.Validate, logger *zap.Logger) *SeedService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{
		practices:      practices,
		projects:       projects,
		students:       students,
		requests:       requests,
		participations: participations,
		validator:      validate,
		logger:         logger,
	}
}

// FixtureID derives the stable row id of a fixture entity.
func FixtureID(kind, key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("practicum:"+kind+":"+key)).String()
}

// Apply validates the fixture and upserts it, parents first.
func (s *SeedService) Apply(ctx context.Context, fixture *SeedFixture) (*SeedResult, error) {
	if fixture == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fixture is empty")
	}
	if err := s.validator.Struct(fixture); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fixture")
	}
	if err := checkFixtureReferences(fixture); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fixture")
	}

	result := &SeedResult{}
	for _, m := range fixture.Majors {
		major := &models.Major{ID: FixtureID("major", m.Key), Name: m.Name, Years: m.Years}
		if err := s.practices.UpsertMajor(ctx, major); err != nil {
			return result, appErrors.Internal(err, "failed to seed major "+m.Key)
		}
		result.Majors++
	}
	for _, p := range fixture.Practices {
		practice := &models.Practice{
			ID:          FixtureID("practice", p.Key),
			Name:        p.Name,
			MajorID:     FixtureID("major", p.Major),
			Year:        p.Year,
			CourseStart: mustFixtureDate(p.CourseStart),
			CourseEnd:   mustFixtureDate(p.CourseEnd),
			StartDate:   mustFixtureDate(p.StartDate),
			EndDate:     mustFixtureDate(p.EndDate),
		}
		if err := s.practices.Upsert(ctx, practice); err != nil {
			return result, appErrors.Internal(err, "failed to seed practice "+p.Key)
		}
		result.Practices++
	}
	for _, p := range fixture.Projects {
		project := &models.Project{ID: FixtureID("project", p.Key), Name: p.Name, Description: p.Description, TutorName: p.Tutor}
		if err := s.projects.Upsert(ctx, project); err != nil {
			return result, appErrors.Internal(err, "failed to seed project "+p.Key)
		}
		for _, practiceKey := range p.Practices {
			if err := s.projects.LinkPractice(ctx, FixtureID("practice", practiceKey), project.ID); err != nil {
				return result, appErrors.Internal(err, "failed to link project "+p.Key)
			}
		}
		for _, r := range p.Requirements {
			req := &models.Requirement{
				ID:            FixtureID("requirement", fmt.Sprintf("%s/%s/%d", p.Key, r.Major, r.Year)),
				ProjectID:     project.ID,
				MajorID:       FixtureID("major", r.Major),
				Year:          r.Year,
				StudentsCount: r.Students,
			}
			if err := s.projects.UpsertRequirement(ctx, req); err != nil {
				return result, appErrors.Internal(err, "failed to seed requirement of "+p.Key)
			}
			result.Requirements++
		}
		result.Projects++
	}
	for _, st := range fixture.Students {
		student := &models.RegisteredStudent{
			ID:         FixtureID("student", st.Key),
			PracticeID: FixtureID("practice", st.Practice),
			FullName:   st.Name,
			MajorID:    FixtureID("major", st.Major),
			Year:       st.Year,
			Group:      st.Group,
		}
		if err := s.students.Upsert(ctx, student); err != nil {
			return result, appErrors.Internal(err, "failed to seed student "+st.Key)
		}
		result.Students++
	}
	for _, r := range fixture.Requests {
		req := &models.Request{
			ID:                  FixtureID("request", r.Student+"/"+r.Project),
			RegisteredStudentID: FixtureID("student", r.Student),
			ProjectID:           FixtureID("project", r.Project),
			Priority:            r.Priority,
			Checked:             r.Checked,
		}
		if err := s.requests.Upsert(ctx, req); err != nil {
			return result, appErrors.Internal(err, "failed to seed request "+r.Student+"/"+r.Project)
		}
		result.Requests++
	}
	for _, p := range fixture.Participations {
		part := &models.Participation{
			ID:                  FixtureID("participation", p.Student),
			RegisteredStudentID: FixtureID("student", p.Student),
			ProposedGrade:       p.ProposedGrade,
			Grade:               p.Grade,
		}
		if p.Project != "" {
			projectID := FixtureID("project", p.Project)
			part.ProjectID = &projectID
		}
		if err := s.participations.Record(ctx, part); err != nil {
			return result, appErrors.Internal(err, "failed to seed participation of "+p.Student)
		}
		result.Participations++
	}

	s.logger.Info("fixture applied",
		zap.Int("majors", result.Majors),
		zap.Int("practices", result.Practices),
		zap.Int("projects", result.Projects),
		zap.Int("students", result.Students),
		zap.Int("requests", result.Requests),
		zap.Int("participations", result.Participations))
	return result, nil
}

func checkFixtureReferences(f *SeedFixture) error {
	majors := keySet(len(f.Majors))
	for _, m := range f.Majors {
		if err := majors.add("major", m.Key); err != nil {
			return err
		}
	}
	practices := keySet(len(f.Practices))
	for _, p := range f.Practices {
		if err := practices.add("practice", p.Key); err != nil {
			return err
		}
		if !majors[p.Major] {
			return fmt.Errorf("practice %s references unknown major %s", p.Key, p.Major)
		}
		if mustFixtureDate(p.EndDate).Before(mustFixtureDate(p.StartDate)) {
			return fmt.Errorf("practice %s ends before it starts", p.Key)
		}
	}
	projects := keySet(len(f.Projects))
	for _, p := range f.Projects {
		if err := projects.add("project", p.Key); err != nil {
			return err
		}
		for _, key := range p.Practices {
			if !practices[key] {
				return fmt.Errorf("project %s references unknown practice %s", p.Key, key)
			}
		}
		for _, r := range p.Requirements {
			if !majors[r.Major] {
				return fmt.Errorf("project %s requirement references unknown major %s", p.Key, r.Major)
			}
		}
	}
	students := keySet(len(f.Students))
	for _, st := range f.Students {
		if err := students.add("student", st.Key); err != nil {
			return err
		}
		if !practices[st.Practice] {
			return fmt.Errorf("student %s references unknown practice %s", st.Key, st.Practice)
		}
		if !majors[st.Major] {
			return fmt.Errorf("student %s references unknown major %s", st.Key, st.Major)
		}
	}
	pairs := keySet(len(f.Requests))
	for _, r := range f.Requests {
		if !students[r.Student] || !projects[r.Project] {
			return fmt.Errorf("request %s/%s references an unknown student or project", r.Student, r.Project)
		}
		if err := pairs.add("request", r.Student+"/"+r.Project); err != nil {
			return err
		}
	}
	seen := keySet(len(f.Participations))
	for _, p := range f.Participations {
		if !students[p.Student] {
			return fmt.Errorf("participation references unknown student %s", p.Student)
		}
		if p.Project != "" && !projects[p.Project] {
			return fmt.Errorf("participation of %s references unknown project %s", p.Student, p.Project)
		}
		if err := seen.add("participation", p.Student); err != nil {
			return err
		}
	}
	return nil
}

type keys map[string]bool

func keySet(n int) keys {
	return make(keys, n)
}

func (k keys) add(kind, key string) error {
	if k[key] {
		return fmt.Errorf("duplicate %s %s", kind, key)
	}
	k[key] = true
	return nil
}

// mustFixtureDate parses a date the validator has already accepted.
func mustFixtureDate(raw string) time.Time {
	t, err := time.Parse(fixtureDateLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
