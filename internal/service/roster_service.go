package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/practicum-api/internal/models"
	"github.com/noah-isme/practicum-api/pkg/export"
	appErrors "github.com/noah-isme/practicum-api/pkg/errors"
)

type rosterReader interface {
	ListByPractice(ctx context.Context, practiceID string) ([]models.ParticipationDetail, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
}

// RosterRequest selects the practice and output format of a roster export.
type RosterRequest struct {
	PracticeID string `json:"practice_id" validate:"required"`
	Format     string `json:"format" validate:"omitempty,oneof=csv pdf CSV PDF"`
}

// RosterResult captures where a roster was written and what it contains.
type RosterResult struct {
	PracticeID string        `json:"practice_id"`
	Format     export.Format `json:"format"`
	Path       string        `json:"path"`
	Students   int           `json:"students"`
	Assigned   int           `json:"assigned"`
}

var rosterHeaders = []string{"Group", "Student", "Project", "Tutor", "Proposed grade", "Grade"}

// RosterService renders the participation list of a practice to a document.
type RosterService struct {
	practices      practiceReader
	participations rosterReader
	storage        fileStorage
	validator      *validator.Validate
	logger         *zap.Logger
	defaultFormat  export.Format
	now            func() time.Time
}

// NewRosterService constructs a RosterService. defaultFormat applies when a
// request names none.
func NewRosterService(practices practiceReader, participations rosterReader, storage fileStorage, defaultFormat export.Format, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultFormat == "" {
		defaultFormat = export.FormatCSV
	}
	return &RosterService{
		practices:      practices,
		participations: participations,
		storage:        storage,
		validator:      validate,
		logger:         logger,
		defaultFormat:  defaultFormat,
		now:            time.Now,
	}
}

// Export writes the roster of the practice and returns its location.
func (s *RosterService) Export(ctx context.Context, req RosterRequest) (*RosterResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}
	format := s.defaultFormat
	if req.Format != "" {
		parsed, err := export.ParseFormat(req.Format)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster format")
		}
		format = parsed
	}

	practice, err := s.practices.FindByID(ctx, req.PracticeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "practice not found")
		}
		return nil, appErrors.Internal(err, "failed to load practice")
	}
	roster, err := s.participations.ListByPractice(ctx, practice.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load roster")
	}

	generated := s.now().UTC()
	dataset, assigned := buildRosterDataset(practice, roster, generated)
	renderer, err := export.NewRenderer(format)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to prepare roster renderer")
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render roster")
	}

	name := fmt.Sprintf("%s/roster_%s.%s", sanitizeFilename(practice.ID), generated.Format("20060102_150405"), format.Extension())
	path, err := s.storage.Save(name, payload)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store roster")
	}

	s.logger.Info("roster exported",
		zap.String("practice_id", practice.ID),
		zap.String("format", string(format)),
		zap.String("path", path),
		zap.Int("students", len(roster)),
		zap.Int("assigned", assigned))

	return &RosterResult{
		PracticeID: practice.ID,
		Format:     format,
		Path:       path,
		Students:   len(roster),
		Assigned:   assigned,
	}, nil
}

func buildRosterDataset(practice *models.Practice, roster []models.ParticipationDetail, generated time.Time) (export.Dataset, int) {
	rows := make([][]string, 0, len(roster))
	assigned := 0
	for _, item := range roster {
		if item.Assigned() {
			assigned++
		}
		rows = append(rows, []string{
			item.Group,
			item.StudentName,
			derefString(item.ProjectName),
			derefString(item.TutorName),
			formatGrade(item.ProposedGrade),
			formatGrade(item.Grade),
		})
	}
	title := practice.Name
	if title == "" {
		title = practice.ID
	}
	return export.Dataset{
		Title:    title,
		Subtitle: fmt.Sprintf("%s to %s, %d of %d assigned, generated %s", practice.StartDate.Format("2006-01-02"), practice.EndDate.Format("2006-01-02"), assigned, len(roster), generated.Format(time.RFC3339)),
		Headers:  rosterHeaders,
		Rows:     rows,
	}, assigned
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatGrade(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
