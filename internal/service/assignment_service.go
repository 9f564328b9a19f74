package service

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/practicum-api/internal/models"
	"github.com/noah-isme/practicum-api/pkg/database"
	appErrors "github.com/noah-isme/practicum-api/pkg/errors"
)

type practiceReader interface {
	FindByID(ctx context.Context, id string) (*models.Practice, error)
	ListCurrent(ctx context.Context, at time.Time) ([]models.Practice, error)
}

type registeredStudentReader interface {
	ListByPractice(ctx context.Context, practiceID string) ([]models.RegisteredStudent, error)
	ListUnassigned(ctx context.Context, practiceID string) ([]models.RegisteredStudent, error)
}

type requestReader interface {
	ListByPractice(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
}

type participationStore interface {
	participationCounter
	GetOrCreate(ctx context.Context, registeredStudentID string) (*models.Participation, bool, error)
	AssignProject(ctx context.Context, participationID, projectID string) error
}

type runStateStore interface {
	AcquireRunLock(ctx context.Context, practiceID, token string) error
	ReleaseRunLock(ctx context.Context, practiceID, token string)
	StoreRun(ctx context.Context, run *models.AssignmentRun)
	LatestRun(ctx context.Context, practiceID string) (*models.AssignmentRun, error)
}

// RunAssignmentRequest selects the practice to assign. Seed overrides the
// configured shuffle seed for this run only.
type RunAssignmentRequest struct {
	PracticeID string `json:"practice_id" validate:"required"`
	Seed       *int64 `json:"seed,omitempty"`
}

// AssignmentConfig governs assignment behaviour.
type AssignmentConfig struct {
	Seed   int64
	Policy models.ConfirmedPolicy
}

// AssignmentService places registered students on projects. Tutor-confirmed
// requests are honoured first, then the remaining students are visited in
// random order and given their most preferred project that still has room.
type AssignmentService struct {
	practices      practiceReader
	students       registeredStudentReader
	requests       requestReader
	participations participationStore
	capacity       *CapacityTracker
	state          runStateStore
	metrics        *MetricsService
	validator      *validator.Validate
	logger         *zap.Logger
	cfg            AssignmentConfig
	now            func() time.Time
}

// NewAssignmentService wires assignment dependencies. state and metrics may be nil.
func NewAssignmentService(
	practices practiceReader,
	projects capacityProjectReader,
	students registeredStudentReader,
	requests requestReader,
	participations participationStore,
	state runStateStore,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AssignmentConfig,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Policy == "" {
		cfg.Policy = models.ConfirmedExempt
	}
	return &AssignmentService{
		practices:      practices,
		students:       students,
		requests:       requests,
		participations: participations,
		capacity:       NewCapacityTracker(projects, participations),
		state:          state,
		metrics:        metrics,
		validator:      validate,
		logger:         logger,
		cfg:            cfg,
		now:            time.Now,
	}
}

// RunCurrent assigns every practice running at the given time, earliest first.
// A practice whose run is already in progress elsewhere is skipped.
func (s *AssignmentService) RunCurrent(ctx context.Context, at time.Time) ([]models.AssignmentRun, error) {
	practices, err := s.practices.ListCurrent(ctx, at)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load current practices")
	}
	if len(practices) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active practice period")
	}
	runs := make([]models.AssignmentRun, 0, len(practices))
	for _, practice := range practices {
		run, err := s.Run(ctx, RunAssignmentRequest{PracticeID: practice.ID})
		if errors.Is(err, appErrors.ErrRunInProgress) {
			s.logger.Warn("assignment run already in progress", zap.String("practice_id", practice.ID))
			continue
		}
		if err != nil {
			return runs, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

// Run executes one assignment pass for the practice. Students who already have
// a project keep it; a second run without data changes assigns nobody new.
func (s *AssignmentService) Run(ctx context.Context, req RunAssignmentRequest) (*models.AssignmentRun, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment run payload")
	}
	if _, err := s.practices.FindByID(ctx, req.PracticeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "practice not found")
		}
		return nil, appErrors.Internal(err, "failed to load practice")
	}

	seed := s.cfg.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	if seed == 0 {
		seed = s.now().UnixNano()
	}
	run := &models.AssignmentRun{
		ID:         uuid.NewString(),
		PracticeID: req.PracticeID,
		Policy:     s.cfg.Policy,
		Seed:       seed,
		StartedAt:  s.now().UTC(),
	}

	if s.state != nil {
		if err := s.state.AcquireRunLock(ctx, req.PracticeID, run.ID); err != nil {
			return nil, err
		}
		defer s.state.ReleaseRunLock(context.WithoutCancel(ctx), req.PracticeID, run.ID)
	}

	log := s.logger.With(zap.String("run_id", run.ID), zap.String("practice_id", req.PracticeID))
	if err := s.execute(ctx, run, log); err != nil {
		s.metrics.ObserveAssignmentRun("failed", s.now().UTC().Sub(run.StartedAt))
		log.Error("assignment run failed", zap.Error(err))
		return nil, err
	}
	run.FinishedAt = s.now().UTC()

	s.metrics.ObserveAssignmentRun("succeeded", run.FinishedAt.Sub(run.StartedAt))
	s.metrics.RecordAssignments(run)
	if s.state != nil {
		s.state.StoreRun(ctx, run)
	}
	log.Info("assignment run finished",
		zap.Int("confirmed", run.Count(models.PhaseConfirmed)),
		zap.Int("preference", run.Count(models.PhasePreference)),
		zap.Int("skipped_confirmed", run.SkippedConfirmed),
		zap.Int("unassigned", len(run.Unassigned)),
		zap.Int("open_slots", run.OpenSlots),
		zap.Int64("seed", run.Seed),
	)
	return run, nil
}

// LatestRun returns the most recent cached run summary of the practice.
func (s *AssignmentService) LatestRun(ctx context.Context, practiceID string) (*models.AssignmentRun, error) {
	if s.state == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no assignment run recorded")
	}
	return s.state.LatestRun(ctx, practiceID)
}

func (s *AssignmentService) execute(ctx context.Context, run *models.AssignmentRun, log *zap.Logger) error {
	capacity, err := s.capacity.Build(ctx, run.PracticeID)
	if err != nil {
		return err
	}
	run.InitialCapacity = capacity.Snapshot()

	enrolled, err := s.students.ListByPractice(ctx, run.PracticeID)
	if err != nil {
		return appErrors.Internal(err, "failed to load registered students")
	}
	profiles := make(map[string]models.RegisteredStudent, len(enrolled))
	for _, student := range enrolled {
		profiles[student.ID] = student
	}

	if err := s.assignConfirmed(ctx, run, capacity, profiles, log); err != nil {
		return err
	}
	if err := s.assignByPreference(ctx, run, capacity, log); err != nil {
		return err
	}
	run.OpenSlots = capacity.Total()
	return nil
}

func (s *AssignmentService) assignConfirmed(ctx context.Context, run *models.AssignmentRun, capacity *Capacity, profiles map[string]models.RegisteredStudent, log *zap.Logger) error {
	confirmed, err := s.requests.ListByPractice(ctx, models.RequestFilter{PracticeID: run.PracticeID, CheckedOnly: true})
	if err != nil {
		return appErrors.Internal(err, "failed to load confirmed requests")
	}
	for _, req := range confirmed {
		part, err := s.participation(ctx, req.RegisteredStudentID)
		if err != nil {
			return err
		}
		if part.Assigned() {
			run.SkippedConfirmed++
			continue
		}
		if err := s.assign(ctx, part, req.ProjectID); err != nil {
			return err
		}
		if run.Policy == models.ConfirmedConsume {
			capacity.Take(req.ProjectID)
		}
		profile := profiles[req.RegisteredStudentID]
		run.Assignments = append(run.Assignments, models.Assignment{
			RegisteredStudentID: req.RegisteredStudentID,
			ProjectID:           req.ProjectID,
			Phase:               models.PhaseConfirmed,
			Priority:            req.Priority,
			OffProfile:          !capacity.Fits(req.ProjectID, profile.MajorID, profile.Year),
		})
		log.Debug("confirmed request assigned",
			zap.String("registered_student_id", req.RegisteredStudentID),
			zap.String("project_id", req.ProjectID))
	}
	return nil
}

func (s *AssignmentService) assignByPreference(ctx context.Context, run *models.AssignmentRun, capacity *Capacity, log *zap.Logger) error {
	pool, err := s.students.ListUnassigned(ctx, run.PracticeID)
	if err != nil {
		return appErrors.Internal(err, "failed to load unassigned students")
	}
	all, err := s.requests.ListByPractice(ctx, models.RequestFilter{PracticeID: run.PracticeID})
	if err != nil {
		return appErrors.Internal(err, "failed to load requests")
	}
	byStudent := make(map[string][]models.Request, len(pool))
	for _, req := range all {
		byStudent[req.RegisteredStudentID] = append(byStudent[req.RegisteredStudentID], req)
	}
	for id := range byStudent {
		reqs := byStudent[id]
		sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].Priority < reqs[j].Priority })
	}

	shuffleStudents(pool, run.Seed)

	run.Unassigned = make([]string, 0)
	for _, student := range pool {
		placed := false
		for _, req := range byStudent[student.ID] {
			if !capacity.Available(req.ProjectID) {
				continue
			}
			part, err := s.participation(ctx, student.ID)
			if err != nil {
				return err
			}
			if err := s.assign(ctx, part, req.ProjectID); err != nil {
				return err
			}
			capacity.Take(req.ProjectID)
			run.Assignments = append(run.Assignments, models.Assignment{
				RegisteredStudentID: student.ID,
				ProjectID:           req.ProjectID,
				Phase:               models.PhasePreference,
				Priority:            req.Priority,
				OffProfile:          !capacity.Fits(req.ProjectID, student.MajorID, student.Year),
			})
			placed = true
			break
		}
		if !placed {
			run.Unassigned = append(run.Unassigned, student.ID)
			log.Debug("student left unassigned",
				zap.String("registered_student_id", student.ID),
				zap.Int("requests", len(byStudent[student.ID])))
		}
	}
	return nil
}

func (s *AssignmentService) participation(ctx context.Context, registeredStudentID string) (*models.Participation, error) {
	part, _, err := s.participations.GetOrCreate(ctx, registeredStudentID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "participation created concurrently")
		}
		return nil, appErrors.Internal(err, "failed to load participation")
	}
	return part, nil
}

func (s *AssignmentService) assign(ctx context.Context, part *models.Participation, projectID string) error {
	if part.Assigned() {
		return appErrors.Clone(appErrors.ErrConflict, "participation assigned concurrently")
	}
	if err := s.participations.AssignProject(ctx, part.ID, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "participation assigned concurrently")
		}
		return appErrors.Internal(err, "failed to assign participation")
	}
	part.ProjectID = &projectID
	return nil
}

// shuffleStudents orders the pool by id and then shuffles it with the seed, so
// a fixed seed yields the same visiting order whatever order the store used.
func shuffleStudents(pool []models.RegisteredStudent, seed int64) {
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
}
