package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/practicum-api/internal/models"
	appErrors "github.com/noah-isme/practicum-api/pkg/errors"
	"github.com/noah-isme/practicum-api/pkg/jobs"
)

const (
	jobTypeRunCurrent  = "assignment.run_current"
	jobTypeRunPractice = "assignment.run_practice"
	runCurrentKey      = "assignment:current"
)

type assignmentRunner interface {
	Run(ctx context.Context, req RunAssignmentRequest) (*models.AssignmentRun, error)
	RunCurrent(ctx context.Context, at time.Time) ([]models.AssignmentRun, error)
}

// SchedulerConfig tunes background assignment runs.
type SchedulerConfig struct {
	Interval   time.Duration
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// AssignmentScheduler re-runs assignment in the background so requests confirmed
// after the last run are picked up. Queued runs execute one at a time, so a
// periodic run and a triggered run of the same practice never overlap.
type AssignmentScheduler struct {
	runner   assignmentRunner
	queue    *jobs.Queue
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	runMu sync.Mutex

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewAssignmentScheduler constructs the scheduler. A zero interval disables the
// periodic tick; Trigger still works.
func NewAssignmentScheduler(runner assignmentRunner, cfg SchedulerConfig, logger *zap.Logger) *AssignmentScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 30 * time.Second
	}
	s := &AssignmentScheduler{
		runner:   runner,
		interval: cfg.Interval,
		logger:   logger,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	s.queue = jobs.NewQueue("assignment", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the workers and, when an interval is set, the ticker.
func (s *AssignmentScheduler) Start(ctx context.Context) {
	s.queue.Start(ctx)
	if s.interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.enqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeRunCurrent, Key: runCurrentKey})
			}
		}
	}()
	s.logger.Info("assignment scheduler started", zap.Duration("interval", s.interval))
}

// Stop halts the ticker and waits for in-flight runs.
func (s *AssignmentScheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
	s.queue.Stop()
}

// Trigger queues one run of the practice. It fails with RUN_IN_PROGRESS when a
// triggered run of the same practice is already queued or executing. A pending
// periodic run does not block it; the triggered run waits for it instead.
func (s *AssignmentScheduler) Trigger(practiceID string) (string, error) {
	if practiceID == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "practice id is required")
	}
	id := uuid.NewString()
	err := s.queue.Enqueue(jobs.Job{ID: id, Type: jobTypeRunPractice, Key: "assignment:" + practiceID, Payload: practiceID})
	if errors.Is(err, jobs.ErrDuplicate) {
		return "", appErrors.Clone(appErrors.ErrRunInProgress, "")
	}
	if err != nil {
		return "", appErrors.Internal(err, "failed to queue assignment run")
	}
	return id, nil
}

func (s *AssignmentScheduler) enqueue(job jobs.Job) {
	if err := s.queue.Enqueue(job); err != nil {
		if errors.Is(err, jobs.ErrDuplicate) {
			s.logger.Debug("assignment run already pending", zap.String("key", job.Key))
			return
		}
		s.logger.Warn("queue assignment run failed", zap.Error(err))
	}
}

func (s *AssignmentScheduler) handle(ctx context.Context, job jobs.Job) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	var err error
	switch job.Type {
	case jobTypeRunCurrent:
		_, err = s.runner.RunCurrent(ctx, s.now())
	case jobTypeRunPractice:
		practiceID, _ := job.Payload.(string)
		_, err = s.runner.Run(ctx, RunAssignmentRequest{PracticeID: practiceID})
	default:
		return jobs.Permanent(errors.New("unknown job type " + job.Type))
	}
	if err == nil {
		return nil
	}
	// outcomes that a retry cannot change
	for _, target := range []error{appErrors.ErrPreconditionFailed, appErrors.ErrNotFound, appErrors.ErrValidation, appErrors.ErrRunInProgress} {
		if errors.Is(err, target) {
			return jobs.Permanent(err)
		}
	}
	return err
}
