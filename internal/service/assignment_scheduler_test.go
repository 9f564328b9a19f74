package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/practicum-api/internal/models"
	appErrors "github.com/noah-isme/practicum-api/pkg/errors"
)

type runnerStub struct {
	mu       sync.Mutex
	runs     []string
	current  int
	block    chan struct{}
	runErr   error
	attempts int
}

func (r *runnerStub) Run(ctx context.Context, req RunAssignmentRequest) (*models.AssignmentRun, error) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.runErr != nil {
		return nil, r.runErr
	}
	r.runs = append(r.runs, req.PracticeID)
	return &models.AssignmentRun{PracticeID: req.PracticeID}, nil
}

func (r *runnerStub) RunCurrent(ctx context.Context, at time.Time) ([]models.AssignmentRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current++
	return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active practice period")
}

func (r *runnerStub) snapshot() ([]string, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...), r.current, r.attempts
}

func TestAssignmentSchedulerTrigger(t *testing.T) {
	runner := &runnerStub{block: make(chan struct{})}
	scheduler := NewAssignmentScheduler(runner, SchedulerConfig{Workers: 1}, nil)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	id, err := scheduler.Trigger("practice-1")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = scheduler.Trigger("practice-1")
	assert.ErrorIs(t, err, appErrors.ErrRunInProgress)

	_, err = scheduler.Trigger("")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	close(runner.block)
	assert.Eventually(t, func() bool {
		runs, _, _ := runner.snapshot()
		return len(runs) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, err := scheduler.Trigger("practice-1")
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestAssignmentSchedulerTicksRunCurrent(t *testing.T) {
	runner := &runnerStub{}
	scheduler := NewAssignmentScheduler(runner, SchedulerConfig{Interval: 10 * time.Millisecond}, nil)
	scheduler.Start(context.Background())

	assert.Eventually(t, func() bool {
		_, current, _ := runner.snapshot()
		return current >= 2
	}, time.Second, 5*time.Millisecond)
	scheduler.Stop()
}

func TestAssignmentSchedulerRetriesTransientFailures(t *testing.T) {
	runner := &runnerStub{runErr: appErrors.Internal(errors.New("connection reset"), "failed to load practice")}
	scheduler := NewAssignmentScheduler(runner, SchedulerConfig{MaxRetries: 2, RetryDelay: time.Millisecond}, nil)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	_, err := scheduler.Trigger("practice-1")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		_, _, attempts := runner.snapshot()
		return attempts == 3
	}, time.Second, 5*time.Millisecond)
}

func TestAssignmentSchedulerDoesNotRetryPermanentFailures(t *testing.T) {
	runner := &runnerStub{runErr: appErrors.Clone(appErrors.ErrNotFound, "practice not found")}
	scheduler := NewAssignmentScheduler(runner, SchedulerConfig{MaxRetries: 3, RetryDelay: time.Millisecond}, nil)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	_, err := scheduler.Trigger("missing")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		_, err := scheduler.Trigger("missing")
		return err == nil
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	_, _, attempts := runner.snapshot()
	assert.Equal(t, 2, attempts)
}

type overlapRunner struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	calls   int
	hold    time.Duration
}

func (r *overlapRunner) enter() {
	r.mu.Lock()
	r.active++
	r.calls++
	if r.active > r.maxSeen {
		r.maxSeen = r.active
	}
	r.mu.Unlock()
	time.Sleep(r.hold)
	r.mu.Lock()
	r.active--
	r.mu.Unlock()
}

func (r *overlapRunner) Run(ctx context.Context, req RunAssignmentRequest) (*models.AssignmentRun, error) {
	r.enter()
	return &models.AssignmentRun{PracticeID: req.PracticeID}, nil
}

func (r *overlapRunner) RunCurrent(ctx context.Context, at time.Time) ([]models.AssignmentRun, error) {
	r.enter()
	return []models.AssignmentRun{{PracticeID: "practice-1"}}, nil
}

func (r *overlapRunner) stats() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, r.maxSeen
}

func TestAssignmentSchedulerTickAndTriggerDoNotOverlap(t *testing.T) {
	runner := &overlapRunner{hold: 30 * time.Millisecond}
	scheduler := NewAssignmentScheduler(runner, SchedulerConfig{Interval: 10 * time.Millisecond, Workers: 2}, nil)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	assert.Eventually(t, func() bool {
		calls, _ := runner.stats()
		return calls >= 1
	}, time.Second, time.Millisecond)
	_, err := scheduler.Trigger("practice-1")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		calls, _ := runner.stats()
		return calls >= 3
	}, time.Second, 5*time.Millisecond)
	_, maxSeen := runner.stats()
	assert.Equal(t, 1, maxSeen)
}
