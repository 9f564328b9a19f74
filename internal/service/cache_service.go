package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/practicum-api/internal/models"
	appErrors "github.com/noah-isme/practicum-api/pkg/errors"
)

// CacheRepository abstracts persistence for run locks and cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// CacheService keeps per-practice run locks and the latest run summaries.
// Locks are held in process first and then in the repository, so a disabled
// Redis still keeps runs of one practice from overlapping within a process.
type CacheService struct {
	repo     CacheRepository
	metrics  *MetricsService
	lockTTL  time.Duration
	cacheTTL time.Duration
	logger   *zap.Logger

	mu    sync.Mutex
	local map[string]string
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, lockTTL, cacheTTL time.Duration, logger *zap.Logger) *CacheService {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	if cacheTTL <= 0 {
		cacheTTL = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:     repo,
		metrics:  metrics,
		lockTTL:  lockTTL,
		cacheTTL: cacheTTL,
		logger:   logger,
		local:    make(map[string]string),
	}
}

func lockKey(practiceID string) string {
	return fmt.Sprintf("assignment:lock:%s", practiceID)
}

func runKey(practiceID string) string {
	return fmt.Sprintf("assignment:run:%s:latest", practiceID)
}

// AcquireRunLock claims the practice for one run. A held lock yields
// ErrRunInProgress.
func (s *CacheService) AcquireRunLock(ctx context.Context, practiceID, token string) error {
	if !s.lockLocal(practiceID, token) {
		return appErrors.Clone(appErrors.ErrRunInProgress, "")
	}
	ok, err := s.repo.AcquireLock(ctx, lockKey(practiceID), token, s.lockTTL)
	if err != nil {
		s.unlockLocal(practiceID, token)
		return appErrors.Internal(err, "failed to acquire assignment lock")
	}
	if !ok {
		s.unlockLocal(practiceID, token)
		return appErrors.Clone(appErrors.ErrRunInProgress, "")
	}
	return nil
}

// ReleaseRunLock frees the practice lock held by token.
func (s *CacheService) ReleaseRunLock(ctx context.Context, practiceID, token string) {
	if err := s.repo.ReleaseLock(ctx, lockKey(practiceID), token); err != nil {
		s.logger.Warn("release assignment lock failed", zap.String("practice_id", practiceID), zap.Error(err))
	}
	s.unlockLocal(practiceID, token)
}

func (s *CacheService) lockLocal(practiceID, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.local[practiceID]; held {
		return false
	}
	s.local[practiceID] = token
	return true
}

func (s *CacheService) unlockLocal(practiceID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.local[practiceID] == token {
		delete(s.local, practiceID)
	}
}

// StoreRun caches the run summary as the practice's latest.
func (s *CacheService) StoreRun(ctx context.Context, run *models.AssignmentRun) {
	if err := s.repo.Set(ctx, runKey(run.PracticeID), run, s.cacheTTL); err != nil {
		s.logger.Warn("cache run summary failed", zap.String("practice_id", run.PracticeID), zap.Error(err))
	}
}

// LatestRun returns the cached summary of the practice's most recent run.
func (s *CacheService) LatestRun(ctx context.Context, practiceID string) (*models.AssignmentRun, error) {
	start := time.Now()
	var run models.AssignmentRun
	err := s.repo.Get(ctx, runKey(practiceID), &run)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no assignment run recorded")
		}
		return nil, appErrors.Internal(err, "failed to read run summary")
	}
	return &run, nil
}
