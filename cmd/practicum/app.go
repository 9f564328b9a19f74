package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/practicum-api/api/swagger"
	"github.com/noah-isme/practicum-api/internal/handler"
	"github.com/noah-isme/practicum-api/internal/models"
	"github.com/noah-isme/practicum-api/internal/repository"
	"github.com/noah-isme/practicum-api/internal/service"
	"github.com/noah-isme/practicum-api/pkg/cache"
	"github.com/noah-isme/practicum-api/pkg/config"
	"github.com/noah-isme/practicum-api/pkg/database"
	"github.com/noah-isme/practicum-api/pkg/export"
	"github.com/noah-isme/practicum-api/pkg/storage"
)

// app wires configuration, stores and services for each sub-command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	out      io.Writer
	validate *validator.Validate
	metrics  *service.MetricsService

	db    *sqlx.DB
	redis *redis.Client
}

func newApp(cfg *config.Config, logger *zap.Logger, out io.Writer) *app {
	return &app{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		validate: validator.New(),
		metrics:  service.NewMetricsService(),
	}
}

func (a *app) openDB() (*sqlx.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.NewPostgres(a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *app) openRedis(ctx context.Context) (*redis.Client, error) {
	if a.redis != nil || !a.cfg.Redis.Enabled {
		return a.redis, nil
	}
	client, err := cache.NewRedis(ctx, a.cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redis = client
	return client, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", zap.Error(err))
		}
	}
}

func (a *app) assignmentService(ctx context.Context) (*service.AssignmentService, error) {
	policy, err := models.ParseConfirmedPolicy(a.cfg.Assignment.ConfirmedPolicy)
	if err != nil {
		return nil, err
	}
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	client, err := a.openRedis(ctx)
	if err != nil {
		return nil, err
	}

	cacheRepo := repository.NewCacheRepository(client, a.logger)
	state := service.NewCacheService(cacheRepo, a.metrics, a.cfg.Assignment.LockTTL, a.cfg.Assignment.CacheTTL, a.logger)
	return service.NewAssignmentService(
		repository.NewPracticeRepository(db),
		repository.NewProjectRepository(db),
		repository.NewRegisteredStudentRepository(db),
		repository.NewRequestRepository(db),
		repository.NewParticipationRepository(db),
		state,
		a.metrics,
		a.validate,
		a.logger,
		service.AssignmentConfig{Seed: a.cfg.Assignment.Seed, Policy: policy},
	), nil
}

func (a *app) Assign(ctx context.Context, opts assignOptions) error {
	svc, err := a.assignmentService(ctx)
	if err != nil {
		return err
	}
	if opts.PracticeID == "" {
		runs, err := svc.RunCurrent(ctx, opts.At)
		if err != nil {
			return err
		}
		return a.print(runs)
	}
	run, err := svc.Run(ctx, service.RunAssignmentRequest{PracticeID: opts.PracticeID, Seed: opts.Seed})
	if err != nil {
		return err
	}
	return a.print(run)
}

func (a *app) Serve(ctx context.Context) error {
	svc, err := a.assignmentService(ctx)
	if err != nil {
		return err
	}

	interval := time.Duration(0)
	if a.cfg.Assignment.Scheduled {
		interval = a.cfg.Assignment.Interval
	}
	scheduler := service.NewAssignmentScheduler(svc, service.SchedulerConfig{
		Interval:   interval,
		Workers:    1,
		MaxRetries: 3,
	}, a.logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	router := handler.NewRouter(handler.RouterDeps{
		APIPrefix:   a.cfg.APIPrefix,
		Logger:      a.logger,
		Metrics:     a.metrics,
		Ops:         handler.NewOpsHandler(a.metrics, a.db),
		Assignments: handler.NewAssignmentHandler(svc, scheduler),
		Docs:        a.cfg.Env != config.EnvProduction,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Sugar().Infow("server starting", "addr", srv.Addr, "env", a.cfg.Env, "scheduled", a.cfg.Assignment.Scheduled)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.logger.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (a *app) Seed(ctx context.Context, file string) error {
	fixture, err := service.LoadSeedFixture(file)
	if err != nil {
		return err
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}
	practices := repository.NewPracticeRepository(db)
	svc := service.NewSeedService(
		practices,
		repository.NewProjectRepository(db),
		repository.NewRegisteredStudentRepository(db),
		repository.NewRequestRepository(db),
		repository.NewParticipationRepository(db),
		a.validate,
		a.logger,
	)
	result, err := svc.Apply(ctx, fixture)
	if err != nil {
		return err
	}
	return a.print(result)
}

func (a *app) Roster(ctx context.Context, practiceID, format string) error {
	defaultFormat, err := export.ParseFormat(a.cfg.Roster.Format)
	if err != nil {
		return err
	}
	store, err := storage.NewLocalStorage(a.cfg.Roster.StorageDir)
	if err != nil {
		return err
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}
	svc := service.NewRosterService(
		repository.NewPracticeRepository(db),
		repository.NewParticipationRepository(db),
		store,
		defaultFormat,
		a.validate,
		a.logger,
	)
	result, err := svc.Export(ctx, service.RosterRequest{PracticeID: practiceID, Format: format})
	if err != nil {
		return err
	}
	return a.print(result)
}

func (a *app) Migrate(ctx context.Context) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	return database.RunMigrations(db.DB, a.logger)
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
