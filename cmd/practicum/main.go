package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/practicum-api/pkg/config"
	"github.com/noah-isme/practicum-api/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return 1
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, logr, os.Stdout)
	defer a.close()

	cli := &commandLine{runner: a, out: os.Stdout, now: time.Now}
	if err := cli.run(ctx, os.Args); err != nil {
		if errors.Is(err, errHelp) {
			return 2
		}
		logr.Error("command failed", zap.Error(err))
		return 1
	}
	return 0
}
