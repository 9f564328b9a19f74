package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	internalmiddleware "github.com/noah-isme/practicum-api/internal/middleware"
	"github.com/noah-isme/practicum-api/internal/service"
	"github.com/noah-isme/practicum-api/pkg/logger"
)

const metricsPath = "/metrics"

// RouterDeps carries everything the ops router serves.
type RouterDeps struct {
	APIPrefix   string
	Logger      *zap.Logger
	Metrics     *service.MetricsService
	Ops         *OpsHandler
	Assignments *AssignmentHandler
	// Docs mounts the Swagger UI under /docs.
	Docs        bool
}

// NewRouter builds the gin engine of the serve command.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(internalmiddleware.Metrics(deps.Metrics, metricsPath))

	r.GET("/health", deps.Ops.Health)
	r.GET("/ready", deps.Ops.Ready)
	r.GET(metricsPath, deps.Ops.Prometheus)
	if deps.Docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.APIPrefix)
	api.GET("/runs/:practiceID/latest", deps.Assignments.Latest)
	api.POST("/runs/:practiceID", deps.Assignments.Trigger)
	return r
}
