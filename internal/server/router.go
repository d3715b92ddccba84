package server

import (
	"github.com/edstack/storacct/internal/account"
	"github.com/edstack/storacct/internal/auth"
	"github.com/edstack/storacct/internal/config"
	"github.com/edstack/storacct/internal/library"
	"github.com/edstack/storacct/internal/logger"
	"github.com/edstack/storacct/internal/metrics"
	"github.com/edstack/storacct/internal/upload"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config         config.Config
	Logger         *zap.Logger
	DB             *pgxpool.Pool
	ObjectStore    *minio.Client
	AccountRepo    *account.Repository
	UploadService  *upload.Service
	LibraryService *library.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(deps.Logger))

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	api.Use(auth.Middleware(deps.Config.Auth.AccessTokenSecret))

	if deps.AccountRepo != nil {
		account.RegisterRoutes(api, deps.AccountRepo)
	}
	if deps.UploadService != nil {
		upload.RegisterRoutes(api, deps.UploadService)
	}
	if deps.LibraryService != nil {
		library.RegisterRoutes(api, deps.LibraryService)
	}

	return router
}
