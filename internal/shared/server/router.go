package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gallery-backend/internal/collections"
	"gallery-backend/internal/files"
	"gallery-backend/internal/shared/config"
	"gallery-backend/internal/shared/metrics"
	"gallery-backend/internal/shared/server/middleware"
	"gallery-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config             config.Config
	CollectionsHandler *collections.Handler
	FilesHandler       *files.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", metrics.Handler())

	// The local backend serves stored objects directly; the remote backend
	// hands out presigned URLs instead.
	if deps.Config.StorageBackend == "local" {
		r.Static("/files", deps.Config.LocalStoreDir)
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.CollectionsHandler != nil {
		deps.CollectionsHandler.RegisterRoutes(api)
	}
	if deps.FilesHandler != nil {
		deps.FilesHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
