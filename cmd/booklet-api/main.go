package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/bookletflow/internal/api"
	"github.com/Lllllllleong/bookletflow/internal/config"
	"github.com/Lllllllleong/bookletflow/internal/gcp"
	"github.com/Lllllllleong/bookletflow/internal/logger"
	"github.com/Lllllllleong/bookletflow/internal/middleware"
	"github.com/Lllllllleong/bookletflow/internal/services"
	"github.com/gin-gonic/gin"
)

var (
	router  http.Handler
	once    sync.Once
	initErr error
)

func init() {
	logger.Init(logger.Config{Level: "info", Format: "json"})
	gin.SetMode(gin.ReleaseMode)

	functions.HTTP("BookletAPI", bookletAPI)
}

// main is required by the Go Functions Framework.
func main() {}

func setup() (http.Handler, error) {
	cfg, err := config.Load(gcp.GetEnv("CONFIG_PATH", ""))
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	app, err := services.NewApp(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	// Limiters live for the whole process so counts survive across requests.
	return api.NewRouter(api.RouterDeps{
		Converter:      app.Converter,
		Catalog:        app.Catalog,
		Narrator:       app.Narration,
		JWTSecret:      cfg.Auth.JWTSecret,
		MaxUploadBytes: cfg.Pipeline.MaxUploadBytes,
		ReaderLimiter:  middleware.NewRateLimiter(cfg.RateLimits.Reader.Limit, cfg.RateLimits.Reader.Window, cfg.RateLimits.Reader.Penalty),
		BookletLimiter: middleware.NewRateLimiter(cfg.RateLimits.Booklet.Limit, cfg.RateLimits.Booklet.Window, cfg.RateLimits.Booklet.Penalty),
	}), nil
}

func bookletAPI(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		router, initErr = setup()
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	router.ServeHTTP(w, r)
}
