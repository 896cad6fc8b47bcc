// Package api exposes the booklet catalog over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/Lllllllleong/bookletflow/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RouterDeps are the process-scoped collaborators of the router.
type RouterDeps struct {
	Converter      Converter
	Catalog        Catalog
	Narrator       PageNarrator
	JWTSecret      string
	MaxUploadBytes int64
	ReaderLimiter  *middleware.RateLimiter
	BookletLimiter *middleware.RateLimiter
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	reader := router.Group("/reader")
	if deps.ReaderLimiter != nil {
		reader.Use(deps.ReaderLimiter.Middleware())
	}
	readerHandler := NewReaderHandler(deps.Catalog)
	{
		reader.GET("/ping", ping("reader"))
		reader.GET("/bookshelf", readerHandler.Bookshelf)
		reader.GET("/bookshelf/:doc_id", readerHandler.Booklet)
	}

	booklet := router.Group("/booklet")
	if deps.BookletLimiter != nil {
		booklet.Use(deps.BookletLimiter.Middleware())
	}
	booklet.GET("/ping", ping("booklet"))

	protected := booklet.Group("")
	protected.Use(middleware.Auth(deps.JWTSecret))
	bookletHandler := NewBookletHandler(deps.Converter, deps.Catalog, deps.Narrator, deps.MaxUploadBytes)
	{
		protected.POST("/upload", bookletHandler.Upload)
		protected.DELETE("/:doc_id", bookletHandler.Delete)
		protected.PATCH("/:doc_id", bookletHandler.Patch)
		protected.POST("/:doc_id/publish", bookletHandler.Publish)
		protected.POST("/:doc_id/pages/:page_num/narration", bookletHandler.Narrate)
	}
	return router
}

func ping(module string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "module": module})
	}
}
