package api

import (
	"errors"
	"net/http"

	"github.com/Lllllllleong/bookletflow/internal/logger"
	"github.com/Lllllllleong/bookletflow/internal/models"
	"github.com/gin-gonic/gin"
)

// statusFor maps a booklet error kind to an HTTP status.
func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindInputValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	kind := models.KindOf(err)
	status := statusFor(kind)

	message := "Internal server error"
	switch kind {
	case models.KindInputValidation:
		message = err.Error()
	case models.KindNotFound:
		message = "Booklet not found"
	case models.KindForbidden:
		message = "Booklet belongs to another owner"
	case models.KindStorage:
		message = "Storage failure"
		var be *models.BookletError
		if errors.As(err, &be) && be.Message == models.CleanupIncomplete {
			message = "Booklet deletion failed, cleanup may be incomplete"
		}
	case models.KindExtraction:
		message = "Failed to read the PDF"
	case models.KindSynthesis, models.KindDescription, models.KindCleaning:
		message = "Failed to convert the booklet"
	}
	if status >= 500 {
		logger.WithContext(c.Request.Context()).Error("Request failed.", "kind", kind, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message, "kind": kind})
}
