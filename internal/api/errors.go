package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homekey/stage-tracker/internal/store"
	"github.com/homekey/stage-tracker/pkg/observability"
)

const (
	msgInvalidJSON    = "invalid JSON payload"
	msgInvalidRequest = "invalid request"
	msgInternal       = "internal server error"
)

// respondError maps a store error onto an HTTP response. notFound is the body
// message for a missing record; when empty a missing record is a server error,
// as for list operations. The store's own message is logged, never returned.
func respondError(c *gin.Context, logger observability.Logger, err error, notFound string) {
	fields := map[string]interface{}{
		"method":     c.Request.Method,
		"path":       c.FullPath(),
		"request_id": c.GetString(requestIDKey),
		"error":      err,
	}

	switch {
	case errors.Is(err, store.ErrAuthentication):
		logger.Error("Store authentication failed", fields)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
	case notFound != "" && errors.Is(err, store.ErrNotFound):
		logger.Debug("Record not found", fields)
		c.JSON(http.StatusNotFound, ErrorResponse{Error: notFound})
	case errors.Is(err, store.ErrInvalidInput):
		logger.Warn("Store rejected request", fields)
		resp := ErrorResponse{Error: msgInvalidRequest}
		var apiErr *store.APIError
		if errors.As(err, &apiErr) {
			resp.Fields = apiErr.FieldMessages()
		}
		c.JSON(http.StatusBadRequest, resp)
	default:
		logger.Error("Store request failed", fields)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
	}
}
