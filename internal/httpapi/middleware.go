package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"libraryCirculation/internal/auth"
	"libraryCirculation/internal/liberr"
	"libraryCirculation/internal/policy"
)

const requestIDHeader = "X-Request-ID"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if p, ok := auth.FromContext(c.Request.Context()); ok {
			attrs = append(attrs, "user_id", p.ID)
		}
		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request", attrs...)
	}
}

func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.ErrorContext(c.Request.Context(), "panic in handler", "request_id", c.GetString("request_id"), "panic", rec)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "kind": liberr.KindInternal.String()})
	})
}

func statusOf(k liberr.Kind) int {
	switch k {
	case liberr.KindNotFound:
		return http.StatusNotFound
	case liberr.KindInvalidState, liberr.KindConflict:
		return http.StatusConflict
	case liberr.KindForbidden:
		return http.StatusForbidden
	case liberr.KindInvalidInput:
		return http.StatusBadRequest
	case liberr.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope. Unclassified errors are logged and their
// details withheld from the client.
func (h *handler) fail(c *gin.Context, err error) {
	var le *liberr.Error
	if !errors.As(err, &le) || le.Kind == liberr.KindInternal {
		h.Logger.ErrorContext(c.Request.Context(), "request failed", "request_id", c.GetString("request_id"), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "kind": liberr.KindInternal.String()})
		return
	}
	c.JSON(statusOf(le.Kind), gin.H{"error": le.Reason, "kind": le.Kind.String()})
}

func (h *handler) badRequest(c *gin.Context, err error) {
	h.fail(c, liberr.Wrap(liberr.KindInvalidInput, "invalid request body", err))
}

// caller returns the identity set by auth.Middleware.
func caller(c *gin.Context) (policy.Caller, bool) {
	p, ok := auth.FromContext(c.Request.Context())
	if !ok {
		return policy.Caller{}, false
	}
	return p.Caller(), true
}
