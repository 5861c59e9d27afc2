package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/Ib-dI/ylang-creations/i18n"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "api.request_id"
	langKey         = "api.lang"
)

// requestID propagates the caller's request id or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"requestId", c.GetString(requestIDKey),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}
		logger.Log(c.Request.Context(), level, "Request", attrs...)
	}
}

// lang negotiates the response language once per request.
func lang(c *gin.Context) language.Tag {
	if v, ok := c.Get(langKey); ok {
		return v.(language.Tag)
	}
	tag := i18n.FromRequest(c.Request)
	c.Set(langKey, tag)
	return tag
}

func (s *Server) recover(c *gin.Context, v any) {
	s.logger.Error("Panic while serving request", "path", c.Request.URL.Path, "panic", v,
		"requestId", c.GetString(requestIDKey))
	abort(c, http.StatusInternalServerError, i18n.ErrInternal)
}
