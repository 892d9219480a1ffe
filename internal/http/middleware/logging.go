// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the request ID injector, structured access logging and
// a panic-safe recovery handler:
//
//   - RequestID() makes sure every request carries a correlation ID,
//     propagated via X-Request-ID and stored in the Gin context.
//   - Logger() emits one structured access log per request and attaches a
//     request-scoped zerolog.Logger for handlers and services.
//   - Recovery() converts panics into JSON 500 responses carrying the
//     correlation ID and logs the stack.
//   - LoggerFrom() returns the request-scoped logger, or a global fallback.
//
// Recommended order: RequestID, Logger (or RedactingLogger), Recovery.
package middleware

import (
	"net/http"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// HeaderRequestID propagates the correlation ID.
	HeaderRequestID = "X-Request-ID"
	// HeaderUserID identifies the caller on reaction removal.
	HeaderUserID = "X-User-ID"

	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// loggerKey is the Gin context key of the request-scoped logger.
	loggerKey = "logger"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
	// maxRequestIDLength caps accepted inbound correlation IDs.
	maxRequestIDLength = 128
)

// requestIDPattern limits inbound IDs to characters that are safe in logs
// and headers.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// RequestID reuses a well-formed inbound X-Request-ID or generates a UUIDv4.
// The ID is echoed on the response and stored in the Gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" || len(rid) > maxRequestIDLength || !requestIDPattern.MatchString(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(HeaderRequestID, rid)
		c.Next()
	}
}

// GetRequestID returns the correlation ID set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	return asString(v)
}

// requestLogger builds the request-scoped logger and stores it on c.
func requestLogger(c *gin.Context, query string) zerolog.Logger {
	path := c.FullPath()
	if path == "" {
		// Fallback when route not matched / 404.
		path = c.Request.URL.Path
	}
	l := log.With().
		Str("request_id", GetRequestID(c)).
		Str("method", c.Request.Method).
		Str("path", path).
		Str("announcement_id", c.Param("id")).
		Str("remote_ip", c.ClientIP()).
		Str("user_agent", c.Request.UserAgent()).
		Str("query", truncate(query, maxQueryLogLength)).
		// ContentLength can be -1 if unknown.
		Int64("bytes_in", c.Request.ContentLength).
		Logger()
	c.Set(loggerKey, &l)
	return l
}

// logOutcome emits the access log line at a level chosen by outcome: error
// for 5xx or collected Gin errors, warn for 4xx, info otherwise.
func logOutcome(c *gin.Context, l zerolog.Logger, start time.Time) {
	status := c.Writer.Status()
	ev := l.With().
		Int("status", status).
		Dur("latency", time.Since(start)).
		Int("bytes_out", c.Writer.Size()).
		Logger()

	switch {
	case len(c.Errors) > 0:
		ev.Error().Str("errors", c.Errors.String()).Msg("request")
	case status >= http.StatusInternalServerError:
		ev.Error().Msg("request")
	case status >= http.StatusBadRequest:
		ev.Warn().Msg("request")
	default:
		ev.Info().Msg("request")
	}
}

// Logger writes a structured access log for each request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := requestLogger(c, c.Request.URL.RawQuery)
		c.Next()
		logOutcome(c, l, start)
	}
}

// Recovery intercepts panics, logs a stack trace, and returns a JSON 500
// in the standard error envelope when nothing has been written yet.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid := GetRequestID(c)
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", rid).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header(HeaderRequestID, rid)
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": rid,
						"code":       "internal_error",
						"message":    "Internal Server Error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger, or a fallback without
// request fields. Callers can use the result without nil checks.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate caps s at max bytes and appends an ellipsis. A max <= 0 disables
// truncation. Byte-based, which is fine for logs.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
