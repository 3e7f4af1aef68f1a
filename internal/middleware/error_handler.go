package middleware

import (
	"net/http"
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// withStaff adds the request id, the matched route and, once JWTAuth has run,
// the staff member behind the request.
func withStaff(ev *zerolog.Event, c *gin.Context) *zerolog.Event {
	ev = ev.Str("request_id", c.GetString(RequestIDKey)).Str("route", c.FullPath())
	if claims := GetClaims(c); claims != nil {
		ev = ev.Str("username", claims.Username).Str("role", claims.Role)
	}
	return ev
}

// ErrorHandler turns errors attached with c.Error into a generic 500 body.
// The underlying error is only logged.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		withStaff(log.Error(), c).
			Str("method", c.Request.Method).
			Err(c.Errors.Last().Err).
			Msg("unhandled error")

		c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("Internal server error"))
	}
}

// Recovery converts panics into 500 responses and logs the panic value.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				withStaff(log.Error(), c).
					Interface("panic", r).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("Internal server error"))
			}
		}()
		c.Next()
	}
}

// Logger writes one line per request. 5xx responses log at error level.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Error()
		}
		withStaff(ev, c).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
