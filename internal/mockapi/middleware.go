package mockapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ghostmonk/storyfeed/internal/logger"
	"github.com/ghostmonk/storyfeed/internal/telemetry"
)

// Gin context keys.
const (
	ctxKeyRequestID = "request_id"
	ctxKeyAuthed    = "authenticated"
)

// requestID tags every request with an id, echoing an inbound
// X-Request-ID when the caller sent one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// requestLogger logs one line per request, level keyed to the status.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", status),
			logger.Duration("duration", time.Since(start)),
			logger.String("request_id", c.GetString(ctxKeyRequestID)),
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request rejected", fields...)
		default:
			log.Debug("request served", fields...)
		}
	}
}

// recovery converts panics into a structured 500 so a handler bug never
// tears down the endpoint.
func recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panic",
					logger.Any("panic", r),
					logger.String("path", c.Request.URL.Path),
					logger.String("request_id", c.GetString(ctxKeyRequestID)),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, standardError{
					ErrorCode:   "SERVER_ERROR",
					UserMessage: "Something went wrong on our end. Please try again later.",
					RequestID:   c.GetString(ctxKeyRequestID),
				})
			}
		}()
		c.Next()
	}
}

// metrics records request counts and latency per method and route.
func metrics(rec *telemetry.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		rec.RecordRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// authenticator validates bearer tokens. An empty secret switches to
// permissive mode: any non-empty token passes, which keeps local demos
// usable without minting real JWTs.
type authenticator struct {
	secret string
	log    logger.Logger
}

// require rejects requests without a valid bearer token. Mutating routes
// use this.
func (a *authenticator) require() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, aborted := a.extract(c)
		if aborted {
			return
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header is missing",
			})
			return
		}
		if !a.valid(token) {
			a.abortInvalidToken(c)
			return
		}
		c.Set(ctxKeyAuthed, true)
		c.Next()
	}
}

// optional lets anonymous requests through but still rejects a token
// that is present and invalid. Read routes use this so an expired
// session surfaces instead of silently downgrading to public content.
func (a *authenticator) optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, aborted := a.extract(c)
		if aborted {
			return
		}
		if token == "" {
			c.Next()
			return
		}
		if !a.valid(token) {
			a.abortInvalidToken(c)
			return
		}
		c.Set(ctxKeyAuthed, true)
		c.Next()
	}
}

// extract pulls the bearer token out of the Authorization header. A
// header that is present but not in Bearer form aborts the request.
func (a *authenticator) extract(c *gin.Context) (token string, aborted bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) || len(header) == len(prefix) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Authorization header must be a Bearer token",
		})
		return "", true
	}
	return strings.TrimPrefix(header, prefix), false
}

func (a *authenticator) valid(token string) bool {
	if a.secret == "" {
		return token != ""
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.secret), nil
	})
	if err != nil {
		a.log.Debug("token rejected", logger.Error(err))
		return false
	}
	return parsed.Valid
}

func (a *authenticator) abortInvalidToken(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, standardError{
		ErrorCode:   "AUTHENTICATION_EXPIRED",
		UserMessage: "Your session has expired. Please log in again.",
		Details:     &errorDetails{Suggestions: []string{"Log in again."}},
		RequestID:   c.GetString(ctxKeyRequestID),
	})
}

func isAuthed(c *gin.Context) bool {
	return c.GetBool(ctxKeyAuthed)
}
