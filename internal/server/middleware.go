package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/plantdash/plantdash/internal/session"
	"github.com/plantdash/plantdash/internal/theme"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxRequestID   = "request_id"
	ctxSessionID   = "session_id"
	ctxContainer   = "session_container"
	ctxRootClasses = "root_classes"
)

// requestIDMiddleware reuses a sane incoming X-Request-ID or assigns one
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(ctxRequestID)).
			Str("session_id", c.GetString(ctxSessionID)).
			Msg("HTTP request")
	}
}

// sessionMiddleware attaches the browser session to the request. A missing,
// tampered or swept cookie starts a new session. The container is
// hydrated before the guard sees it.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, ok := s.readSessionCookie(c)
		renewed := false
		if ok {
			found, touched, err := s.registry.Touch(ctx, id)
			if err != nil {
				s.logger.Error().Err(err).Str("session_id", id).Msg("Failed to touch browser session")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
			ok, renewed = found, touched
		}

		if !ok {
			bs, err := s.registry.Create(ctx, c.Request.UserAgent())
			if err != nil {
				s.logger.Error().Err(err).Msg("Failed to create browser session")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
			id = bs.ID
			renewed = true
		}

		// The cookie lifetime slides with LastSeenAt
		if renewed {
			if err := s.setSessionCookie(c, id); err != nil {
				s.logger.Error().Err(err).Str("session_id", id).Msg("Failed to set session cookie")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
		}

		container := s.registry.Container(id, s.api)
		classes := theme.NewClassList()
		unbind := theme.Bind(container, classes)
		defer unbind()

		container.Hydrate(ctx)
		container.CheckExpiry(ctx)

		c.Set(ctxSessionID, id)
		c.Set(ctxContainer, container)
		c.Set(ctxRootClasses, classes)
		c.Next()
	}
}

// sessionState feeds the guard
func sessionState(c *gin.Context) (session.State, bool) {
	container := containerFrom(c)
	if container == nil {
		return session.State{}, false
	}
	return container.State(), true
}

func containerFrom(c *gin.Context) *session.Container {
	v, ok := c.Get(ctxContainer)
	if !ok {
		return nil
	}
	container, _ := v.(*session.Container)
	return container
}

func rootClassesFrom(c *gin.Context) string {
	v, ok := c.Get(ctxRootClasses)
	if !ok {
		return ""
	}
	classes, _ := v.(*theme.ClassList)
	if classes == nil {
		return ""
	}
	return classes.String()
}
