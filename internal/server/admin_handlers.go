package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plantdash/plantdash/internal/models"
)

const adminSessionLimit = 50

type adminView struct {
	Count    int64
	Sessions []models.BrowserSession
}

// @Router /admin [get]
func (s *Server) adminPage(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := s.registry.Count(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to count browser sessions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	sessions, err := s.registry.List(ctx, adminSessionLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list browser sessions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	p := s.page(c, "admin.title")
	p.Data = adminView{Count: count, Sessions: sessions}
	s.render(c, http.StatusOK, "admin", p)
}
