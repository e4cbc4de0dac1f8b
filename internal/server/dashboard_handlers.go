package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plantdash/plantdash/internal/client"
	"github.com/plantdash/plantdash/internal/session"
)

type systemView struct {
	System     client.System
	Parameters []client.Parameter
}

type plantPage struct {
	Plant   *client.Plant
	Systems []systemView
}

// @Router / [get]
func (s *Server) dashboard(c *gin.Context) {
	container := containerFrom(c)

	plants, err := s.api.ListPlants(c.Request.Context(), container.Token())
	if err != nil {
		s.backendError(c, err, "dashboard.title")
		return
	}

	p := s.page(c, "dashboard.title")
	p.Data = plants
	s.render(c, http.StatusOK, "dashboard", p)
}

// @Router /plants/{id} [get]
func (s *Server) plantDetail(c *gin.Context) {
	ctx := c.Request.Context()
	token := containerFrom(c).Token()
	plantID := c.Param("id")

	plant, err := s.api.GetPlant(ctx, token, plantID)
	if err != nil {
		s.backendError(c, err, "dashboard.title")
		return
	}

	systems, err := s.api.ListSystems(ctx, token, plantID)
	if err != nil {
		s.backendError(c, err, "dashboard.title")
		return
	}

	views := make([]systemView, 0, len(systems))
	for _, system := range systems {
		params, err := s.api.ListParameters(ctx, token, system.ID)
		if err != nil {
			s.backendError(c, err, "dashboard.title")
			return
		}
		views = append(views, systemView{System: system, Parameters: params})
	}

	p := s.page(c, "dashboard.title")
	p.Data = plantPage{Plant: plant, Systems: views}
	s.render(c, http.StatusOK, "plant", p)
}

// backendError handles a failed backend call. A rejected token ends the
// session, so the next page load goes through the guard again.
func (s *Server) backendError(c *gin.Context, err error, titleKey string) {
	if errors.Is(err, session.ErrAuthRejected) {
		s.logger.Info().Err(err).Str("session_id", c.GetString(ctxSessionID)).Msg("Backend rejected session token")
		containerFrom(c).Logout(c.Request.Context())
		c.Redirect(http.StatusFound, "/login")
		return
	}

	status := http.StatusBadGateway
	if client.IsAPIError(err, http.StatusNotFound) {
		status = http.StatusNotFound
	}

	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Backend request failed")

	p := s.page(c, titleKey)
	p.Error = p.T("error.backend")
	s.render(c, status, "error", p)
}
