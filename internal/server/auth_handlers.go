package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/plantdash/plantdash/internal/i18n"
	"github.com/plantdash/plantdash/internal/session"
)

// LoginForm is the posted login form
type LoginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

type loginPage struct {
	Email string
	Next  string
}

// SessionResponse describes the browser session without the token
type SessionResponse struct {
	SessionID       string        `json:"session_id"`
	User            *session.User `json:"user"`
	IsAuthenticated bool          `json:"is_authenticated"`
	IsHydrated      bool          `json:"is_hydrated"`
	IsDarkMode      bool          `json:"is_dark_mode"`
	Language        string        `json:"language"`
}

// @Router /login [get]
func (s *Server) showLogin(c *gin.Context) {
	next := safeReturn(c.Query("next"))
	if containerFrom(c).State().IsAuthenticated {
		c.Redirect(http.StatusFound, next)
		return
	}

	p := s.page(c, "login.title")
	p.Data = loginPage{Next: next}
	s.render(c, http.StatusOK, "login", p)
}

// @Router /login [post]
func (s *Server) login(c *gin.Context) {
	container := containerFrom(c)

	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		p := s.page(c, "login.title")
		p.Error = p.T("login.invalid")
		p.Data = loginPage{Email: form.Email, Next: safeReturn(form.Next)}
		s.render(c, http.StatusBadRequest, "login", p)
		return
	}

	creds := session.Credentials{
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
	}

	state, err := container.Login(c.Request.Context(), creds)
	if err != nil {
		status, key := loginFailure(err)
		s.logger.Warn().
			Err(err).
			Str("email", creds.Email).
			Str("session_id", c.GetString(ctxSessionID)).
			Msg("Login failed")

		p := s.page(c, "login.title")
		p.Error = p.T(key)
		p.Data = loginPage{Email: creds.Email, Next: safeReturn(form.Next)}
		s.render(c, status, "login", p)
		return
	}

	s.logger.Info().
		Str("user_id", state.User.ID).
		Str("role", state.Role()).
		Str("session_id", c.GetString(ctxSessionID)).
		Msg("User logged in")

	c.Redirect(http.StatusSeeOther, safeReturn(form.Next))
}

// loginFailure maps a login error to a status and a catalog key
func loginFailure(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrAuthRejected):
		return http.StatusUnauthorized, "login.failed.auth"
	case errors.Is(err, session.ErrNetwork):
		return http.StatusBadGateway, "login.failed.network"
	case errors.Is(err, session.ErrLoginInProgress):
		return http.StatusConflict, "login.failed.busy"
	default:
		return http.StatusBadGateway, "login.failed.internal"
	}
}

// @Router /logout [post]
func (s *Server) logout(c *gin.Context) {
	containerFrom(c).Logout(c.Request.Context())
	c.Redirect(http.StatusSeeOther, "/login")
}

// @Router /theme/toggle [post]
func (s *Server) toggleTheme(c *gin.Context) {
	containerFrom(c).ToggleDarkMode(c.Request.Context())
	c.Redirect(http.StatusSeeOther, safeReturn(c.PostForm("return_to")))
}

// @Router /lang [post]
func (s *Server) setLanguage(c *gin.Context) {
	lang, ok := i18n.Normalize(c.PostForm("lang"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported language"})
		return
	}

	if err := containerFrom(c).SetLanguage(c.Request.Context(), lang); err != nil {
		s.logger.Error().Err(err).Str("session_id", c.GetString(ctxSessionID)).Msg("Failed to set language")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.Redirect(http.StatusSeeOther, safeReturn(c.PostForm("return_to")))
}

// @Summary Current browser session
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /api/session [get]
func (s *Server) getSession(c *gin.Context) {
	state := containerFrom(c).State()
	c.JSON(http.StatusOK, SessionResponse{
		SessionID:       c.GetString(ctxSessionID),
		User:            state.User,
		IsAuthenticated: state.IsAuthenticated,
		IsHydrated:      state.IsHydrated,
		IsDarkMode:      state.IsDarkMode,
		Language:        state.Language,
	})
}
