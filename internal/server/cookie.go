package server

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"

	"github.com/plantdash/plantdash/internal/config"
	"github.com/plantdash/plantdash/internal/registry"
)

const (
	cookieKeyInfo  = "plantdash session cookie v1"
	sessionIDValue = "sid"
)

// newCookieStore creates the signed cookie store carrying the browser
// session id. The hash key is derived from SESSION_SECRET.
func newCookieStore(cfg config.SessionConfig) (*sessions.CookieStore, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session secret is empty")
	}

	hashKey := make([]byte, 64)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(cfg.Secret), nil, []byte(cookieKeyInfo)), hashKey); err != nil {
		return nil, fmt.Errorf("failed to derive cookie key: %w", err)
	}

	store := sessions.NewCookieStore(hashKey)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	// Sets both the cookie Max-Age and the signed timestamp window
	store.MaxAge(int(cfg.TTL.Seconds()))
	return store, nil
}

// readSessionID returns the session id of a valid, unexpired cookie
func readSessionID(store *sessions.CookieStore, name string, r *http.Request) (string, bool) {
	sess, err := store.New(r, name)
	if err != nil || sess.IsNew {
		return "", false
	}

	id, _ := sess.Values[sessionIDValue].(string)
	if !registry.ValidID(id) {
		return "", false
	}
	return id, true
}

// writeSessionID issues a fresh cookie for id
func writeSessionID(store *sessions.CookieStore, name string, w http.ResponseWriter, r *http.Request, id string) error {
	sess := sessions.NewSession(store, name)
	opts := *store.Options
	sess.Options = &opts
	sess.Values[sessionIDValue] = id

	if err := store.Save(r, w, sess); err != nil {
		return fmt.Errorf("failed to save session cookie: %w", err)
	}
	return nil
}

func (s *Server) readSessionCookie(c *gin.Context) (string, bool) {
	return readSessionID(s.cookies, s.config.Sessions.CookieName, c.Request)
}

func (s *Server) setSessionCookie(c *gin.Context, id string) error {
	return writeSessionID(s.cookies, s.config.Sessions.CookieName, c.Writer, c.Request, id)
}
