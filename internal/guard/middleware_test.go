package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/plantdash/plantdash/internal/session"
)

func newGuardedRouter(state session.State) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Middleware(DefaultRules(), func(c *gin.Context) (session.State, bool) {
		return state, true
	}, nil, zerolog.Nop()))

	ok := func(c *gin.Context) { c.String(http.StatusOK, "content") }
	r.GET("/", ok)
	r.GET("/login", ok)
	r.GET("/admin", ok)
	return r
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware_NeverRendersBeforeHydration(t *testing.T) {
	r := newGuardedRouter(session.State{IsAuthenticated: true, User: admin})

	for _, path := range []string{"/", "/admin"} {
		w := serve(r, path)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.NotContains(t, w.Body.String(), "content", path)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
	}
}

func TestMiddleware_RedirectsWhenLoggedOut(t *testing.T) {
	r := newGuardedRouter(session.State{IsHydrated: true})

	w := serve(r, "/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.NotContains(t, w.Body.String(), "content")
}

func TestMiddleware_PublicRoute(t *testing.T) {
	r := newGuardedRouter(session.State{})

	w := serve(r, "/login")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "content", w.Body.String())
}

func TestMiddleware_RendersWhenAuthenticated(t *testing.T) {
	r := newGuardedRouter(session.State{IsHydrated: true, IsAuthenticated: true, User: operator})

	w := serve(r, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "content", w.Body.String())

	w = serve(r, "/admin")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestMiddleware_AdminAllowed(t *testing.T) {
	r := newGuardedRouter(session.State{IsHydrated: true, IsAuthenticated: true, User: admin})

	w := serve(r, "/admin")
	assert.Equal(t, http.StatusOK, w.Code)
}
