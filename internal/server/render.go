package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plantdash/plantdash/internal/i18n"
	"github.com/plantdash/plantdash/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

func loadTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.UTC().Format("2006-01-02 15:04")
		},
		"has": func(list []string, v string) bool {
			for _, item := range list {
				if item == v {
					return true
				}
			}
			return false
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// pageData is the root value of every template
type pageData struct {
	TitleKey  string
	Lang      string
	Languages []string
	RootClass string
	State     session.State
	Path      string
	Error     string
	Flash     string
	Monitor   bool
	Data      any
}

// T translates key into the page language
func (p pageData) T(key string) string {
	return i18n.T(p.Lang, key)
}

func (s *Server) page(c *gin.Context, titleKey string) pageData {
	var state session.State
	if container := containerFrom(c); container != nil {
		state = container.State()
	}

	return pageData{
		TitleKey:  titleKey,
		Lang:      i18n.Negotiate(state.Language, c.GetHeader("Accept-Language")),
		Languages: i18n.Languages(),
		RootClass: rootClassesFrom(c),
		State:     state,
		Path:      c.Request.URL.Path,
		Monitor:   s.monitor != nil,
	}
}

// render refreshes the root class before executing the template, since
// the handler may have changed the session after page() was called
func (s *Server) render(c *gin.Context, status int, name string, p pageData) {
	p.RootClass = rootClassesFrom(c)
	if container := containerFrom(c); container != nil {
		p.State = container.State()
	}
	c.HTML(status, name, p)
}

func (s *Server) renderLoading(c *gin.Context) {
	s.render(c, http.StatusServiceUnavailable, "loading", s.page(c, "loading"))
}

// safeReturn keeps redirects on this site
func safeReturn(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return u.RequestURI()
}
