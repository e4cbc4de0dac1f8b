package guard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/plantdash/plantdash/internal/session"
)

// StateFunc resolves the session state of the current request
type StateFunc func(c *gin.Context) (session.State, bool)

// LoadingFunc renders the placeholder shown while a session is hydrating
type LoadingFunc func(c *gin.Context)

// Middleware gates every request by the rule matching its path. Requests
// without a matching rule, or matching a public rule, pass through.
func Middleware(rules *RuleSet, state StateFunc, loading LoadingFunc, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rule, ok := rules.Match(c.Request.URL.Path)
		if !ok || rule.Public {
			c.Next()
			return
		}

		s, ok := state(c)
		if !ok {
			// No session attached to the request yet
			s = session.State{}
		}

		pass := NewPass(rule.Guard(), NavigatorFunc(func(target string) {
			log.Debug().
				Str("path", c.Request.URL.Path).
				Str("target", target).
				Msg("Guard redirect")
			c.Redirect(http.StatusFound, target)
		}))

		switch d := pass.Run(s); d.Phase {
		case Authorized:
			c.Next()
		case Redirecting:
			c.Abort()
		default:
			c.Header("Retry-After", "1")
			if loading != nil {
				loading(c)
			} else {
				c.String(http.StatusServiceUnavailable, "Loading...")
			}
			c.Abort()
		}
	}
}
