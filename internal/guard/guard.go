// Package guard decides, from a session state, whether gated content may
// be rendered, must wait for hydration, or must redirect.
package guard

import (
	"github.com/plantdash/plantdash/internal/session"
)

// Phase is a step of the guard's state machine
type Phase int

const (
	AwaitingHydration Phase = iota
	Checking
	Redirecting
	Authorized
)

func (p Phase) String() string {
	switch p {
	case AwaitingHydration:
		return "awaiting_hydration"
	case Checking:
		return "checking"
	case Redirecting:
		return "redirecting"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Guard holds the redirect configuration of one protected route
type Guard struct {
	// FallbackPath is where unauthenticated visitors are sent
	FallbackPath string
	// AdminOnly restricts the route to users with AdminRole
	AdminOnly bool
	// AdminRole defaults to session.RoleAdmin
	AdminRole string
	// AdminFallbackPath is where authenticated non-admins are sent
	AdminFallbackPath string
}

// Decision is the outcome of evaluating a guard
type Decision struct {
	Phase  Phase
	Target string
}

// Evaluate runs the state machine to completion for s. It never returns
// Authorized while the session is not hydrated or a login is in flight.
func (g Guard) Evaluate(s session.State) Decision {
	phase := AwaitingHydration

	for {
		switch phase {
		case AwaitingHydration:
			if !s.IsHydrated || s.IsLoading {
				return Decision{Phase: AwaitingHydration}
			}
			phase = Checking

		case Checking:
			if !s.IsAuthenticated || s.User == nil {
				return Decision{Phase: Redirecting, Target: g.fallback()}
			}
			if g.AdminOnly && s.Role() != g.adminRole() {
				return Decision{Phase: Redirecting, Target: g.adminFallback()}
			}
			return Decision{Phase: Authorized}
		}
	}
}

func (g Guard) fallback() string {
	if g.FallbackPath == "" {
		return "/login"
	}
	return g.FallbackPath
}

func (g Guard) adminFallback() string {
	if g.AdminFallbackPath == "" {
		return "/"
	}
	return g.AdminFallbackPath
}

func (g Guard) adminRole() string {
	if g.AdminRole == "" {
		return session.RoleAdmin
	}
	return g.AdminRole
}

// Navigator performs the redirect side effect
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Pass is one render pass of a guarded view. Navigation happens at most
// once per pass no matter how many times Run is called.
type Pass struct {
	guard       Guard
	nav         Navigator
	navigations int
	last        Decision
}

// NewPass starts a render pass
func NewPass(g Guard, nav Navigator) *Pass {
	return &Pass{guard: g, nav: nav, last: Decision{Phase: AwaitingHydration}}
}

// Run evaluates s and, on the first redirect decision, navigates. A pass
// that has redirected stays in Redirecting.
func (p *Pass) Run(s session.State) Decision {
	if p.navigations > 0 {
		return p.last
	}

	d := p.guard.Evaluate(s)
	if d.Phase == Redirecting {
		p.navigations++
		p.nav.Navigate(d.Target)
	}
	p.last = d
	return d
}

// Navigations returns how many redirects the pass has issued
func (p *Pass) Navigations() int {
	return p.navigations
}
