// Package session holds the authenticated session of a dashboard client:
// the user, the hydration/loading/error flags and the display preferences,
// persisted through a storage.Store.
package session

// RoleAdmin is the role value that unlocks admin-only routes
const RoleAdmin = "admin"

// Persisted keys
const (
	KeyToken    = "plantdash.token"
	KeyUser     = "plantdash.user"
	KeyDarkMode = "plantdash.darkMode"
	KeyLanguage = "plantdash.language"
)

// AllKeys lists every key the container may persist
var AllKeys = []string{KeyToken, KeyUser, KeyDarkMode, KeyLanguage}

// User is the authenticated account as returned by the backend
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// State is a snapshot of the session. Values are copied out of the
// container; mutating a State has no effect on the container.
type State struct {
	User            *User
	IsAuthenticated bool
	IsLoading       bool
	IsHydrated      bool
	Error           string
	IsDarkMode      bool
	Language        string
}

// Role returns the user's role, or "" when logged out
func (s State) Role() string {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Credentials are the values submitted by a login form
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is a successful authentication response
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
