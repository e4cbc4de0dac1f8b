package session

// ActionType identifies a state transition
type ActionType int

const (
	ActionHydrated ActionType = iota
	ActionLoginStarted
	ActionLoginSucceeded
	ActionLoginFailed
	ActionLoggedOut
	ActionDarkModeSet
	ActionLanguageSet
)

func (t ActionType) String() string {
	switch t {
	case ActionHydrated:
		return "hydrated"
	case ActionLoginStarted:
		return "login_started"
	case ActionLoginSucceeded:
		return "login_succeeded"
	case ActionLoginFailed:
		return "login_failed"
	case ActionLoggedOut:
		return "logged_out"
	case ActionDarkModeSet:
		return "dark_mode_set"
	case ActionLanguageSet:
		return "language_set"
	default:
		return "unknown"
	}
}

// Action is a state transition request. Only the fields relevant to Type
// are read.
type Action struct {
	Type     ActionType
	User     *User
	Error    string
	DarkMode bool
	Language string
}

// Reduce returns the state that results from applying a to s. It is pure:
// persistence and side effects belong to the Container.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionHydrated:
		if s.IsHydrated {
			return s
		}
		s.IsHydrated = true
		s.User = a.User
		s.IsAuthenticated = a.User != nil
		s.IsDarkMode = a.DarkMode
		s.Language = a.Language

	case ActionLoginStarted:
		s.IsLoading = true
		s.Error = ""

	case ActionLoginSucceeded:
		s.IsLoading = false
		s.Error = ""
		s.User = a.User
		s.IsAuthenticated = a.User != nil

	case ActionLoginFailed:
		s.IsLoading = false
		s.Error = a.Error
		s.User = nil
		s.IsAuthenticated = false

	case ActionLoggedOut:
		s.User = nil
		s.IsAuthenticated = false
		s.IsLoading = false
		s.Error = ""

	case ActionDarkModeSet:
		if !s.IsAuthenticated {
			return s
		}
		s.IsDarkMode = a.DarkMode

	case ActionLanguageSet:
		s.Language = a.Language
	}

	return s
}
