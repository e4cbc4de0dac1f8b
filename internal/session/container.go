package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/plantdash/plantdash/internal/storage"
)

// Authenticator exchanges credentials for a token and user.
// Implementations classify failures with ErrNetwork and ErrAuthRejected.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
}

// Container owns one client's session state. It is passed explicitly to
// the code that needs it; every change goes through Reduce.
type Container struct {
	store storage.Store
	auth  Authenticator
	log   zerolog.Logger
	now   func() time.Time
	lock  LoginLock

	hydrateOnce sync.Once

	mu      sync.RWMutex
	state   State
	token   string
	subs    map[int]func(State)
	nextSub int
}

// Option configures a Container
type Option func(*Container)

// WithLogger sets the container's logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Container) {
		c.log = log
	}
}

// WithClock overrides the time source used for token expiry
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		c.now = now
	}
}

// LoginLock is shared by containers over the same persisted session so
// that only one of them logs in at a time. *sync.Mutex satisfies it.
type LoginLock interface {
	TryLock() bool
	Unlock()
}

// WithLoginLock makes Login also hold l for the duration of the backend
// call
func WithLoginLock(l LoginLock) Option {
	return func(c *Container) {
		c.lock = l
	}
}

// New creates a container with an empty, unhydrated state
func New(store storage.Store, auth Authenticator, opts ...Option) *Container {
	c := &Container{
		store: store,
		auth:  auth,
		log:   zerolog.Nop(),
		now:   time.Now,
		subs:  make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state
func (c *Container) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// Token returns the bearer token of the authenticated user, or ""
func (c *Container) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.state.IsAuthenticated {
		return ""
	}
	return c.token
}

// Subscribe registers fn to be called with the new state after every
// change. The returned function removes the subscription.
func (c *Container) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// update runs fn under the write lock. When fn reports a change the
// subscribers are notified, outside the lock, with the resulting state.
func (c *Container) update(fn func() bool) (State, bool) {
	c.mu.Lock()
	changed := fn()
	next := c.state.clone()
	var subs []func(State)
	if changed {
		subs = make([]func(State), 0, len(c.subs))
		for _, s := range c.subs {
			subs = append(subs, s)
		}
	}
	c.mu.Unlock()

	for _, s := range subs {
		s(next.clone())
	}
	return next, changed
}

// Hydrate restores the persisted session. Only the first call has an
// effect. Missing or malformed data leaves the session logged out; the
// session is marked hydrated in every case.
func (c *Container) Hydrate(ctx context.Context) {
	c.hydrateOnce.Do(func() {
		user, token, err := c.readSession(ctx)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				c.log.Warn().Err(err).Msg("Discarding persisted session")
				if errors.Is(err, errMalformedState) {
					if err := storage.Purge(ctx, c.store, KeyToken, KeyUser); err != nil {
						c.log.Warn().Err(err).Msg("Failed to remove malformed session")
					}
				}
			}
			user, token = nil, ""
		}

		dark := c.readBool(ctx, KeyDarkMode)
		lang := c.readString(ctx, KeyLanguage)

		state, _ := c.update(func() bool {
			if user != nil {
				c.token = token
			}
			c.state = Reduce(c.state, Action{
				Type:     ActionHydrated,
				User:     user,
				DarkMode: dark,
				Language: lang,
			})
			return true
		})

		c.log.Debug().
			Bool("authenticated", state.IsAuthenticated).
			Bool("dark_mode", state.IsDarkMode).
			Msg("Session hydrated")
	})
}

// readSession loads and validates the persisted token and user
func (c *Container) readSession(ctx context.Context) (*User, string, error) {
	token, err := c.store.Get(ctx, KeyToken)
	if err != nil {
		return nil, "", err
	}

	raw, err := c.store.Get(ctx, KeyUser)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: token without user", errMalformedState)
	}
	if err != nil {
		return nil, "", err
	}

	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, "", fmt.Errorf("%w: %v", errMalformedState, err)
	}
	if user.ID == "" && user.Email == "" {
		return nil, "", fmt.Errorf("%w: user has no identity", errMalformedState)
	}

	claims, err := ParseToken(token)
	if err != nil {
		return nil, "", err
	}
	if claims.Expired(c.now()) {
		return nil, "", fmt.Errorf("%w: token expired", errMalformedState)
	}
	if user.Role == "" {
		user.Role = claims.Role
	}

	return &user, token, nil
}

func (c *Container) readString(ctx context.Context, key string) string {
	v, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.Warn().Err(err).Str("key", key).Msg("Failed to read preference")
		}
		return ""
	}
	return v
}

func (c *Container) readBool(ctx context.Context, key string) bool {
	v := c.readString(ctx, key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		c.log.Warn().Str("key", key).Str("value", v).Msg("Ignoring malformed preference")
		return false
	}
	return b
}

// Login authenticates with the backend and persists the session. Failures
// are recorded in State.Error and returned.
func (c *Container) Login(ctx context.Context, creds Credentials) (State, error) {
	if c.lock != nil {
		if !c.lock.TryLock() {
			return c.State(), ErrLoginInProgress
		}
		defer c.lock.Unlock()
	}

	state, started := c.update(func() bool {
		if c.state.IsLoading {
			return false
		}
		c.state = Reduce(c.state, Action{Type: ActionLoginStarted})
		return true
	})
	if !started {
		return state, ErrLoginInProgress
	}

	result, err := c.auth.Login(ctx, creds)
	if err == nil {
		err = c.persistLogin(ctx, result)
	}
	if err != nil {
		state, _ := c.update(func() bool {
			c.token = ""
			c.state = Reduce(c.state, Action{Type: ActionLoginFailed, Error: ErrorMessage(err)})
			return true
		})
		c.log.Warn().Err(err).Str("email", creds.Email).Msg("Login failed")
		return state, err
	}

	user := result.User
	state, _ = c.update(func() bool {
		c.token = result.Token
		c.state = Reduce(c.state, Action{Type: ActionLoginSucceeded, User: &user})
		return true
	})

	c.log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in")
	return state, nil
}

// persistLogin validates the login result and writes token and user. On a
// partial write nothing is left behind.
func (c *Container) persistLogin(ctx context.Context, result *LoginResult) error {
	claims, err := ParseToken(result.Token)
	if err != nil {
		return fmt.Errorf("backend returned an unusable token: %w", err)
	}
	if result.User.Role == "" {
		result.User.Role = claims.Role
	}

	data, err := json.Marshal(result.User)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := c.store.Set(ctx, KeyToken, result.Token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	if err := c.store.Set(ctx, KeyUser, string(data)); err != nil {
		_ = c.store.Remove(ctx, KeyToken)
		return fmt.Errorf("failed to persist user: %w", err)
	}

	return nil
}

// Logout clears the session in memory and in storage. It always succeeds;
// storage failures are logged.
func (c *Container) Logout(ctx context.Context) {
	if err := storage.Purge(ctx, c.store, KeyToken, KeyUser); err != nil {
		c.log.Warn().Err(err).Msg("Failed to clear persisted session")
	}

	_, changed := c.update(func() bool {
		if !c.state.IsAuthenticated && c.state.User == nil && c.token == "" {
			return false
		}
		c.token = ""
		c.state = Reduce(c.state, Action{Type: ActionLoggedOut})
		return true
	})

	if changed {
		c.log.Info().Msg("User logged out")
	}
}

// ToggleDarkMode flips the dark-mode preference of an authenticated
// session and persists it. It does nothing when logged out.
func (c *Container) ToggleDarkMode(ctx context.Context) {
	var dark bool
	_, changed := c.update(func() bool {
		if !c.state.IsAuthenticated {
			return false
		}
		dark = !c.state.IsDarkMode
		c.state = Reduce(c.state, Action{Type: ActionDarkModeSet, DarkMode: dark})
		return true
	})
	if !changed {
		return
	}

	if err := c.store.Set(ctx, KeyDarkMode, strconv.FormatBool(dark)); err != nil {
		c.log.Warn().Err(err).Msg("Failed to persist dark mode")
	}
}

// SetLanguage records the display language. An empty tag clears it.
func (c *Container) SetLanguage(ctx context.Context, lang string) error {
	c.update(func() bool {
		if c.state.Language == lang {
			return false
		}
		c.state = Reduce(c.state, Action{Type: ActionLanguageSet, Language: lang})
		return true
	})

	if lang == "" {
		return c.store.Remove(ctx, KeyLanguage)
	}
	if err := c.store.Set(ctx, KeyLanguage, lang); err != nil {
		return fmt.Errorf("failed to persist language: %w", err)
	}
	return nil
}

// CheckExpiry logs the session out when its token has expired. It
// reports whether a logout happened.
func (c *Container) CheckExpiry(ctx context.Context) bool {
	token := c.Token()
	if token == "" {
		return false
	}

	claims, err := ParseToken(token)
	if err == nil && !claims.Expired(c.now()) {
		return false
	}

	c.log.Info().Msg("Session token expired")
	c.Logout(ctx)
	return true
}
