package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantdash/plantdash/internal/storage"
)

// fakeAuthenticator returns a canned result or error
type fakeAuthenticator struct {
	result *LoginResult
	err    error
	calls  int
	block  chan struct{}
}

func (f *fakeAuthenticator) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func signToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()

	claims := TokenClaims{
		UserID: "user-123",
		Role:   role,
	}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func persistSession(t *testing.T, store storage.Store, token string, user User) {
	t.Helper()

	data, err := json.Marshal(user)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), KeyToken, token))
	require.NoError(t, store.Set(context.Background(), KeyUser, string(data)))
}

var testUser = User{ID: "user-123", Name: "Test User", Email: "test@example.com", Role: "operator"}

func TestHydrate_EmptyStorage(t *testing.T) {
	c := New(storage.NewMemoryStore(), &fakeAuthenticator{})

	c.Hydrate(context.Background())

	state := c.State()
	assert.True(t, state.IsHydrated)
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, c.Token())
}

func TestHydrate_ValidSession(t *testing.T) {
	store := storage.NewMemoryStore()
	token := signToken(t, "", time.Now().Add(time.Hour))
	persistSession(t, store, token, testUser)
	require.NoError(t, store.Set(context.Background(), KeyDarkMode, "true"))

	c := New(store, &fakeAuthenticator{})
	c.Hydrate(context.Background())

	state := c.State()
	assert.True(t, state.IsHydrated)
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "test@example.com", state.User.Email)
	assert.Equal(t, "operator", state.User.Role)
	assert.True(t, state.IsDarkMode)
	assert.Equal(t, token, c.Token())
}

func TestHydrate_RoleFromTokenClaim(t *testing.T) {
	store := storage.NewMemoryStore()
	user := testUser
	user.Role = ""
	persistSession(t, store, signToken(t, RoleAdmin, time.Time{}), user)

	c := New(store, &fakeAuthenticator{})
	c.Hydrate(context.Background())

	state := c.State()
	require.True(t, state.IsAuthenticated)
	assert.True(t, state.User.IsAdmin())
}

func TestHydrate_CorruptedContent(t *testing.T) {
	validToken := signToken(t, "", time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
		user  string
	}{
		{name: "user is not json", token: validToken, user: "{not json"},
		{name: "user is a json string", token: validToken, user: `"bob"`},
		{name: "user without identity", token: validToken, user: `{"name":"nobody"}`},
		{name: "token is garbage", token: "abc.def", user: `{"id":"user-123"}`},
		{name: "empty token", token: "", user: `{"id":"user-123"}`},
		{name: "expired token", token: signToken(t, "", time.Now().Add(-time.Minute)), user: `{"id":"user-123"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := storage.NewMemoryStore()
			require.NoError(t, store.Set(ctx, KeyToken, tt.token))
			require.NoError(t, store.Set(ctx, KeyUser, tt.user))

			c := New(store, &fakeAuthenticator{})
			c.Hydrate(ctx)

			state := c.State()
			assert.True(t, state.IsHydrated)
			assert.False(t, state.IsAuthenticated)
			assert.Nil(t, state.User)

			_, err := store.Get(ctx, KeyToken)
			assert.ErrorIs(t, err, storage.ErrNotFound, "malformed token should be removed")
		})
	}
}

func TestHydrate_TokenWithoutUser(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyToken, signToken(t, "", time.Time{})))

	c := New(store, &fakeAuthenticator{})
	c.Hydrate(ctx)

	assert.True(t, c.State().IsHydrated)
	assert.False(t, c.State().IsAuthenticated)
}

func TestHydrate_MalformedDarkModeIgnored(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	persistSession(t, store, signToken(t, "", time.Time{}), testUser)
	require.NoError(t, store.Set(ctx, KeyDarkMode, "sometimes"))

	c := New(store, &fakeAuthenticator{})
	c.Hydrate(ctx)

	assert.True(t, c.State().IsAuthenticated)
	assert.False(t, c.State().IsDarkMode)
}

func TestHydrate_RunsOnce(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	c := New(store, &fakeAuthenticator{})

	c.Hydrate(ctx)
	persistSession(t, store, signToken(t, "", time.Time{}), testUser)
	c.Hydrate(ctx)

	state := c.State()
	assert.True(t, state.IsHydrated)
	assert.False(t, state.IsAuthenticated, "second hydrate must not re-read storage")
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	token := signToken(t, "", time.Now().Add(time.Hour))
	auth := &fakeAuthenticator{result: &LoginResult{Token: token, User: testUser}}

	c := New(store, auth)
	c.Hydrate(ctx)

	state, err := c.Login(ctx, Credentials{Email: "test@example.com", Password: "password123"})
	require.NoError(t, err)

	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Error)
	assert.Equal(t, "user-123", state.User.ID)

	savedToken, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, token, savedToken)

	savedUser, err := store.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.Contains(t, savedUser, `"email":"test@example.com"`)

	// A fresh container sees the same session
	restored := New(store, auth)
	restored.Hydrate(ctx)
	assert.True(t, restored.State().IsAuthenticated)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	auth := &fakeAuthenticator{err: fmt.Errorf("login failed (status 401): %w", ErrAuthRejected)}

	c := New(store, auth)
	c.Hydrate(ctx)

	state, err := c.Login(ctx, Credentials{Email: "test@example.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrAuthRejected)

	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Equal(t, msgAuth, state.Error)
	assert.Equal(t, 0, store.Len())
}

func TestLogin_NetworkFailure(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthenticator{err: fmt.Errorf("failed to send request: %w", ErrNetwork)}

	c := New(storage.NewMemoryStore(), auth)
	state, err := c.Login(ctx, Credentials{Email: "a@b.c", Password: "x"})

	require.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, msgNetwork, state.Error)
	assert.False(t, state.IsAuthenticated)
}

func TestLogin_UnusableToken(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	auth := &fakeAuthenticator{result: &LoginResult{Token: "not-a-jwt", User: testUser}}

	c := New(store, auth)
	state, err := c.Login(ctx, Credentials{Email: "a@b.c", Password: "x"})

	require.Error(t, err)
	assert.False(t, state.IsAuthenticated)
	assert.Equal(t, msgInternal, state.Error)
	assert.Equal(t, 0, store.Len())
}

func TestLogin_ClearsPreviousError(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthenticator{err: ErrAuthRejected}
	c := New(storage.NewMemoryStore(), auth)

	state, _ := c.Login(ctx, Credentials{})
	require.NotEmpty(t, state.Error)

	auth.err = nil
	auth.result = &LoginResult{Token: signToken(t, "", time.Time{}), User: testUser}
	state, err := c.Login(ctx, Credentials{})
	require.NoError(t, err)
	assert.Empty(t, state.Error)
}

func TestLogin_InProgress(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthenticator{
		result: &LoginResult{Token: signToken(t, "", time.Time{}), User: testUser},
		block:  make(chan struct{}),
	}
	c := New(storage.NewMemoryStore(), auth)

	loading := make(chan struct{})
	unsubscribe := c.Subscribe(func(s State) {
		if s.IsLoading {
			close(loading)
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Login(ctx, Credentials{})
		done <- err
	}()

	<-loading
	unsubscribe()
	assert.True(t, c.State().IsLoading)

	_, err := c.Login(ctx, Credentials{})
	assert.ErrorIs(t, err, ErrLoginInProgress)

	close(auth.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, auth.calls)
	assert.True(t, c.State().IsAuthenticated)
}

func TestLogin_SharedLockAcrossContainers(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	auth := &fakeAuthenticator{
		result: &LoginResult{Token: signToken(t, "", time.Time{}), User: testUser},
		block:  make(chan struct{}),
	}
	lock := &sync.Mutex{}

	first := New(store, auth, WithLoginLock(lock))
	second := New(store, auth, WithLoginLock(lock))

	loading := make(chan struct{})
	unsubscribe := first.Subscribe(func(s State) {
		if s.IsLoading {
			close(loading)
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := first.Login(ctx, Credentials{})
		done <- err
	}()

	<-loading
	unsubscribe()

	state, err := second.Login(ctx, Credentials{})
	assert.ErrorIs(t, err, ErrLoginInProgress)
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Error)

	close(auth.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, auth.calls)

	// The lock is released once the first login finishes
	assert.True(t, lock.TryLock())
	lock.Unlock()
}

func TestLogout_ClearsStorageRegardlessOfState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, c *Container, store *storage.MemoryStore)
	}{
		{
			name: "never hydrated with persisted session",
			setup: func(t *testing.T, c *Container, store *storage.MemoryStore) {
				persistSession(t, store, signToken(t, "", time.Time{}), testUser)
			},
		},
		{
			name: "hydrated and authenticated",
			setup: func(t *testing.T, c *Container, store *storage.MemoryStore) {
				persistSession(t, store, signToken(t, "", time.Time{}), testUser)
				c.Hydrate(context.Background())
				require.True(t, c.State().IsAuthenticated)
			},
		},
		{
			name: "logged out already",
			setup: func(t *testing.T, c *Container, store *storage.MemoryStore) {
				c.Hydrate(context.Background())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := storage.NewMemoryStore()
			c := New(store, &fakeAuthenticator{})
			tt.setup(t, c, store)

			c.Logout(ctx)

			assert.False(t, c.State().IsAuthenticated)
			assert.Nil(t, c.State().User)
			assert.Empty(t, c.Token())
			_, err := store.Get(ctx, KeyToken)
			assert.ErrorIs(t, err, storage.ErrNotFound)
			_, err = store.Get(ctx, KeyUser)
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}

func TestLogout_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	persistSession(t, store, signToken(t, "", time.Time{}), testUser)

	c := New(store, &fakeAuthenticator{})
	c.Hydrate(ctx)

	notifications := 0
	c.Subscribe(func(State) { notifications++ })

	c.Logout(ctx)
	c.Logout(ctx)
	c.Logout(ctx)

	assert.Equal(t, 1, notifications)
	assert.False(t, c.State().IsAuthenticated)
}

func TestLogout_KeepsPreferences(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	persistSession(t, store, signToken(t, "", time.Time{}), testUser)
	require.NoError(t, store.Set(ctx, KeyDarkMode, "true"))

	c := New(store, &fakeAuthenticator{})
	c.Hydrate(ctx)
	c.Logout(ctx)

	dark, err := store.Get(ctx, KeyDarkMode)
	require.NoError(t, err)
	assert.Equal(t, "true", dark)
}

func TestToggleDarkMode_NoopWhenLoggedOut(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	c := New(store, &fakeAuthenticator{})
	c.Hydrate(ctx)

	before := c.State()
	notifications := 0
	c.Subscribe(func(State) { notifications++ })

	c.ToggleDarkMode(ctx)

	assert.Equal(t, before, c.State())
	assert.Equal(t, 0, notifications)
	_, err := store.Get(ctx, KeyDarkMode)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestToggleDarkMode_PersistsWhenAuthenticated(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	persistSession(t, store, signToken(t, "", time.Time{}), testUser)

	c := New(store, &fakeAuthenticator{})
	c.Hydrate(ctx)

	c.ToggleDarkMode(ctx)
	assert.True(t, c.State().IsDarkMode)
	v, err := store.Get(ctx, KeyDarkMode)
	require.NoError(t, err)
	assert.Equal(t, "true", v)

	c.ToggleDarkMode(ctx)
	assert.False(t, c.State().IsDarkMode)
	v, err = store.Get(ctx, KeyDarkMode)
	require.NoError(t, err)
	assert.Equal(t, "false", v)
}

func TestSetLanguage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	c := New(store, &fakeAuthenticator{})
	c.Hydrate(ctx)

	require.NoError(t, c.SetLanguage(ctx, "es"))
	assert.Equal(t, "es", c.State().Language)

	restored := New(store, &fakeAuthenticator{})
	restored.Hydrate(ctx)
	assert.Equal(t, "es", restored.State().Language)

	require.NoError(t, c.SetLanguage(ctx, ""))
	_, err := store.Get(ctx, KeyLanguage)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCheckExpiry(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	now := time.Now()
	persistSession(t, store, signToken(t, "", now.Add(time.Minute)), testUser)

	clock := now
	c := New(store, &fakeAuthenticator{}, WithClock(func() time.Time { return clock }))
	c.Hydrate(ctx)
	require.True(t, c.State().IsAuthenticated)

	assert.False(t, c.CheckExpiry(ctx))

	clock = now.Add(2 * time.Minute)
	assert.True(t, c.CheckExpiry(ctx))
	assert.False(t, c.State().IsAuthenticated)
	_, err := store.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.False(t, c.CheckExpiry(ctx))
}

func TestState_IsACopy(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	persistSession(t, store, signToken(t, "", time.Time{}), testUser)

	c := New(store, &fakeAuthenticator{})
	c.Hydrate(ctx)

	s := c.State()
	s.User.Role = RoleAdmin

	assert.Equal(t, "operator", c.State().User.Role)
}
