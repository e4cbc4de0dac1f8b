package theme

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantdash/plantdash/internal/session"
	"github.com/plantdash/plantdash/internal/storage"
)

type stubAuth struct {
	result *session.LoginResult
}

func (s *stubAuth) Login(ctx context.Context, creds session.Credentials) (*session.LoginResult, error) {
	return s.result, nil
}

func TestDarkEnabled(t *testing.T) {
	tests := []struct {
		authenticated bool
		dark          bool
		want          bool
	}{
		{false, false, false},
		{false, true, false},
		{true, false, false},
		{true, true, true},
	}

	for _, tt := range tests {
		got := DarkEnabled(session.State{IsAuthenticated: tt.authenticated, IsDarkMode: tt.dark})
		assert.Equal(t, tt.want, got, "authenticated=%v dark=%v", tt.authenticated, tt.dark)
	}
}

func TestBind_FollowsSession(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, session.KeyDarkMode, "true"))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("k"))
	require.NoError(t, err)

	c := session.New(store, &stubAuth{result: &session.LoginResult{Token: token, User: session.User{ID: "u1"}}})
	root := NewClassList("app")
	unbind := Bind(c, root)
	defer unbind()

	assert.False(t, root.Has(DarkClass), "not hydrated yet")

	// Dark preference persisted but no session: stays light
	c.Hydrate(ctx)
	assert.False(t, root.Has(DarkClass))

	_, err = c.Login(ctx, session.Credentials{Email: "u1@example.com", Password: "x"})
	require.NoError(t, err)
	assert.True(t, root.Has(DarkClass))
	assert.Equal(t, "app dark", root.String())

	c.ToggleDarkMode(ctx)
	assert.False(t, root.Has(DarkClass))

	c.ToggleDarkMode(ctx)
	assert.True(t, root.Has(DarkClass))

	c.Logout(ctx)
	assert.False(t, root.Has(DarkClass))
	assert.Equal(t, "app", root.String())
}

func TestBind_OnlyReactsToRelevantChanges(t *testing.T) {
	ctx := context.Background()
	c := session.New(storage.NewMemoryStore(), &stubAuth{})
	root := NewClassList()
	Bind(c, root)

	initial := root.Changes()
	c.Hydrate(ctx)
	require.NoError(t, c.SetLanguage(ctx, "es"))

	assert.Equal(t, initial, root.Changes())
}

func TestPaletteFor(t *testing.T) {
	dark := PaletteFor(session.State{IsAuthenticated: true, IsDarkMode: true})
	light := PaletteFor(session.State{IsDarkMode: true})

	assert.Equal(t, darkPalette.Title.GetForeground(), dark.Title.GetForeground())
	assert.Equal(t, lightPalette.Title.GetForeground(), light.Title.GetForeground())
}
