package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/plantdash/plantdash/internal/client"
	"github.com/plantdash/plantdash/internal/session"
	"github.com/plantdash/plantdash/internal/storage"
	"github.com/plantdash/plantdash/internal/theme"
)

const (
	defaultAPIURL       = "http://localhost:8000"
	defaultDashboardURL = "http://localhost:8080"
)

// errNotLoggedIn is returned by commands that need a session
var errNotLoggedIn = errors.New("not logged in. Please run 'plantdash login' first")

// Env holds what the commands share. Fields left nil are filled by Open.
type Env struct {
	APIURL       string
	DashboardURL string
	Store        storage.Store
	Out          io.Writer
	Stdin        *os.File

	container *session.Container
	api       *client.Client
}

// DefaultEnv reads PLANTDASH_* variables and writes to stdout
func DefaultEnv() *Env {
	return &Env{
		APIURL:       getenv("PLANTDASH_API_URL", defaultAPIURL),
		DashboardURL: getenv("PLANTDASH_DASHBOARD_URL", defaultDashboardURL),
		Out:          os.Stdout,
		Stdin:        os.Stdin,
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Open prepares the session store: the token in the system keyring, the
// remaining keys in the user's preferences file
func (e *Env) Open() error {
	if e.Out == nil {
		e.Out = os.Stdout
	}
	if e.Store != nil {
		return nil
	}

	path, err := storage.DefaultFilePath()
	if err != nil {
		return err
	}
	e.Store = storage.Split(
		storage.NewKeyringStore(storage.DefaultKeyringService),
		storage.NewFileStore(path),
		session.KeyToken,
	)
	return nil
}

// Client returns the backend client
func (e *Env) Client() *client.Client {
	if e.api == nil {
		e.api = client.New(e.APIURL)
	}
	return e.api
}

// Session returns the hydrated session container. An expired token is
// logged out here.
func (e *Env) Session(ctx context.Context) *session.Container {
	if e.container == nil {
		e.container = session.New(e.Store, e.Client())
		e.container.Hydrate(ctx)
		e.container.CheckExpiry(ctx)
	}
	return e.container
}

// Palette returns the output palette for the current session
func (e *Env) Palette(ctx context.Context) theme.Palette {
	return theme.PaletteFor(e.Session(ctx).State())
}

// authedToken returns the bearer token or errNotLoggedIn
func (e *Env) authedToken(ctx context.Context) (string, error) {
	token := e.Session(ctx).Token()
	if token == "" {
		return "", errNotLoggedIn
	}
	return token, nil
}

// backendError ends the session on a rejected token
func (e *Env) backendError(ctx context.Context, err error) error {
	if errors.Is(err, session.ErrAuthRejected) {
		e.Session(ctx).Logout(ctx)
		return fmt.Errorf("session expired or revoked. Please run 'plantdash login' again")
	}
	return err
}
