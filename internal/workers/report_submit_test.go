package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/plantdash/plantdash/internal/client"
	"github.com/plantdash/plantdash/internal/models"
	"github.com/plantdash/plantdash/internal/registry"
	"github.com/plantdash/plantdash/internal/session"
	"github.com/plantdash/plantdash/internal/storage"
	"github.com/plantdash/plantdash/internal/tasks"
)

type fakeBackend struct {
	err      error
	calls    int
	gotToken string
	gotReq   client.CreateReportRequest
}

func (f *fakeBackend) Login(ctx context.Context, creds session.Credentials) (*session.LoginResult, error) {
	return nil, session.ErrAuthRejected
}

func (f *fakeBackend) CreateReport(ctx context.Context, token string, req client.CreateReportRequest) (*client.Report, error) {
	f.calls++
	f.gotToken = token
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &client.Report{ID: "rep-1", Title: req.Title, Status: "queued"}, nil
}

func newTestRegistry(t *testing.T) (*registry.Registry, storage.Store) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))

	store := storage.NewMemoryStore()
	return registry.New(db, store, zerolog.Nop()), store
}

func loggedInSession(t *testing.T, reg *registry.Registry) string {
	t.Helper()
	ctx := context.Background()

	bs, err := reg.Create(ctx, "test")
	require.NoError(t, err)

	claims := session.TokenClaims{UserID: "user-1", Role: "operator"}
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	user, err := json.Marshal(session.User{ID: "user-1", Name: "Op", Email: "op@example.com", Role: "operator"})
	require.NoError(t, err)

	store := reg.Store(bs.ID)
	require.NoError(t, store.Set(ctx, session.KeyToken, token))
	require.NoError(t, store.Set(ctx, session.KeyUser, string(user)))
	return bs.ID
}

func reportTask(t *testing.T, sessionID string) *asynq.Task {
	t.Helper()
	task, err := tasks.NewSubmitReportTask(sessionID, client.CreateReportRequest{
		Title:   "Weekly",
		PlantID: "plant-1",
		Format:  "pdf",
		From:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2026, 1, 7, 23, 59, 59, 0, time.UTC),
	})
	require.NoError(t, err)
	return task
}

func TestHandleSubmitReport_Success(t *testing.T) {
	reg, _ := newTestRegistry(t)
	sid := loggedInSession(t, reg)
	backend := &fakeBackend{}

	err := HandleSubmitReport(context.Background(), reportTask(t, sid), reg, backend, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
	assert.NotEmpty(t, backend.gotToken)
	assert.Equal(t, "Weekly", backend.gotReq.Title)
}

func TestHandleSubmitReport_LoggedOutSessionIsSkipped(t *testing.T) {
	reg, _ := newTestRegistry(t)
	bs, err := reg.Create(context.Background(), "test")
	require.NoError(t, err)
	backend := &fakeBackend{}

	err = HandleSubmitReport(context.Background(), reportTask(t, bs.ID), reg, backend, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Zero(t, backend.calls)
}

func TestHandleSubmitReport_AuthRejectedLogsOut(t *testing.T) {
	reg, _ := newTestRegistry(t)
	sid := loggedInSession(t, reg)
	backend := &fakeBackend{err: fmt.Errorf("create report: %w", session.ErrAuthRejected)}

	err := HandleSubmitReport(context.Background(), reportTask(t, sid), reg, backend, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	_, err = reg.Store(sid).Get(context.Background(), session.KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHandleSubmitReport_NetworkErrorRetries(t *testing.T) {
	reg, _ := newTestRegistry(t)
	sid := loggedInSession(t, reg)
	backend := &fakeBackend{err: fmt.Errorf("create report: %w", session.ErrNetwork)}

	err := HandleSubmitReport(context.Background(), reportTask(t, sid), reg, backend, zerolog.Nop())
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	assert.ErrorIs(t, err, session.ErrNetwork)
}

func TestHandleSubmitReport_InvalidSessionID(t *testing.T) {
	reg, _ := newTestRegistry(t)
	backend := &fakeBackend{}

	err := HandleSubmitReport(context.Background(), reportTask(t, "not-a-ulid"), reg, backend, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Zero(t, backend.calls)
}

func TestStartSessionSweeper_InvalidSchedule(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := StartSessionSweeper(reg, "not a schedule", time.Hour, zerolog.Nop())
	assert.Error(t, err)
}

func TestStartSessionSweeper_SweepsOnStart(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	_, err := reg.Create(ctx, "test")
	require.NoError(t, err)

	c, err := StartSessionSweeper(reg, DefaultSweepSchedule, -time.Hour, zerolog.Nop())
	require.NoError(t, err)
	defer c.Stop()

	count, err := reg.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
