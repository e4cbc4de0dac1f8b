// Package registry tracks dashboard browser sessions and hands out the
// session container for each of them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/plantdash/plantdash/internal/models"
	"github.com/plantdash/plantdash/internal/session"
	"github.com/plantdash/plantdash/internal/storage"
)

// touchInterval limits how often LastSeenAt is written for a busy session
const touchInterval = time.Minute

// Registry records browser sessions in the database and namespaces their
// persisted keys in the session store
type Registry struct {
	db    *gorm.DB
	store storage.Store
	log   zerolog.Logger
	now   func() time.Time

	mu     sync.Mutex
	logins map[string]struct{}
}

// New creates a registry
func New(db *gorm.DB, store storage.Store, log zerolog.Logger) *Registry {
	return &Registry{
		db:     db,
		store:  store,
		log:    log,
		now:    time.Now,
		logins: make(map[string]struct{}),
	}
}

// loginLock marks a login in flight for one session id across every
// container built for it in this process
type loginLock struct {
	r  *Registry
	id string
}

func (l loginLock) TryLock() bool {
	l.r.mu.Lock()
	defer l.r.mu.Unlock()

	if _, busy := l.r.logins[l.id]; busy {
		return false
	}
	l.r.logins[l.id] = struct{}{}
	return true
}

func (l loginLock) Unlock() {
	l.r.mu.Lock()
	defer l.r.mu.Unlock()
	delete(l.r.logins, l.id)
}

// ValidID reports whether id looks like a session id issued by Create
func ValidID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// Create registers a new browser session
func (r *Registry) Create(ctx context.Context, userAgent string) (*models.BrowserSession, error) {
	if len(userAgent) > 512 {
		userAgent = userAgent[:512]
	}

	bs := &models.BrowserSession{
		LastSeenAt: r.now(),
		UserAgent:  userAgent,
	}
	if err := r.db.WithContext(ctx).Create(bs).Error; err != nil {
		return nil, fmt.Errorf("failed to create browser session: %w", err)
	}
	return bs, nil
}

// Touch marks the session as seen. found is false when the session does
// not exist (expired and swept, or never issued). renewed is true when
// LastSeenAt was written, which happens at most once per touchInterval.
func (r *Registry) Touch(ctx context.Context, id string) (found, renewed bool, err error) {
	var bs models.BrowserSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&bs).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to load browser session: %w", err)
	}

	now := r.now()
	if now.Sub(bs.LastSeenAt) < touchInterval {
		return true, false, nil
	}

	if err := r.db.WithContext(ctx).Model(&bs).Update("last_seen_at", now).Error; err != nil {
		return true, false, fmt.Errorf("failed to touch browser session: %w", err)
	}
	return true, true, nil
}

// Store returns the key space of session id
func (r *Registry) Store(id string) storage.Store {
	return storage.WithPrefix(r.store, models.SessionKeyPrefix(id))
}

// Container builds the session container of id. The caller hydrates it.
// Containers of the same id share one login at a time.
func (r *Registry) Container(id string, auth session.Authenticator) *session.Container {
	return session.New(
		r.Store(id),
		auth,
		session.WithLogger(r.log.With().Str("session_id", id).Logger()),
		session.WithClock(r.now),
		session.WithLoginLock(loginLock{r: r, id: id}),
	)
}

// List returns the most recently seen sessions
func (r *Registry) List(ctx context.Context, limit int) ([]models.BrowserSession, error) {
	var sessions []models.BrowserSession
	if err := r.db.WithContext(ctx).Order("last_seen_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list browser sessions: %w", err)
	}
	return sessions, nil
}

// Count returns the number of registered sessions
func (r *Registry) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.BrowserSession{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count browser sessions: %w", err)
	}
	return count, nil
}

// Delete removes a session and its persisted keys
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := storage.Purge(ctx, r.Store(id), session.AllKeys...); err != nil {
		return fmt.Errorf("failed to purge session keys: %w", err)
	}
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.BrowserSession{}).Error; err != nil {
		return fmt.Errorf("failed to delete browser session: %w", err)
	}
	return nil
}

// Sweep deletes sessions idle for longer than ttl and returns how many
// were removed
func (r *Registry) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := r.now().Add(-ttl)

	var stale []models.BrowserSession
	if err := r.db.WithContext(ctx).Where("last_seen_at < ?", cutoff).Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("failed to find stale sessions: %w", err)
	}

	removed := 0
	for _, bs := range stale {
		if err := r.Delete(ctx, bs.ID); err != nil {
			r.log.Warn().Err(err).Str("session_id", bs.ID).Msg("Failed to sweep session")
			continue
		}
		removed++
	}

	return removed, nil
}
