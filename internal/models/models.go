package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// BrowserSession is one dashboard visitor, identified by the signed cookie.
// The session's persisted keys live in the configured key/value store under
// the "sid:<id>:" prefix.
type BrowserSession struct {
	BaseModel
	LastSeenAt time.Time `json:"last_seen_at" gorm:"index;not null"`
	UserAgent  string    `json:"user_agent" gorm:"type:varchar(512)"`
}

// KeyPrefix returns the storage namespace of the session
func (s *BrowserSession) KeyPrefix() string {
	return SessionKeyPrefix(s.ID)
}

// SessionKeyPrefix returns the storage namespace for a session id
func SessionKeyPrefix(id string) string {
	return "sid:" + id + ":"
}

// SessionEntry is a single persisted key/value pair used by the sqlite
// session store
type SessionEntry struct {
	Key       string    `json:"key" gorm:"column:entry_key;primaryKey;type:varchar(255)"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&BrowserSession{},
		&SessionEntry{},
	)
}
