// Package storage provides the key/value backends that persist session data
// for the dashboard and the CLI.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// Store is a minimal persistence interface for string values.
//
// Implementations must treat Remove of a missing key as success.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// prefixed namespaces every key of an underlying store.
type prefixed struct {
	base   Store
	prefix string
}

// WithPrefix returns a Store that stores every key under prefix in base.
// The web server uses it to give each browser session its own key space.
func WithPrefix(base Store, prefix string) Store {
	return &prefixed{base: base, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, error) {
	return p.base.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	return p.base.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Remove(ctx context.Context, key string) error {
	return p.base.Remove(ctx, p.prefix+key)
}

// split routes secret keys to one store and everything else to another.
type split struct {
	secret  Store
	plain   Store
	secrets map[string]bool
}

// Split returns a Store that keeps secretKeys in secret (for example the OS
// keyring) and all other keys in plain (for example a config file).
func Split(secret, plain Store, secretKeys ...string) Store {
	keys := make(map[string]bool, len(secretKeys))
	for _, k := range secretKeys {
		keys[k] = true
	}
	return &split{secret: secret, plain: plain, secrets: keys}
}

func (s *split) pick(key string) Store {
	if s.secrets[key] {
		return s.secret
	}
	return s.plain
}

func (s *split) Get(ctx context.Context, key string) (string, error) {
	return s.pick(key).Get(ctx, key)
}

func (s *split) Set(ctx context.Context, key, value string) error {
	return s.pick(key).Set(ctx, key, value)
}

func (s *split) Remove(ctx context.Context, key string) error {
	return s.pick(key).Remove(ctx, key)
}

// Purge removes every key in keys from store, returning the first error.
func Purge(ctx context.Context, store Store, keys ...string) error {
	var firstErr error
	for _, k := range keys {
		if err := store.Remove(ctx, k); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
