// Package kv provides durable key-value backends for player preferences.
package kv

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// Store is a durable key-value store of opaque values.
type Store interface {
	// Get returns the value for key. ok is false when the key was never written.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend       string // "sqlite", "redis" or "memory"
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open opens the backend named in opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "sqlite":
		s, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		r, err := OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "memory", "":
		return NewMemory(), nil
	default:
		return nil, errors.Newf("unknown storage backend: %s", opts.Backend)
	}
}
