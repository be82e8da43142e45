// Package otp holds one-time codes and the pending signup records they
// guard. State lives behind the Cache interface so the same Registry runs on
// process memory in development and on Redis when several server instances
// share traffic.
package otp

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// Get returns common.ErrorNotFound for missing or expired keys.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
