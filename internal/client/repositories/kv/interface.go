// Package kv implements the client's persisted key-value state: the
// session credentials and UI preferences that survive restarts.
package kv

import "context"

// Repository is a flat string key-value store. Get returns
// common.ErrorNotFound when the key is absent.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
