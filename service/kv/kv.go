// Package kv provides the small key-value store abstraction behind the
// transaction history ledger and the social-link cache. Production
// deployments persist through Postgres or Redis; tests use the in-memory
// implementation.
package kv

import "context"

// Store is a minimal key-value store. Get returns (nil, nil) when the key
// does not exist; absence is not an error at this layer.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
