package port

import "context"

// PersistentStore is a small durable key-value store.
// Every call may fail; callers treat a failed read as an absent key.
type PersistentStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
