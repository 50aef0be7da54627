package cache

import "context"

// Backend stores cache values. Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the value under key. stamp identifies the backend state the value was read at
	// and is handed back to Put.
	Get(ctx context.Context, key Key) (v Value, stamp string, found bool, err error)
	// Put stores v unless the backend was invalidated since stamp was issued.
	Put(ctx context.Context, key Key, v Value, stamp string) error
	// DeleteUser drops the entry of one user.
	DeleteUser(ctx context.Context, userID uint64) error
	// Flush drops every entry.
	Flush(ctx context.Context) error
}
