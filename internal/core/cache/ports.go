package cache

import (
	"context"
	"time"
)

// Cache defines the key-value operations interface following hexagonal architecture.
// This is a port that can be implemented by different providers (Redis, in-memory, etc.).
type Cache interface {
	// Get retrieves a value by key.
	// Returns the stored value or an error if not found or on failure.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the specified key and TTL.
	// TTL of 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores a value only if the key does not already exist.
	// Returns true if the value was stored, false if the key was taken.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// SetAdd adds a member to the set stored at key.
	SetAdd(ctx context.Context, key string, member string) error

	// SetRemove removes a member from the set stored at key.
	SetRemove(ctx context.Context, key string, member string) error

	// SetMembers returns all members of the set stored at key.
	// A missing key yields an empty slice, not an error.
	SetMembers(ctx context.Context, key string) ([]string, error)

	// Ping checks if the backing service is reachable.
	Ping(ctx context.Context) error

	// Close closes the connection.
	Close() error
}
