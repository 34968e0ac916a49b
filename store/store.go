package store

import "context"

// Store keeps render records and other engine state as opaque blobs
// grouped by prefix.
type Store interface {
	/**
	 * Get returns nil without error for a missing key
	 */
	Get(ctx context.Context, prefix, key string) ([]byte, error)
	Set(ctx context.Context, prefix, key string, value []byte) error
	/**
	 * Remove a prefix and key
	 * remove an unexists prefix + key would NOT return error
	 */
	Remove(ctx context.Context, prefix, key string) error

	/**
	 * List calls iterator with every key under prefix in ascending order
	 * until it returns false
	 */
	List(ctx context.Context, prefix string, iterator func(key string) bool) error

	Close() error
}
