package domain

import "context"

// PropertyStore is the external durable string-to-string mapping all
// conversational state is persisted in. Keys live in a single flat namespace;
// this bot partitions it by convention (see the props package). The store
// offers last-write-wins semantics per key and no multi-key transactions.
type PropertyStore interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key. Implementations with a value size limit
	// return a KindValueTooLarge error when it is exceeded.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// ListKeys enumerates every key in the namespace.
	ListKeys(ctx context.Context) ([]string, error)
}
