// Package repository keeps finished threshold evaluations for lookup by run
// ID. Stored runs are never used to answer a new query.
package repository

import "context"

// Store provides keyed access to stored values.
type Store[V any] interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (V, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value V)

	// Delete removes key. Unknown keys are ignored.
	Delete(ctx context.Context, key string)

	// Count returns the number of stored entries.
	Count(ctx context.Context) int
}
