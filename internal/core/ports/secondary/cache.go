package secondary

import "context"

// ResultCache memoizes idempotent store reads. Keys combine the operation
// name with its serialized arguments; entries have no TTL and are dropped
// wholesale whenever anything mutates the store.
type ResultCache interface {
	// GetOrFill returns the cached value for (op, args), running fill and
	// storing its serialized result on a miss.
	GetOrFill(ctx context.Context, op string, args interface{}, fill func() (interface{}, error)) ([]byte, error)

	// FlushExcept deletes every cache key except the queue's backing
	// stream key.
	FlushExcept(ctx context.Context) error
}
