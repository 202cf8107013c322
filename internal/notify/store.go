package notify

import "context"

// Store is the local durable notification log, keyed by Record.ID.
type Store interface {
	// Put inserts or replaces the record with r.ID.
	Put(ctx context.Context, r *Record) error
	// Get returns nil, nil when id is unknown.
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id string) error
}
