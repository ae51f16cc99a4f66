package db

import "context"

// Store defines the interface for the solve result cache
type Store interface {
	Close() error
	Health(ctx context.Context) HealthStatus
	GetResult(ctx context.Context, amount, score int64) (*Result, error)
	SaveResult(ctx context.Context, res *Result) error
	RecordQuery(ctx context.Context, q Query) error
	RecentQueries(ctx context.Context, limit int) ([]Query, error)
	GetStats(ctx context.Context) (*Stats, error)
}

// Ensure DB implements Store interface
var _ Store = (*DB)(nil)
var _ Store = (*MockDB)(nil)
