package db

import (
	"context"
	"slices"
	"sync"
	"time"

	"score-inverter/internal/inverter"
)

type resultKey struct {
	amount, score int64
}

// MockDB is a mock database for demo/testing
type MockDB struct {
	mu      sync.RWMutex
	results map[resultKey]Result
	queries []Query

	// WriteErr, when set, is returned by SaveResult and RecordQuery
	WriteErr error

	// ReadErr, when set, is returned by GetResult
	ReadErr error
}

// NewMock creates a new mock database
func NewMock() *MockDB {
	return &MockDB{
		results: make(map[resultKey]Result),
	}
}

// NewMockWithSampleData creates a mock database with sample data
func NewMockWithSampleData() *MockDB {
	m := NewMock()

	// Single-note charts
	m.results[resultKey{1, 1000000}] = Result{
		Amount:    1,
		Score:     1000000,
		Solutions: []inverter.Solution{{Combo: 1, Perfect: 1, Good: 0}},
		ElapsedUs: 4,
		CreatedAt: "2024-12-25T10:30:00Z",
	}
	m.results[resultKey{1, 685000}] = Result{
		Amount:    1,
		Score:     685000,
		Solutions: []inverter.Solution{{Combo: 1, Perfect: 0, Good: 1}},
		ElapsedUs: 3,
		CreatedAt: "2024-12-25T10:31:00Z",
	}

	m.queries = []Query{
		{Amount: 1, Score: 1000000, Solutions: 1, ElapsedUs: 4, CreatedAt: "2024-12-25T10:30:00Z"},
		{Amount: 1, Score: 685000, Solutions: 1, ElapsedUs: 3, CreatedAt: "2024-12-25T10:31:00Z"},
		{Amount: 1, Score: 1000000, Solutions: 1, Cached: true, CreatedAt: "2024-12-25T10:32:00Z"},
	}

	return m
}

func (m *MockDB) Close() error { return nil }

func (m *MockDB) Health(ctx context.Context) HealthStatus {
	return HealthStatus{Connected: true, LatencyMs: 1}
}

func (m *MockDB) GetResult(ctx context.Context, amount, score int64) (*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	res, ok := m.results[resultKey{amount, score}]
	if !ok {
		return nil, ErrNotFound
	}
	res.Solutions = slices.Clone(res.Solutions)
	return &res, nil
}

func (m *MockDB) SaveResult(ctx context.Context, res *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	stored := *res
	stored.Solutions = slices.Clone(res.Solutions)
	stored.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	m.results[resultKey{res.Amount, res.Score}] = stored
	return nil
}

func (m *MockDB) RecordQuery(ctx context.Context, q Query) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	if q.CreatedAt == "" {
		q.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.queries = append(m.queries, q)
	return nil
}

func (m *MockDB) RecentQueries(ctx context.Context, limit int) ([]Query, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	out := []Query{}
	for i := len(m.queries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.queries[i])
	}
	return out, nil
}

func (m *MockDB) GetStats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{
		CachedResults: len(m.results),
		TotalQueries:  len(m.queries),
		Healthy:       true,
	}
	charts := make(map[int64]bool)
	for k, r := range m.results {
		charts[k.amount] = true
		stats.CachedRecords += len(r.Solutions)
	}
	stats.DistinctCharts = len(charts)
	for _, q := range m.queries {
		if q.Cached {
			stats.CacheHits++
		}
		if q.Error != "" {
			stats.FailedQueries++
		}
	}
	return stats, nil
}
