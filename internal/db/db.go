package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"score-inverter/internal/inverter"
)

// Common errors
var (
	ErrConnectionFailed = errors.New("database connection failed")
	ErrQueryTimeout     = errors.New("query timeout")
	ErrPoolExhausted    = errors.New("connection pool exhausted")
	ErrNotFound         = errors.New("not found")
	ErrCorruptResult    = errors.New("corrupt cached result")
)

// Result is a cached solve outcome for one (amount, score) pair
type Result struct {
	Amount    int64               `json:"amount"`
	Score     int64               `json:"score"`
	Solutions []inverter.Solution `json:"solutions"`
	ElapsedUs int64               `json:"elapsed_us"`
	CreatedAt string              `json:"created_at,omitempty"`
}

// Query is one served solve request
type Query struct {
	Amount    int64  `json:"amount"`
	Score     int64  `json:"score"`
	Solutions int    `json:"solutions"`
	Cached    bool   `json:"cached"`
	ElapsedUs int64  `json:"elapsed_us"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Stats holds statistics
type Stats struct {
	CachedResults  int  `json:"cached_results"`
	CachedRecords  int  `json:"cached_records"`
	TotalQueries   int  `json:"total_queries"`
	CacheHits      int  `json:"cache_hits"`
	FailedQueries  int  `json:"failed_queries"`
	DistinctCharts int  `json:"distinct_charts"`
	Healthy        bool `json:"healthy"`
}

// HealthStatus represents database health
type HealthStatus struct {
	Connected       bool   `json:"connected"`
	LatencyMs       int64  `json:"latency_ms"`
	OpenConnections int    `json:"open_connections"`
	Error           string `json:"error,omitempty"`
}

// DB wraps database operations
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)
	conn.SetConnMaxIdleTime(1 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
		-- Solution sets, one row per (amount, score); the three arrays are parallel
		CREATE TABLE IF NOT EXISTS solve_results (
			amount BIGINT NOT NULL,
			score BIGINT NOT NULL,
			combos BIGINT[] NOT NULL,
			perfects BIGINT[] NOT NULL,
			goods BIGINT[] NOT NULL,
			solution_count INT NOT NULL,
			elapsed_us BIGINT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (amount, score)
		);

		-- Served requests
		CREATE TABLE IF NOT EXISTS score_queries (
			id BIGSERIAL PRIMARY KEY,
			amount BIGINT NOT NULL,
			score BIGINT NOT NULL,
			solution_count INT NOT NULL,
			cached BOOLEAN NOT NULL,
			elapsed_us BIGINT NOT NULL,
			error TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_score_queries_created_at ON score_queries(created_at);
	`)
	return err
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Health checks database connectivity
func (db *DB) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{}
	start := time.Now()
	err := db.conn.PingContext(ctx)
	status.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		status.Error = err.Error()
		return status
	}

	status.Connected = true
	status.OpenConnections = db.conn.Stats().OpenConnections
	return status
}

func (db *DB) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "53300":
			return fmt.Errorf("%w: %v", ErrPoolExhausted, err)
		case "57014":
			return fmt.Errorf("%w: %v", ErrQueryTimeout, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrQueryTimeout, err)
	}
	return err
}

// splitSolutions turns solutions into parallel column arrays
func splitSolutions(sols []inverter.Solution) (combos, perfects, goods []int64) {
	combos = make([]int64, len(sols))
	perfects = make([]int64, len(sols))
	goods = make([]int64, len(sols))
	for i, s := range sols {
		combos[i] = s.Combo
		perfects[i] = s.Perfect
		goods[i] = s.Good
	}
	return combos, perfects, goods
}

// joinSolutions is the inverse of splitSolutions
func joinSolutions(combos, perfects, goods []int64) ([]inverter.Solution, error) {
	if len(combos) != len(perfects) || len(combos) != len(goods) {
		return nil, fmt.Errorf("%w: column lengths %d/%d/%d",
			ErrCorruptResult, len(combos), len(perfects), len(goods))
	}
	sols := make([]inverter.Solution, len(combos))
	for i := range combos {
		sols[i] = inverter.Solution{Combo: combos[i], Perfect: perfects[i], Good: goods[i]}
	}
	return sols, nil
}

// GetResult returns the cached solution set for (amount, score)
func (db *DB) GetResult(ctx context.Context, amount, score int64) (*Result, error) {
	var combos, perfects, goods []int64
	var createdAt time.Time
	res := &Result{Amount: amount, Score: score}

	err := db.conn.QueryRowContext(ctx,
		`SELECT combos, perfects, goods, elapsed_us, created_at
		 FROM solve_results WHERE amount = $1 AND score = $2`,
		amount, score).Scan(pq.Array(&combos), pq.Array(&perfects), pq.Array(&goods),
		&res.ElapsedUs, &createdAt)
	if err != nil {
		return nil, db.wrapError(err)
	}

	res.Solutions, err = joinSolutions(combos, perfects, goods)
	if err != nil {
		return nil, err
	}
	res.CreatedAt = createdAt.Format(time.RFC3339)
	return res, nil
}

// SaveResult stores a solution set, replacing any previous one
func (db *DB) SaveResult(ctx context.Context, res *Result) error {
	combos, perfects, goods := splitSolutions(res.Solutions)
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO solve_results (amount, score, combos, perfects, goods, solution_count, elapsed_us)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (amount, score) DO UPDATE SET
		   combos = $3, perfects = $4, goods = $5, solution_count = $6, elapsed_us = $7, created_at = NOW()`,
		res.Amount, res.Score, pq.Array(combos), pq.Array(perfects), pq.Array(goods),
		len(res.Solutions), res.ElapsedUs)
	return db.wrapError(err)
}

// RecordQuery logs a served request
func (db *DB) RecordQuery(ctx context.Context, q Query) error {
	var errText sql.NullString
	if q.Error != "" {
		errText = sql.NullString{String: q.Error, Valid: true}
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO score_queries (amount, score, solution_count, cached, elapsed_us, error)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		q.Amount, q.Score, q.Solutions, q.Cached, q.ElapsedUs, errText)
	return db.wrapError(err)
}

// RecentQueries returns the latest served requests, newest first
func (db *DB) RecentQueries(ctx context.Context, limit int) ([]Query, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT amount, score, solution_count, cached, elapsed_us, error, created_at
		 FROM score_queries ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, db.wrapError(err)
	}
	defer rows.Close()

	queries := []Query{}
	for rows.Next() {
		var q Query
		var errText sql.NullString
		var createdAt time.Time
		if err := rows.Scan(&q.Amount, &q.Score, &q.Solutions, &q.Cached,
			&q.ElapsedUs, &errText, &createdAt); err != nil {
			continue
		}
		q.Error = errText.String
		q.CreatedAt = createdAt.Format(time.RFC3339)
		queries = append(queries, q)
	}
	return queries, db.wrapError(rows.Err())
}

// GetStats returns database statistics
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Healthy: true}

	health := db.Health(ctx)
	if !health.Connected {
		stats.Healthy = false
		return stats, nil
	}

	db.conn.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(solution_count), 0) FROM solve_results").
		Scan(&stats.CachedResults, &stats.CachedRecords)
	db.conn.QueryRowContext(ctx, "SELECT COUNT(DISTINCT amount) FROM solve_results").Scan(&stats.DistinctCharts)
	db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM score_queries").Scan(&stats.TotalQueries)
	db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM score_queries WHERE cached").Scan(&stats.CacheHits)
	db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM score_queries WHERE error IS NOT NULL").Scan(&stats.FailedQueries)

	return stats, nil
}
