package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"score-inverter/internal/config"
	"score-inverter/internal/db"
	"score-inverter/internal/inverter"
	"score-inverter/internal/logger"
	"score-inverter/internal/notify"
	"score-inverter/internal/retry"
)

// cacheTimeout bounds a single cache read or write
const cacheTimeout = 5 * time.Second

// Answer is a served solve
type Answer struct {
	Amount     int64               `json:"amount"`
	Score      int64               `json:"score"`
	Solutions  []inverter.Solution `json:"solutions"`
	Count      int                 `json:"count"`
	Cached     bool                `json:"cached"`
	ElapsedUs  int64               `json:"elapsed_us"`
	Iterations int64               `json:"iterations,omitempty"`
}

// Stats counts what the service has done since start
type Stats struct {
	Queries        int64 `json:"queries"`
	CacheHits      int64 `json:"cache_hits"`
	CacheSkipped   int64 `json:"cache_skipped"`
	LookupFailures int64 `json:"lookup_failures"`
	Failures       int64 `json:"failures"`
	BudgetExceeded int64 `json:"budget_exceeded"`
	WritesDropped  int64 `json:"writes_dropped"`
	WriteFailures  int64 `json:"write_failures"`
	CacheOpen      bool  `json:"cache_circuit_open"`
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Solver   inverter.Config
	Cache    config.CacheConfig
	Retry    retry.Config
	Breaker  *retry.CircuitBreaker
	Notifier *notify.Notifier
}

// writeJob is one pending cache write; exactly one field is set
type writeJob struct {
	result *db.Result
	query  *db.Query
}

// Service answers solve requests through the result cache
type Service struct {
	solver   *inverter.Solver
	store    db.Store
	logger   *logger.Logger
	notifier *notify.Notifier
	breaker  *retry.CircuitBreaker
	retryCfg retry.Config
	cache    config.CacheConfig
	maxIter  int64

	mu     sync.RWMutex
	closed bool
	writes chan writeJob
	wg     sync.WaitGroup

	queries        atomic.Int64
	cacheHits      atomic.Int64
	cacheSkipped   atomic.Int64
	lookupFailures atomic.Int64
	failures       atomic.Int64
	budgetExceeded atomic.Int64
	writesDropped  atomic.Int64
	writeFailures  atomic.Int64
}

// New creates a Service. store may be nil, in which case nothing is cached.
func New(store db.Store, log *logger.Logger, opts Options) *Service {
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Breaker == nil {
		opts.Breaker = retry.NewCircuitBreaker(5, 30*time.Second)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.New("", "")
	}
	if opts.Cache.QueueSize <= 0 {
		opts.Cache.QueueSize = 1000
	}

	s := &Service{
		solver:   inverter.New(opts.Solver),
		store:    store,
		logger:   log,
		notifier: opts.Notifier,
		breaker:  opts.Breaker,
		retryCfg: opts.Retry,
		cache:    opts.Cache,
		maxIter:  opts.Solver.MaxIterations,
	}

	if store != nil && opts.Cache.Writers > 0 {
		s.writes = make(chan writeJob, opts.Cache.QueueSize)
		for i := 0; i < opts.Cache.Writers; i++ {
			s.wg.Add(1)
			go s.writeLoop()
		}
	}

	return s
}

// Close stops accepting cache writes and waits for queued ones to finish
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.writes != nil {
		close(s.writes)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Solve returns every record for (amount, score), from the cache when possible
func (s *Service) Solve(ctx context.Context, amount, score int64) (*Answer, error) {
	start := time.Now()
	s.queries.Add(1)

	if cached := s.lookup(ctx, amount, score); cached != nil {
		s.cacheHits.Add(1)
		ans := &Answer{
			Amount:    amount,
			Score:     score,
			Solutions: cached.Solutions,
			Count:     len(cached.Solutions),
			Cached:    true,
			ElapsedUs: time.Since(start).Microseconds(),
		}
		s.enqueue(writeJob{query: &db.Query{
			Amount: amount, Score: score, Solutions: ans.Count, Cached: true, ElapsedUs: ans.ElapsedUs,
		}})
		return ans, nil
	}

	run, err := s.solver.Run(ctx, amount, score)
	elapsed := time.Since(start).Microseconds()
	if err != nil {
		s.failures.Add(1)
		if errors.Is(err, inverter.ErrBudgetExceeded) {
			s.budgetExceeded.Add(1)
			s.logger.Warn("Solve A=%d S=%d aborted after %d iterations", amount, score, s.maxIter)
			go func() {
				if nerr := s.notifier.NotifyBudgetExceeded(amount, score, s.maxIter); nerr != nil {
					s.logger.Warn("Budget alert failed: %v", nerr)
				}
			}()
		}
		s.enqueue(writeJob{query: &db.Query{
			Amount: amount, Score: score, ElapsedUs: elapsed, Error: err.Error(),
		}})
		return nil, err
	}

	ans := &Answer{
		Amount:     amount,
		Score:      score,
		Solutions:  run.Solutions,
		Count:      len(run.Solutions),
		ElapsedUs:  elapsed,
		Iterations: run.Iterations,
	}
	s.logger.Debug("Solved A=%d S=%d: %d solutions, %d iterations in %dus",
		amount, score, ans.Count, run.Iterations, elapsed)

	if ans.Count <= s.cache.MaxSolutions {
		s.enqueue(writeJob{result: &db.Result{
			Amount: amount, Score: score, Solutions: run.Solutions, ElapsedUs: elapsed,
		}})
	}
	s.enqueue(writeJob{query: &db.Query{
		Amount: amount, Score: score, Solutions: ans.Count, ElapsedUs: elapsed,
	}})
	return ans, nil
}

// lookup returns the cached result or nil on a miss or cache failure
func (s *Service) lookup(ctx context.Context, amount, score int64) *db.Result {
	if s.store == nil {
		return nil
	}
	if !s.breaker.Allow() {
		s.cacheSkipped.Add(1)
		return nil
	}

	lctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	res, err := s.store.GetResult(lctx, amount, score)
	switch {
	case err == nil:
		s.breaker.RecordSuccess()
		return res
	case errors.Is(err, db.ErrNotFound):
		s.breaker.RecordSuccess()
		return nil
	default:
		s.breaker.RecordFailure()
		s.lookupFailures.Add(1)
		s.logger.Warn("Cache lookup A=%d S=%d failed: %v", amount, score, err)
		return nil
	}
}

// enqueue hands a write to the background writers without blocking
func (s *Service) enqueue(job writeJob) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.writes == nil {
		return
	}
	select {
	case s.writes <- job:
	default:
		s.writesDropped.Add(1)
		s.logger.Debug("Cache write queue full, dropping write")
	}
}

func (s *Service) writeLoop() {
	defer s.wg.Done()
	for job := range s.writes {
		err := s.breaker.Call(func() error {
			return retry.Do(context.Background(), s.retryCfg, func() error {
				ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
				defer cancel()
				if job.result != nil {
					return s.store.SaveResult(ctx, job.result)
				}
				return s.store.RecordQuery(ctx, *job.query)
			})
		})
		if err == nil || errors.Is(err, retry.ErrCircuitOpen) {
			continue
		}

		s.writeFailures.Add(1)
		s.logger.Error("Cache write failed: %v", err)
		if s.breaker.IsOpen() {
			if nerr := s.notifier.NotifyCacheDown(err); nerr != nil {
				s.logger.Warn("Cache alert failed: %v", nerr)
			}
		}
	}
}

// Stats returns a snapshot of the service counters
func (s *Service) Stats() Stats {
	return Stats{
		Queries:        s.queries.Load(),
		CacheHits:      s.cacheHits.Load(),
		CacheSkipped:   s.cacheSkipped.Load(),
		LookupFailures: s.lookupFailures.Load(),
		Failures:       s.failures.Load(),
		BudgetExceeded: s.budgetExceeded.Load(),
		WritesDropped:  s.writesDropped.Load(),
		WriteFailures:  s.writeFailures.Load(),
		CacheOpen:      s.breaker.IsOpen(),
	}
}

// Pick returns one solution chosen by rng, or false when there is none
func Pick(rng *rand.Rand, solutions []inverter.Solution) (inverter.Solution, bool) {
	if len(solutions) == 0 {
		return inverter.Solution{}, false
	}
	return solutions[rng.Intn(len(solutions))], true
}

// Describe formats an answer the way the CLI prints it
func Describe(ans *Answer) string {
	source := "solved"
	if ans.Cached {
		source = "cached"
	}
	return fmt.Sprintf("%d solutions for %d notes at %d (%s in %s)",
		ans.Count, ans.Amount, ans.Score, source, time.Duration(ans.ElapsedUs)*time.Microsecond)
}
