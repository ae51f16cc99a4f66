package config

import (
	"os"
	"runtime"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string
	Port        string
	BindAddrs   string
	LogLevel    string

	PushoverAppToken string
	PushoverUserKey  string

	Solver SolverConfig
	Cache  CacheConfig
}

// SolverConfig bounds the work done by a single solve
type SolverConfig struct {
	Workers       int
	MaxIterations int64
}

// CacheConfig controls the result cache
type CacheConfig struct {
	MaxSolutions int // results with more solutions are not cached
	Writers      int // background write workers
	QueueSize    int
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		Port:             os.Getenv("PORT"),
		BindAddrs:        os.Getenv("BIND_ADDRS"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		PushoverAppToken: os.Getenv("PUSHOVER_APP_TOKEN"),
		PushoverUserKey:  os.Getenv("PUSHOVER_USER_KEY"),
		Solver: SolverConfig{
			Workers:       envInt("SOLVER_WORKERS", runtime.NumCPU()),
			MaxIterations: int64(envInt("SOLVER_MAX_ITERATIONS", 5_000_000)),
		},
		Cache: CacheConfig{
			MaxSolutions: envInt("CACHE_MAX_SOLUTIONS", 20_000),
			Writers:      envInt("CACHE_WRITERS", 2),
			QueueSize:    envInt("CACHE_QUEUE_SIZE", 1000),
		},
	}

	if cfg.Port == "" {
		cfg.Port = "8000"
	}
	if cfg.BindAddrs == "" {
		cfg.BindAddrs = "0.0.0.0"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg
}

// envInt reads a positive integer, falling back to def when unset or invalid
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
