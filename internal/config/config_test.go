package config

import (
	"runtime"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "PORT", "BIND_ADDRS", "LOG_LEVEL",
		"SOLVER_WORKERS", "SOLVER_MAX_ITERATIONS",
		"CACHE_MAX_SOLUTIONS", "CACHE_WRITERS", "CACHE_QUEUE_SIZE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.BindAddrs != "0.0.0.0" {
		t.Errorf("BindAddrs = %q, want 0.0.0.0", cfg.BindAddrs)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Solver.Workers != runtime.NumCPU() {
		t.Errorf("Solver.Workers = %d, want %d", cfg.Solver.Workers, runtime.NumCPU())
	}
	if cfg.Solver.MaxIterations != 5_000_000 {
		t.Errorf("Solver.MaxIterations = %d, want 5000000", cfg.Solver.MaxIterations)
	}
	if cfg.Cache.MaxSolutions != 20_000 {
		t.Errorf("Cache.MaxSolutions = %d, want 20000", cfg.Cache.MaxSolutions)
	}
	if cfg.Cache.Writers != 2 {
		t.Errorf("Cache.Writers = %d, want 2", cfg.Cache.Writers)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/scores")
	t.Setenv("PORT", "9090")
	t.Setenv("SOLVER_WORKERS", "3")
	t.Setenv("SOLVER_MAX_ITERATIONS", "1000")
	t.Setenv("CACHE_WRITERS", "0")
	t.Setenv("PUSHOVER_APP_TOKEN", "app")
	t.Setenv("PUSHOVER_USER_KEY", "user")

	cfg := Load()

	if cfg.DatabaseURL != "postgres://localhost/scores" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.Solver.Workers != 3 {
		t.Errorf("Solver.Workers = %d, want 3", cfg.Solver.Workers)
	}
	if cfg.Solver.MaxIterations != 1000 {
		t.Errorf("Solver.MaxIterations = %d, want 1000", cfg.Solver.MaxIterations)
	}
	if cfg.Cache.Writers != 0 {
		t.Errorf("Cache.Writers = %d, want 0", cfg.Cache.Writers)
	}
	if cfg.PushoverAppToken != "app" || cfg.PushoverUserKey != "user" {
		t.Errorf("unexpected pushover credentials: %q %q", cfg.PushoverAppToken, cfg.PushoverUserKey)
	}
}

func TestEnvInt_Invalid(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"abc", 7},
		{"-3", 7},
		{"12", 12},
		{"", 7},
	}

	for _, tt := range tests {
		t.Setenv("SCORE_INVERTER_TEST_INT", tt.value)
		if got := envInt("SCORE_INVERTER_TEST_INT", 7); got != tt.want {
			t.Errorf("envInt(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}
