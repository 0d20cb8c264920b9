package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want default 3000", cfg.Port)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Errorf("WorkerConcurrency = %d, want default 4", cfg.WorkerConcurrency)
	}
	if cfg.DefaultMemoryLimitMB != 256 {
		t.Errorf("DefaultMemoryLimitMB = %d, want default 256", cfg.DefaultMemoryLimitMB)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("WORKER_CONCURRENCY", "16")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("DEFAULT_TIME_LIMIT_SECONDS", "3.5")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.WorkerConcurrency != 16 {
		t.Errorf("WorkerConcurrency = %d, want 16", cfg.WorkerConcurrency)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://a.example" || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v, want [https://a.example https://b.example]", cfg.AllowedOrigins)
	}
	if cfg.DefaultTimeLimitSeconds != 3.5 {
		t.Errorf("DefaultTimeLimitSeconds = %v, want 3.5", cfg.DefaultTimeLimitSeconds)
	}
}

func TestLoad_InvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "not-a-number")
	cfg := Load()
	if cfg.WorkerConcurrency != 4 {
		t.Errorf("WorkerConcurrency = %d, want fallback default 4", cfg.WorkerConcurrency)
	}
}
