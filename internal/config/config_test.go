package config

import (
	"testing"
	"time"
)

func TestGetDownloadWorkersDefault(t *testing.T) {
	t.Setenv(EnvDownloadWorkers, "")
	if got := GetDownloadWorkers(); got != DefaultWorkers {
		t.Errorf("GetDownloadWorkers() = %d, want %d", got, DefaultWorkers)
	}
}

func TestGetDownloadWorkersClamped(t *testing.T) {
	cases := []struct {
		env  string
		want int
	}{
		{"0", 1},
		{"8", 8},
		{"1000", 64},
		{"not-a-number", DefaultWorkers},
	}
	for _, tc := range cases {
		t.Setenv(EnvDownloadWorkers, tc.env)
		if got := GetDownloadWorkers(); got != tc.want {
			t.Errorf("GetDownloadWorkers() with env %q = %d, want %d", tc.env, got, tc.want)
		}
	}
}

func TestGetDownloadRetriesClamped(t *testing.T) {
	t.Setenv(EnvDownloadRetries, "-1")
	if got := GetDownloadRetries(); got != 0 {
		t.Errorf("GetDownloadRetries() = %d, want 0", got)
	}
	t.Setenv(EnvDownloadRetries, "99")
	if got := GetDownloadRetries(); got != 10 {
		t.Errorf("GetDownloadRetries() = %d, want 10", got)
	}
}

func TestGetDownloadTimeout(t *testing.T) {
	t.Setenv(EnvDownloadTimeout, "")
	if got := GetDownloadTimeout(); got != DefaultTimeout {
		t.Errorf("GetDownloadTimeout() = %v, want %v", got, DefaultTimeout)
	}

	t.Setenv(EnvDownloadTimeout, "1ms")
	if got := GetDownloadTimeout(); got != 1*time.Second {
		t.Errorf("GetDownloadTimeout() = %v, want 1s floor", got)
	}

	t.Setenv(EnvDownloadTimeout, "1h")
	if got := GetDownloadTimeout(); got != 10*time.Minute {
		t.Errorf("GetDownloadTimeout() = %v, want 10m ceiling", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv(EnvInstlHome, t.TempDir())
	t.Setenv(EnvSyncBaseURL, "https://example.com/repo")

	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig() error: %v", err)
	}
	if cfg.SyncBaseURL != "https://example.com/repo" {
		t.Errorf("SyncBaseURL = %q", cfg.SyncBaseURL)
	}
	if cfg.HaveMapPath == "" || cfg.BookkeepingDir == "" {
		t.Errorf("expected derived paths to be populated, got %+v", cfg)
	}
}
