package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"squeeze/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config file")
	}
	if cfg.Queue.MaxConcurrentJobs != 2 {
		t.Fatalf("expected default max_concurrent_jobs 2, got %d", cfg.Queue.MaxConcurrentJobs)
	}
	if cfg.Queue.MaxQueueSize != 10 {
		t.Fatalf("expected default max_queue_size 10, got %d", cfg.Queue.MaxQueueSize)
	}
	if cfg.FFmpeg.FFmpegBinary != "ffmpeg" {
		t.Fatalf("expected default ffmpeg binary, got %q", cfg.FFmpeg.FFmpegBinary)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`upload_dir = "` + filepath.Join(dir, "up") + `"`,
		`output_dir = "` + filepath.Join(dir, "out") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"[queue]",
		"max_concurrent_jobs = 3",
		"max_queue_size = 20",
		"[logging]",
		`level = "DEBUG"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved path %q, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Queue.MaxConcurrentJobs != 3 {
		t.Fatalf("expected max_concurrent_jobs 3, got %d", cfg.Queue.MaxConcurrentJobs)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected level normalized to debug, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"concurrency exceeds queue size", func(c *config.Config) {
			c.Queue.MaxConcurrentJobs = 20
			c.Queue.MaxQueueSize = 5
		}},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "yaml" }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }},
		{"upload and output collide", func(c *config.Config) {
			c.Paths.UploadDir = "/tmp/same"
			c.Paths.OutputDir = "/tmp/same"
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path, false); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if err := config.CreateSample(path, false); err == nil {
		t.Fatal("expected error when sample already exists")
	}
	if err := config.CreateSample(path, true); err != nil {
		t.Fatalf("CreateSample with overwrite failed: %v", err)
	}
}
