package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.QueueName != "default" {
		t.Fatalf("expected default queue, got %q", cfg.QueueName)
	}
	if cfg.WorkerPollInterval != 5*time.Second {
		t.Fatalf("expected 5s poll interval, got %s", cfg.WorkerPollInterval)
	}
	if cfg.DefaultQuestionLimit != 10 {
		t.Fatalf("expected default limit 10, got %d", cfg.DefaultQuestionLimit)
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("queue_name: generation\nworker_poll_interval: 2s\nstore_driver: mongo\nai_provider: gemini\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("WORKER_POLL_INTERVAL", "250")
	t.Setenv("AI_PROVIDER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.QueueName != "generation" {
		t.Fatalf("expected queue from file, got %q", cfg.QueueName)
	}
	if cfg.StoreDriver != "mongo" {
		t.Fatalf("expected mongo driver from file, got %q", cfg.StoreDriver)
	}
	if cfg.WorkerPollInterval != 250*time.Millisecond {
		t.Fatalf("expected env override in ms, got %s", cfg.WorkerPollInterval)
	}
	if cfg.AIProvider != "gemini" {
		t.Fatalf("expected provider from file, got %q", cfg.AIProvider)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORE_DRIVER", "sqlite")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown store driver")
	}
}
