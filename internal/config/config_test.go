package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %s, want data", cfg.DataDir)
	}
	if cfg.Lock.WaitTimeout != 0 || cfg.Lock.FileLocks {
		t.Errorf("lock defaults = %+v", cfg.Lock)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %s, want info", cfg.Logging.Level)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flatdb.yaml")
	content := `
data_dir: /var/lib/flatdb
lock:
  wait_timeout: 2s
  file_locks: true
logging:
  level: debug
  seq_url: http://localhost:5341
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != "/var/lib/flatdb" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.Lock.WaitTimeout.Std() != 2*time.Second {
		t.Errorf("WaitTimeout = %v, want 2s", cfg.Lock.WaitTimeout.Std())
	}
	if !cfg.Lock.FileLocks {
		t.Error("FileLocks not parsed")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.SeqURL != "http://localhost:5341" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad duration", "lock:\n  wait_timeout: soon\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"empty data dir", "data_dir: \"\"\n"},
		{"not yaml", ": : :\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "flatdb.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load accepted invalid config")
			}
		})
	}
}
