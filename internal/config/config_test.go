package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
)

func TestLoadFromEnvironment(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("DATA_PATH", dataDir)
	t.Setenv("LOGS_FOLDER", "")
	os.Unsetenv("LOGS_FOLDER")
	t.Setenv("REFERENCE_TABLE_PATH", "tables/lms.json")
	t.Setenv("ENABLE_MERMAID_CHARTS", "false")
	t.Setenv("REPLAY_CONCURRENCY", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DataPath != dataDir {
		t.Errorf("DataPath = %q, want %q", cfg.DataPath, dataDir)
	}
	if want := filepath.Join(dataDir, "logs"); cfg.LogDir != want {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, want)
	}
	if want := filepath.Join(dataDir, "tables", "lms.json"); cfg.ReferenceTablePath != want {
		t.Errorf("ReferenceTablePath = %q, want %q", cfg.ReferenceTablePath, want)
	}
	if cfg.EnableMermaidCharts {
		t.Error("EnableMermaidCharts should be false")
	}
	if cfg.ReplayConcurrency != 8 {
		t.Errorf("ReplayConcurrency = %d, want 8", cfg.ReplayConcurrency)
	}
}

func TestLoadDefaultsAndClamps(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("REFERENCE_TABLE_PATH", "")
	t.Setenv("ENABLE_MERMAID_CHARTS", "not-a-bool")
	t.Setenv("REPLAY_CONCURRENCY", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ReferenceTablePath != "" {
		t.Errorf("ReferenceTablePath = %q, want empty", cfg.ReferenceTablePath)
	}
	if !cfg.EnableMermaidCharts {
		t.Error("EnableMermaidCharts should fall back to true")
	}
	if cfg.ReplayConcurrency != 1 {
		t.Errorf("ReplayConcurrency = %d, want 1", cfg.ReplayConcurrency)
	}
}

func TestGodotenvQuoting(t *testing.T) {
	content := `REFERENCE_TABLE_PATH='/srv/growth data/lms.json'`
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatalf("Error reading env: %v", err)
	}

	expected := `/srv/growth data/lms.json`
	if env["REFERENCE_TABLE_PATH"] != expected {
		t.Errorf("Expected %s, got %s", expected, env["REFERENCE_TABLE_PATH"])
	}
}
