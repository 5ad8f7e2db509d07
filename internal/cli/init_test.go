package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"estimator/internal/config"
	"estimator/internal/log"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=4321\nLOG_FORMAT=json\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	chdir(t, dir)
	t.Setenv("PORT", "")
	t.Setenv("LOG_FORMAT", "")
	os.Unsetenv("PORT")
	os.Unsetenv("LOG_FORMAT")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "4321" || cfg.LogFormat != "json" {
		t.Fatalf("env file not applied: port=%s format=%s", cfg.Port, cfg.LogFormat)
	}
}

func TestLoadConfigWithoutEnvFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "nope")
	_, err := LoadConfig()
	if err == nil || !strings.Contains(err.Error(), "invalid port 'nope'") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "text"}, log.ComponentCLI)
	if logger.Component() != log.ComponentCLI {
		t.Fatalf("component = %q", logger.Component())
	}
}
