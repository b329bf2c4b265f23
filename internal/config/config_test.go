package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pinlock.yaml")
	os.WriteFile(path, []byte(`
log_level: debug
require_hashes: false
allowed_algorithms: [sha256]
workers: 8
timeout: 30s
cache:
  ttl: 2h
scan:
  fail_on_kev: false
  epss_threshold: 0.25
`), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.RequireHashes || cfg.Workers != 8 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.AllowedAlgorithms) != 1 || cfg.AllowedAlgorithms[0] != "sha256" {
		t.Fatalf("unexpected algorithms %v", cfg.AllowedAlgorithms)
	}
	if cfg.Timeout != 30*time.Second || cfg.CacheTTL != 2*time.Hour {
		t.Fatalf("unexpected durations %v %v", cfg.Timeout, cfg.CacheTTL)
	}
	if cfg.FailOnKEV || cfg.EPSSThreshold != 0.25 {
		t.Fatalf("unexpected scan settings %+v", cfg)
	}
	// untouched defaults survive
	if cfg.OutputFormat != "terminal" || cfg.PyPIURL != "https://pypi.org" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pinlock.toml")
	os.WriteFile(path, []byte(`
format = "sarif"
workers = 2
pypi_url = "https://mirror.example.com/"

[cache]
disabled = true
`), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OutputFormat != "sarif" || cfg.Workers != 2 || !cfg.NoCache {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.PyPIURL != "https://mirror.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.PyPIURL)
	}
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	tests := map[string]string{
		"unknown key":       "colour: blue\n",
		"bad algorithm":     "allowed_algorithms: [md5]\n",
		"workers too large": "workers: 1000\n",
		"bad duration":      "timeout: soon\n",
		"threshold range":   "scan:\n  epss_threshold: 2\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("c.yaml", []byte(doc))
			if err == nil || !strings.Contains(err.Error(), "invalid config") {
				t.Fatalf("expected schema error, got %v", err)
			}
		})
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	os.Chdir(dir)
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.RequireHashes || cfg.Workers != 4 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	if _, err := Parse("c.yaml", []byte("")); err != nil {
		t.Fatalf("empty config should be valid: %v", err)
	}
}
