package models

import "time"

// Config holds the resolved runtime configuration
type Config struct {
	// Paths to scan for dependency files
	Paths []string

	// Output settings
	OutputFormat string // "terminal", "json", "sarif"
	OutputFile   string // Optional output file path
	LogLevel     string

	// Manifest policy
	RequireHashes     bool
	AllowedAlgorithms []string

	// Verification
	Workers  int
	Progress bool

	// Scan behavior
	FailOnKEV     bool    // Exit with code 1 if KEVs found
	EPSSThreshold float64 // Only report if EPSS >= threshold (0-1)

	// Feed endpoints; empty means the public default
	KEVURL  string
	OSVURL  string
	EPSSURL string

	// Cache settings
	CacheTTL time.Duration
	NoCache  bool

	// API settings
	Timeout     time.Duration
	PyPIURL     string
	KeyringPath string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Paths:             []string{"."},
		OutputFormat:      "terminal",
		LogLevel:          "info",
		RequireHashes:     true,
		AllowedAlgorithms: []string{"sha256", "sha384", "sha512"},
		Workers:           4,
		FailOnKEV:         true,
		EPSSThreshold:     0,
		CacheTTL:          24 * time.Hour,
		NoCache:           false,
		Timeout:           60 * time.Second,
		PyPIURL:           "https://pypi.org",
	}
}
