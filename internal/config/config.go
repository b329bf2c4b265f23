// Package config loads pinlock settings from .pinlock.yaml or .pinlock.toml.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethanolivertroy/pinlock/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"
)

//go:embed schema.json
var schemaJSON string

// DefaultFiles are searched in the working directory when no path is given
var DefaultFiles = []string{".pinlock.yaml", ".pinlock.yml", ".pinlock.toml"}

// File mirrors the on-disk configuration
type File struct {
	LogLevel          string     `json:"log_level,omitempty"`
	Format            string     `json:"format,omitempty"`
	RequireHashes     *bool      `json:"require_hashes,omitempty"`
	AllowedAlgorithms []string   `json:"allowed_algorithms,omitempty"`
	Workers           int        `json:"workers,omitempty"`
	Progress          *bool      `json:"progress,omitempty"`
	Keyring           string     `json:"keyring,omitempty"`
	PyPIURL           string     `json:"pypi_url,omitempty"`
	Timeout           string     `json:"timeout,omitempty"`
	Cache             *CacheFile `json:"cache,omitempty"`
	Scan              *ScanFile  `json:"scan,omitempty"`
}

type CacheFile struct {
	Disabled *bool  `json:"disabled,omitempty"`
	TTL      string `json:"ttl,omitempty"`
}

type ScanFile struct {
	FailOnKEV     *bool    `json:"fail_on_kev,omitempty"`
	EPSSThreshold *float64 `json:"epss_threshold,omitempty"`
	KEVURL        string   `json:"kev_url,omitempty"`
	OSVURL        string   `json:"osv_url,omitempty"`
	EPSSURL       string   `json:"epss_url,omitempty"`
}

var compiled *jsonschema.Schema

func schema() (*jsonschema.Schema, error) {
	if compiled != nil {
		return compiled, nil
	}
	s, err := jsonschema.CompileString("pinlock.schema.json", schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("invalid embedded schema: %w", err)
	}
	compiled = s
	return s, nil
}

// Load reads the configuration at path, or the first default file present when
// path is empty, and merges it over models.DefaultConfig. A missing default file
// is not an error.
func Load(path string) (*models.Config, error) {
	cfg := models.DefaultConfig()

	if path == "" {
		for _, name := range DefaultFiles {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	f, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	if err := f.Apply(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML or TOML (by extension) and validates it against the schema
func Parse(path string, data []byte) (*File, error) {
	var jsonData []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var raw map[string]interface{}
		if _, err = toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		jsonData, err = json.Marshal(raw)
	case ".yaml", ".yml", "":
		jsonData, err = yaml.YAMLToJSON(data)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// empty documents decode to null
	if bytes.Equal(bytes.TrimSpace(jsonData), []byte("null")) {
		jsonData = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	s, err := schema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, fmt.Errorf("invalid config %s: %s", path, ve.Error())
		}
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(jsonData, &f); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &f, nil
}

// Apply overlays the file's values onto cfg
func (f *File) Apply(cfg *models.Config) error {
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.Format != "" {
		cfg.OutputFormat = f.Format
	}
	if f.RequireHashes != nil {
		cfg.RequireHashes = *f.RequireHashes
	}
	if len(f.AllowedAlgorithms) > 0 {
		cfg.AllowedAlgorithms = f.AllowedAlgorithms
	}
	if f.Workers > 0 {
		cfg.Workers = f.Workers
	}
	if f.Progress != nil {
		cfg.Progress = *f.Progress
	}
	if f.Keyring != "" {
		cfg.KeyringPath = f.Keyring
	}
	if f.PyPIURL != "" {
		cfg.PyPIURL = strings.TrimRight(f.PyPIURL, "/")
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if f.Cache != nil {
		if f.Cache.Disabled != nil {
			cfg.NoCache = *f.Cache.Disabled
		}
		if f.Cache.TTL != "" {
			d, err := time.ParseDuration(f.Cache.TTL)
			if err != nil {
				return fmt.Errorf("invalid cache ttl: %w", err)
			}
			cfg.CacheTTL = d
		}
	}
	if f.Scan != nil {
		if f.Scan.FailOnKEV != nil {
			cfg.FailOnKEV = *f.Scan.FailOnKEV
		}
		if f.Scan.EPSSThreshold != nil {
			cfg.EPSSThreshold = *f.Scan.EPSSThreshold
		}
		cfg.KEVURL = orDefault(f.Scan.KEVURL, cfg.KEVURL)
		cfg.OSVURL = orDefault(f.Scan.OSVURL, cfg.OSVURL)
		cfg.EPSSURL = orDefault(f.Scan.EPSSURL, cfg.EPSSURL)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
