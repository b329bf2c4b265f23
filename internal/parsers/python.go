package parsers

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethanolivertroy/pinlock/internal/lockfile"
	"github.com/ethanolivertroy/pinlock/internal/logger"
	"github.com/ethanolivertroy/pinlock/internal/models"
)

// PythonRequirementsParser parses requirements manifests, hashed or not
type PythonRequirementsParser struct{}

// CanParse returns true for requirements files
func (p *PythonRequirementsParser) CanParse(filename string) bool {
	return filename == "requirements.txt" ||
		strings.HasSuffix(filename, "-requirements.txt") ||
		strings.HasSuffix(filename, "_requirements.txt") ||
		(strings.HasPrefix(filename, "requirements") && strings.HasSuffix(filename, ".txt"))
}

// Parse extracts pinned dependencies. Unpinned entries carry no single version
// to look up and are skipped; `pinlock validate` reports them. Malformed lines
// are logged and skipped so the rest of the file is still scanned.
func (p *PythonRequirementsParser) Parse(filepath string, content []byte) ([]models.Dependency, error) {
	m, errs, err := lockfile.ParseLenient(filepath, bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	for _, e := range errs {
		logger.Logger().Warnf("skipping line: %v", e)
	}

	var deps []models.Dependency
	for _, rec := range m.Records {
		if !rec.Pinned() {
			continue
		}
		deps = append(deps, rec.Dependency(filepath))
	}
	return deps, nil
}

// PythonPyProjectParser parses pyproject.toml files
type PythonPyProjectParser struct{}

// CanParse returns true for pyproject.toml files
func (p *PythonPyProjectParser) CanParse(filename string) bool {
	return filename == "pyproject.toml"
}

// pyproject represents the structure of pyproject.toml
type pyproject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]interface{} `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// pep508Pin matches exact pins such as "requests==2.28.0"
var pep508Pin = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*===?\s*([0-9][^\s,;]*)$`)

// Parse extracts exactly pinned dependencies from pyproject.toml content
func (p *PythonPyProjectParser) Parse(filepath string, content []byte) ([]models.Dependency, error) {
	var proj pyproject
	if err := toml.Unmarshal(content, &proj); err != nil {
		return nil, err
	}

	var deps []models.Dependency
	add := func(name, version string) {
		if name == "" || version == "" {
			return
		}
		deps = append(deps, models.Dependency{
			Name:       strings.ToLower(name),
			Version:    version,
			Ecosystem:  models.EcosystemPyPI,
			SourceFile: filepath,
		})
	}

	specs := append([]string(nil), proj.Project.Dependencies...)
	for _, group := range proj.Project.OptionalDependencies {
		specs = append(specs, group...)
	}
	for _, spec := range specs {
		add(parsePEP508(spec))
	}

	for name, val := range proj.Tool.Poetry.Dependencies {
		if name == "python" {
			continue
		}
		add(name, extractPoetryVersion(val))
	}

	return deps, nil
}

// parsePEP508 returns name and version of an exactly pinned PEP 508 specifier
func parsePEP508(spec string) (name string, version string) {
	if idx := strings.Index(spec, "["); idx > 0 {
		if end := strings.Index(spec, "]"); end > idx {
			spec = spec[:idx] + spec[end+1:]
		}
	}
	if idx := strings.Index(spec, ";"); idx > 0 {
		spec = spec[:idx]
	}

	if matches := pep508Pin.FindStringSubmatch(strings.TrimSpace(spec)); matches != nil {
		return matches[1], matches[2]
	}
	return "", ""
}

// extractPoetryVersion returns the version of an exact poetry constraint
func extractPoetryVersion(val interface{}) string {
	var v string
	switch t := val.(type) {
	case string:
		v = t
	case map[string]interface{}:
		v, _ = t["version"].(string)
	}
	v = strings.TrimPrefix(strings.TrimSpace(v), "==")
	if v == "" || strings.ContainsAny(v, "^~<>=*,|") {
		return ""
	}
	return v
}
