package models

import "regexp"

// Ecosystem represents a package ecosystem
type Ecosystem string

const (
	EcosystemPyPI Ecosystem = "PyPI"
	EcosystemGo   Ecosystem = "Go"
)

// Dependency represents a single package dependency found while scanning
type Dependency struct {
	Name       string
	Version    string
	Ecosystem  Ecosystem
	SourceFile string // File where this dependency was found
	Line       int    // Line number in source file (if available)
	Hashes     HashSet
}

// String returns a human-readable representation
func (d Dependency) String() string {
	return d.Name + "@" + d.Version
}

var separatorRun = regexp.MustCompile(`[-_.]+`)

// NormalizeName returns the PEP 503 normalized form of a Python package name.
func NormalizeName(name string) string {
	out := []byte(separatorRun.ReplaceAllString(name, "-"))
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + ('a' - 'A')
		}
	}
	return string(out)
}
