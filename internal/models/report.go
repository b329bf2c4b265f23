package models

import "time"

// Severity of a validation issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a problem found while validating a manifest
type Issue struct {
	Severity Severity
	Code     string
	Name     string // record name, empty for file-level issues
	File     string
	Line     int
	Message  string
}

// Outcome of verifying one artifact
type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeHashMismatch    Outcome = "hash-mismatch"
	OutcomeVersionMismatch Outcome = "version-mismatch"
	OutcomeUnknownPackage  Outcome = "unknown-package"
	OutcomeNoHashes        Outcome = "no-hashes"
	OutcomeUnreadable      Outcome = "unreadable"
)

// VerifyResult is the verification outcome for one artifact file
type VerifyResult struct {
	Path     string
	Name     string
	Version  string
	Outcome  Outcome
	Digest   Digest // matched digest, or the computed one on mismatch
	Expected HashSet
	Line     int // manifest line of the matching record
	Detail   string
}

// OK reports whether the artifact was accepted
func (v VerifyResult) OK() bool {
	return v.Outcome == OutcomeOK
}

// Report collects everything a command produced for output
type Report struct {
	RunID    string
	Command  string
	Issues   []Issue
	Results  []VerifyResult
	Findings []Finding
}

// Failed reports whether the report should produce a non-zero exit
func (r *Report) Failed(failOnKEV bool) bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	for _, v := range r.Results {
		if !v.OK() {
			return true
		}
	}
	return failOnKEV && len(r.Findings) > 0
}

// Finding is a dependency with CVEs, at least one of which is in the KEV catalog
type Finding struct {
	Dependency Dependency
	CVEs       []CVEInfo
	KEVs       []KEVInfo
}

// HasKEV returns true if this finding has any KEV vulnerabilities
func (f Finding) HasKEV() bool {
	return len(f.KEVs) > 0
}

// RansomwareCount counts KEVs with known ransomware campaign use
func (f Finding) RansomwareCount() int {
	n := 0
	for _, kev := range f.KEVs {
		if kev.RansomwareUse {
			n++
		}
	}
	return n
}

// CVEInfo is one CVE reported by OSV for a dependency
type CVEInfo struct {
	ID      string
	Summary string
	Source  string
}

// KEVInfo is a CISA Known Exploited Vulnerabilities catalog entry, with EPSS enrichment
type KEVInfo struct {
	CVEID             string
	VendorProject     string
	Product           string
	VulnerabilityName string
	DateAdded         time.Time
	DueDate           time.Time
	ShortDescription  string
	RequiredAction    string
	RansomwareUse     bool
	CWEs              []string
	Notes             string
	EPSSScore         float64
	EPSSPercentile    float64
}

// EPSSScore represents EPSS scoring data
type EPSSScore struct {
	Score      float64
	Percentile float64
}
