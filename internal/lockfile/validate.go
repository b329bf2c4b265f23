package lockfile

import (
	"fmt"
	"sort"

	"github.com/ethanolivertroy/pinlock/internal/models"
)

// Issue codes reported by Validate
const (
	CodeDuplicateName       = "duplicate-name"
	CodeUnpinned            = "unpinned"
	CodeMissingHashes       = "missing-hashes"
	CodeDisallowedAlgorithm = "disallowed-algorithm"
	CodeDuplicateHash       = "duplicate-hash"

	// CodeSyntax marks a manifest that failed to parse
	CodeSyntax = "syntax"
)

// ValidateOptions controls manifest policy
type ValidateOptions struct {
	// RequireHashes makes a record without hashes an error. Hash-checking mode is
	// also enabled by a --require-hashes option line or by any record carrying hashes.
	RequireHashes bool

	// AllowedAlgorithms restricts digest algorithms; empty allows every supported one.
	AllowedAlgorithms []string
}

// Validate checks the manifest invariants and returns the issues ordered by line
func Validate(m *models.Manifest, opts ValidateOptions) []models.Issue {
	var issues []models.Issue
	add := func(sev models.Severity, code string, rec models.Record, format string, args ...interface{}) {
		issues = append(issues, models.Issue{
			Severity: sev,
			Code:     code,
			Name:     rec.Name,
			File:     m.Path,
			Line:     rec.Line,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	hashMode := opts.RequireHashes || m.HasOption("--require-hashes")
	for _, rec := range m.Records {
		if len(rec.Hashes) > 0 {
			hashMode = true
			break
		}
	}

	allowed := make(map[string]bool)
	for _, alg := range opts.AllowedAlgorithms {
		allowed[alg] = true
	}

	firstLine := make(map[string]int)
	for _, rec := range m.Records {
		if line, dup := firstLine[rec.Key()]; dup {
			add(models.SeverityError, CodeDuplicateName, rec,
				"%s is already pinned on line %d", rec.Name, line)
		} else {
			firstLine[rec.Key()] = rec.Line
		}

		if !rec.Pinned() {
			add(models.SeverityError, CodeUnpinned, rec,
				"%s is not pinned to an exact version (%q)", rec.Name, rec.Operator+rec.Version)
		}

		if len(rec.Hashes) == 0 {
			sev := models.SeverityWarning
			if hashMode {
				sev = models.SeverityError
			}
			add(sev, CodeMissingHashes, rec, "%s has no --hash entries", rec.Name)
			continue
		}

		seen := make(map[models.Digest]bool)
		for _, d := range rec.Hashes {
			if len(allowed) > 0 && !allowed[d.Algorithm] {
				add(models.SeverityError, CodeDisallowedAlgorithm, rec,
					"%s uses disallowed hash algorithm %s", rec.Name, d.Algorithm)
			}
			if seen[d] {
				add(models.SeverityWarning, CodeDuplicateHash, rec,
					"%s lists %s more than once", rec.Name, d)
			}
			seen[d] = true
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Line < issues[j].Line
	})
	return issues
}

// HasErrors reports whether any issue is an error
func HasErrors(issues []models.Issue) bool {
	for _, i := range issues {
		if i.Severity == models.SeverityError {
			return true
		}
	}
	return false
}
