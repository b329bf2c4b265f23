package reporter

import (
	"fmt"

	"github.com/ethanolivertroy/pinlock/internal/models"
)

// Reporter is the interface for output formatters
type Reporter interface {
	// Report generates output for the given report
	Report(report *models.Report) ([]byte, error)
}

// Get returns a reporter for the specified format
func Get(format string) (Reporter, error) {
	switch format {
	case "json":
		return &JSONReporter{}, nil
	case "sarif":
		return &SARIFReporter{}, nil
	case "terminal", "":
		return &TerminalReporter{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want terminal, json or sarif)", format)
}
