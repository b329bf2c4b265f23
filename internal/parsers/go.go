package parsers

import (
	"strings"

	"github.com/ethanolivertroy/pinlock/internal/models"
	"golang.org/x/mod/modfile"
)

// GoModParser parses go.mod files of tooling shipped alongside the Python deployment
type GoModParser struct {
	IncludeIndirect bool // Whether to include indirect dependencies
}

// CanParse returns true for go.mod files
func (p *GoModParser) CanParse(filename string) bool {
	return filename == "go.mod"
}

// Parse extracts dependencies from go.mod content
func (p *GoModParser) Parse(filepath string, content []byte) ([]models.Dependency, error) {
	mod, err := modfile.Parse(filepath, content, nil)
	if err != nil {
		return nil, err
	}

	var deps []models.Dependency
	for _, req := range mod.Require {
		if req.Indirect && !p.IncludeIndirect {
			continue
		}

		var line int
		if req.Syntax != nil {
			line = req.Syntax.Start.Line
		}

		deps = append(deps, models.Dependency{
			Name:       req.Mod.Path,
			Version:    strings.TrimPrefix(req.Mod.Version, "v"), // OSV wants bare versions
			Ecosystem:  models.EcosystemGo,
			SourceFile: filepath,
			Line:       line,
		})
	}

	return deps, nil
}
