package lockfile

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethanolivertroy/pinlock/internal/models"
	"gopkg.in/yaml.v3"
)

type exportRecord struct {
	Name     string   `json:"name" yaml:"name"`
	Operator string   `json:"operator,omitempty" yaml:"operator,omitempty"`
	Version  string   `json:"version" yaml:"version"`
	Pinned   bool     `json:"pinned" yaml:"pinned"`
	Extras   []string `json:"extras,omitempty" yaml:"extras,omitempty"`
	Marker   string   `json:"marker,omitempty" yaml:"marker,omitempty"`
	Hashes   []string `json:"hashes" yaml:"hashes"`
	Comment  string   `json:"comment,omitempty" yaml:"comment,omitempty"`
}

type exportManifest struct {
	Source  string         `json:"source,omitempty" yaml:"source,omitempty"`
	Options []string       `json:"options,omitempty" yaml:"options,omitempty"`
	Records []exportRecord `json:"records" yaml:"records"`
}

// Export writes m as a JSON or YAML document
func Export(w io.Writer, m *models.Manifest, format string) error {
	doc := exportManifest{
		Source:  m.Path,
		Options: m.Options,
		Records: make([]exportRecord, 0, len(m.Records)),
	}
	for _, rec := range sortedRecords(m.Records) {
		er := exportRecord{
			Name:     rec.Name,
			Operator: rec.Operator,
			Version:  rec.Version,
			Pinned:   rec.Pinned(),
			Extras:   rec.Extras,
			Marker:   rec.Marker,
			Hashes:   make([]string, 0, len(rec.Hashes)),
			Comment:  rec.Comment,
		}
		for _, d := range rec.Hashes.Sorted() {
			er.Hashes = append(er.Hashes, d.String())
		}
		doc.Records = append(doc.Records, er)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
