package models

import "strings"

// Record is one pinned entry of a requirements manifest.
type Record struct {
	Name     string
	Extras   []string
	Operator string // "==" or "===" for pinned records
	Version  string
	Marker   string
	Hashes   HashSet
	Comment  string
	Line     int
}

// Key returns the normalized name used for uniqueness checks.
func (r Record) Key() string {
	return NormalizeName(r.Name)
}

// Pinned reports whether the record names one exact version.
func (r Record) Pinned() bool {
	if r.Operator != "==" && r.Operator != "===" {
		return false
	}
	return r.Version != "" && !strings.Contains(r.Version, "*")
}

// Requirement renders the requirement specifier without hashes or comments.
func (r Record) Requirement() string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	if len(r.Extras) > 0 {
		sb.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	if r.Operator != "" {
		sb.WriteString(r.Operator + r.Version)
	}
	if r.Marker != "" {
		sb.WriteString(" ; " + r.Marker)
	}
	return sb.String()
}

// Dependency converts the record into a scan dependency.
func (r Record) Dependency(source string) Dependency {
	return Dependency{
		Name:       strings.ToLower(r.Name),
		Version:    r.Version,
		Ecosystem:  EcosystemPyPI,
		SourceFile: source,
		Line:       r.Line,
		Hashes:     r.Hashes,
	}
}

// Manifest is a parsed requirements lockfile.
type Manifest struct {
	Path    string
	Options []string // global option lines, e.g. "--index-url https://..."
	Header  []string // leading comment lines, without the "#"
	Records []Record
}

// Lookup returns the first record whose normalized name matches name.
func (m *Manifest) Lookup(name string) (Record, bool) {
	key := NormalizeName(name)
	for _, r := range m.Records {
		if r.Key() == key {
			return r, true
		}
	}
	return Record{}, false
}

// HasOption reports whether a global option line starts with opt.
func (m *Manifest) HasOption(opt string) bool {
	for _, o := range m.Options {
		if o == opt || strings.HasPrefix(o, opt+" ") || strings.HasPrefix(o, opt+"=") {
			return true
		}
	}
	return false
}
