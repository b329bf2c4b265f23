// Package lockfile reads, writes and validates hash-pinned requirements manifests.
package lockfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ethanolivertroy/pinlock/internal/models"
)

// ParseError reports malformed manifest syntax
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// requirementPattern matches name[extras]<op>version
var requirementPattern = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*(?:\[([^\]]*)\])?\s*(?:(===|==|~=|!=|<=|>=|<|>)\s*(\S.*?))?\s*$`)

type logicalLine struct {
	num  int
	text string
}

// Load parses the manifest at path
func Load(path string) (*models.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(path, f)
}

// Parse reads a requirements manifest. The first syntax error aborts parsing.
func Parse(path string, r io.Reader) (*models.Manifest, error) {
	m, errs, err := parse(path, r, false)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return m, nil
}

// ParseLenient reads a manifest, skipping malformed logical lines instead of
// aborting. The skipped lines are returned as parse errors.
func ParseLenient(path string, r io.Reader) (*models.Manifest, []*ParseError, error) {
	return parse(path, r, true)
}

func parse(path string, r io.Reader, lenient bool) (*models.Manifest, []*ParseError, error) {
	lines, err := joinContinuations(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var errs []*ParseError

	m := &models.Manifest{Path: path}
	attach := -1 // index of the record that trailing comments belong to

	for _, ll := range lines {
		trimmed := strings.TrimSpace(ll.text)

		switch {
		case trimmed == "":
			attach = -1

		case strings.HasPrefix(trimmed, "#"):
			text := commentText(trimmed)
			if attach >= 0 {
				rec := &m.Records[attach]
				if rec.Comment == "" {
					rec.Comment = text
				} else {
					rec.Comment += "\n" + text
				}
			} else if len(m.Records) == 0 {
				m.Header = append(m.Header, text)
			}

		case strings.HasPrefix(trimmed, "--hash"):
			errs = append(errs, &ParseError{Path: path, Line: ll.num, Msg: "--hash must follow a requirement on a continued line"})
			attach = -1
			if !lenient {
				return nil, errs, nil
			}

		case strings.HasPrefix(trimmed, "-"):
			m.Options = append(m.Options, strings.Join(strings.Fields(trimmed), " "))
			attach = -1

		default:
			rec, err := parseRequirement(trimmed)
			if err != nil {
				errs = append(errs, &ParseError{Path: path, Line: ll.num, Msg: err.Error()})
				attach = -1
				if !lenient {
					return nil, errs, nil
				}
				continue
			}
			rec.Line = ll.num
			m.Records = append(m.Records, rec)
			attach = len(m.Records) - 1
		}
	}

	return m, errs, nil
}

// joinContinuations folds lines ending in a backslash into one logical line
func joinContinuations(r io.Reader) ([]logicalLine, error) {
	var out []logicalLine
	var pending strings.Builder
	start := 0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	num := 0
	for sc.Scan() {
		num++
		line := strings.TrimRight(sc.Text(), " \t\r")
		if pending.Len() == 0 {
			start = num
		}
		if strings.HasSuffix(line, `\`) {
			pending.WriteString(strings.TrimSuffix(line, `\`))
			pending.WriteByte(' ')
			continue
		}
		pending.WriteString(line)
		out = append(out, logicalLine{num: start, text: pending.String()})
		pending.Reset()
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if pending.Len() > 0 {
		out = append(out, logicalLine{num: start, text: pending.String()})
	}
	return out, nil
}

func commentText(s string) string {
	s = strings.TrimPrefix(s, "#")
	return strings.TrimPrefix(s, " ")
}

func parseRequirement(line string) (models.Record, error) {
	var rec models.Record

	// Inline comment must be preceded by whitespace
	if idx := inlineCommentIndex(line); idx >= 0 {
		rec.Comment = commentText(strings.TrimSpace(line[idx:]))
		line = strings.TrimSpace(line[:idx])
	}

	body, opts := splitOptions(line)

	if err := parseOptions(opts, &rec); err != nil {
		return rec, err
	}

	if idx := strings.Index(body, ";"); idx >= 0 {
		rec.Marker = strings.TrimSpace(body[idx+1:])
		body = strings.TrimSpace(body[:idx])
	}

	if strings.Contains(body, " @ ") || strings.Contains(body, "://") {
		return rec, fmt.Errorf("direct reference %q cannot be pinned by version", body)
	}

	matches := requirementPattern.FindStringSubmatch(body)
	if matches == nil {
		return rec, fmt.Errorf("invalid requirement %q", body)
	}

	rec.Name = matches[1]
	if matches[2] != "" {
		for _, extra := range strings.Split(matches[2], ",") {
			if extra = strings.TrimSpace(extra); extra != "" {
				rec.Extras = append(rec.Extras, extra)
			}
		}
	}
	rec.Operator = matches[3]
	rec.Version = strings.TrimSpace(matches[4])
	return rec, nil
}

func inlineCommentIndex(line string) int {
	for i := 1; i < len(line); i++ {
		if line[i] == '#' && (line[i-1] == ' ' || line[i-1] == '\t') {
			return i
		}
	}
	return -1
}

// splitOptions separates the requirement specifier from trailing per-requirement options
func splitOptions(line string) (body string, opts []string) {
	for i := 1; i < len(line)-1; i++ {
		if line[i] == '-' && line[i+1] == '-' && (line[i-1] == ' ' || line[i-1] == '\t') {
			return strings.TrimSpace(line[:i]), strings.Fields(line[i:])
		}
	}
	return strings.TrimSpace(line), nil
}

func parseOptions(opts []string, rec *models.Record) error {
	for i := 0; i < len(opts); i++ {
		opt := opts[i]
		var value string

		switch {
		case strings.HasPrefix(opt, "--hash="):
			value = strings.TrimPrefix(opt, "--hash=")
		case opt == "--hash":
			if i+1 >= len(opts) {
				return fmt.Errorf("--hash requires a value")
			}
			i++
			value = opts[i]
		default:
			return fmt.Errorf("unsupported per-requirement option %q", opt)
		}

		d, err := models.ParseDigest(value)
		if err != nil {
			return err
		}
		rec.Hashes = append(rec.Hashes, d)
	}
	return nil
}
