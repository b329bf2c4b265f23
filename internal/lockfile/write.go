package lockfile

import (
	"bufio"
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/ethanolivertroy/pinlock/internal/models"
)

// Format returns the canonical serialization of m
func Format(m *models.Manifest) []byte {
	var buf bytes.Buffer
	_ = Write(&buf, m)
	return buf.Bytes()
}

// Write serializes m in canonical form: options, header, then records sorted by
// normalized name with one hash per continuation line.
func Write(w io.Writer, m *models.Manifest) error {
	bw := bufio.NewWriter(w)

	for _, opt := range m.Options {
		bw.WriteString(opt + "\n")
	}
	for _, h := range m.Header {
		bw.WriteString(commentLine("", h))
	}
	if (len(m.Options) > 0 || len(m.Header) > 0) && len(m.Records) > 0 {
		bw.WriteString("\n")
	}

	for _, rec := range sortedRecords(m.Records) {
		writeRecord(bw, rec)
	}

	return bw.Flush()
}

func sortedRecords(records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Key() != out[j].Key() {
			return out[i].Key() < out[j].Key()
		}
		return out[i].Version < out[j].Version
	})
	return out
}

func writeRecord(bw *bufio.Writer, rec models.Record) {
	hashes := rec.Hashes.Sorted()

	bw.WriteString(rec.Requirement())
	for _, d := range hashes {
		bw.WriteString(" \\\n    --hash=" + d.String())
	}
	bw.WriteString("\n")

	if rec.Comment != "" {
		for _, line := range strings.Split(rec.Comment, "\n") {
			bw.WriteString(commentLine("    ", line))
		}
	}
}

func commentLine(indent, text string) string {
	if text == "" {
		return indent + "#\n"
	}
	return indent + "# " + text + "\n"
}
