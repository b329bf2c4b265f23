package lockfile

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethanolivertroy/pinlock/internal/models"
	"gopkg.in/yaml.v3"
)

type tuple struct {
	version string
	hashes  models.HashSet
}

func tuples(m *models.Manifest) map[string]tuple {
	out := make(map[string]tuple)
	for _, r := range m.Records {
		out[r.Key()] = tuple{version: r.Version, hashes: r.Hashes}
	}
	return out
}

func sameTuples(t *testing.T, a, b *models.Manifest) {
	t.Helper()
	ta, tb := tuples(a), tuples(b)
	if len(ta) != len(tb) {
		t.Fatalf("record count differs: %d vs %d", len(ta), len(tb))
	}
	for name, x := range ta {
		y, ok := tb[name]
		if !ok {
			t.Fatalf("%s missing after round trip", name)
		}
		if x.version != y.version || !x.hashes.Equal(y.hashes) {
			t.Fatalf("%s differs: %+v vs %+v", name, x, y)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	m, err := Parse("requirements.txt", strings.NewReader(compiled))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	out := Format(m)
	again, err := Parse("requirements.txt", bytes.NewReader(out))
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, out)
	}
	sameTuples(t, m, again)

	if !bytes.Equal(out, Format(again)) {
		t.Fatalf("canonical form is not stable:\n%s\n---\n%s", out, Format(again))
	}
	if rec, _ := again.Lookup("requests"); rec.Comment != "via\n  -r requirements.in" {
		t.Fatalf("comment lost: %q", rec.Comment)
	}
}

func TestRoundTripIgnoresEntryOrder(t *testing.T) {
	a := "six==1.16.0 --hash=sha256:" + requestsHash + "\nidna==2.10 --hash=sha256:" + idnaHash + "\n"
	b := "idna==2.10 --hash=sha256:" + idnaHash + "\nsix==1.16.0 --hash=sha256:" + requestsHash + "\n"

	ma, err := Parse("a", strings.NewReader(a))
	if err != nil {
		t.Fatal(err)
	}
	mb, err := Parse("b", strings.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}

	sameTuples(t, ma, mb)
	if !bytes.Equal(Format(ma), Format(mb)) {
		t.Fatalf("canonical output depends on entry order")
	}
}

func TestFormatLayout(t *testing.T) {
	m := &models.Manifest{Records: []models.Record{{
		Name:     "idna",
		Operator: "==",
		Version:  "2.10",
		Hashes: models.HashSet{
			{Algorithm: "sha256", Hex: requestsHash},
			{Algorithm: "sha256", Hex: idnaHash},
		},
		Comment: "via requests",
	}}}

	want := "idna==2.10 \\\n" +
		"    --hash=sha256:" + requestsHash + " \\\n" +
		"    --hash=sha256:" + idnaHash + "\n" +
		"    # via requests\n"
	if got := string(Format(m)); got != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestExportYAML(t *testing.T) {
	m, err := Parse("requirements.txt", strings.NewReader(compiled))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Export(&buf, m, "yaml"); err != nil {
		t.Fatalf("export: %v", err)
	}

	var doc exportManifest
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("yaml decode: %v", err)
	}
	if len(doc.Records) != 3 || doc.Records[0].Name != "idna" {
		t.Fatalf("unexpected records %+v", doc.Records)
	}
	if doc.Records[0].Hashes[0] != "sha256:"+idnaHash {
		t.Fatalf("unexpected hash %q", doc.Records[0].Hashes[0])
	}

	if err := Export(&buf, m, "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestExportKeepsOperator(t *testing.T) {
	m, err := Parse("requirements.txt", strings.NewReader("flask>=2\nidna==2.10\n"))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Export(&buf, m, "json"); err != nil {
		t.Fatalf("export: %v", err)
	}

	var doc exportManifest
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	flask, idna := doc.Records[0], doc.Records[1]
	if flask.Operator != ">=" || flask.Version != "2" || flask.Pinned {
		t.Fatalf("unpinned record exported as %+v", flask)
	}
	if idna.Operator != "==" || !idna.Pinned {
		t.Fatalf("pinned record exported as %+v", idna)
	}
}
