package cmd

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethanolivertroy/pinlock/internal/digest"
	"github.com/klauspost/compress/zip"
)

const idnaHash = "b97d804b1e9b523befed77c48dacec60e6dcb0b5391d57af6a65a312a90648c0"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSubcommandsRegistered(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"validate", "fmt", "export", "verify", "hash", "sign", "verify-signature", "scan"} {
		c, _, err := root.Find([]string{name})
		if err != nil || c == nil || c.Name() != name {
			t.Fatalf("%s not registered: %v", name, err)
		}
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "idna==2.10 --hash=sha256:"+idnaHash+"\n")
	bad := writeFile(t, dir, "bad.txt", "idna==2.10 --hash=sha256:"+idnaHash+"\nflask>=2\n")
	broken := writeFile(t, dir, "broken.txt", "idna==2.10 --hash=md5:abc\n")

	if _, err := run(t, "validate", good); err != nil {
		t.Fatalf("expected clean manifest to pass: %v", err)
	}

	out, err := run(t, "validate", "--format", "json", bad, broken)
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v", err)
	}
	for _, want := range []string{`"code": "unpinned"`, `"code": "missing-hashes"`, `"code": "syntax"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in output:\n%s", want, out)
		}
	}
}

func TestValidateMissingFile(t *testing.T) {
	_, err := run(t, "validate", filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil || errors.Is(err, errFailed) {
		t.Fatalf("expected a command error, got %v", err)
	}
}

func TestFmtCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "requirements.txt",
		"six==1.16.0 --hash=sha256:"+strings.Repeat("a", 64)+"\nidna==2.10 --hash=sha256:"+idnaHash+"\n")

	if _, err := run(t, "fmt", "--check", path); !errors.Is(err, errFailed) {
		t.Fatalf("expected non-canonical file to fail --check, got %v", err)
	}
	if _, err := run(t, "fmt", "--write", path); err != nil {
		t.Fatalf("fmt --write: %v", err)
	}
	if _, err := run(t, "fmt", "--check", path); err != nil {
		t.Fatalf("expected canonical file after --write, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "idna==2.10 \\\n") {
		t.Fatalf("unexpected canonical output:\n%s", data)
	}
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "requirements.txt", "idna==2.10 --hash=sha256:"+idnaHash+"\n")

	out, err := run(t, "export", "--as", "yaml", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "name: idna") || !strings.Contains(out, "sha256:"+idnaHash) {
		t.Fatalf("unexpected yaml:\n%s", out)
	}
}

func writeWheel(t *testing.T, dir, payload string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("idna-2.10.dist-info/METADATA")
	w.Write([]byte("Metadata-Version: 2.1\nName: idna\nVersion: 2.10\n"))
	w, _ = zw.Create("idna/__init__.py")
	w.Write([]byte(payload))
	zw.Close()
	return writeFile(t, dir, "idna-2.10-py2.py3-none-any.whl", buf.String())
}

func TestVerifyCommand(t *testing.T) {
	dir := t.TempDir()
	wheels := filepath.Join(dir, "wheels")
	os.Mkdir(wheels, 0755)
	wheel := writeWheel(t, wheels, "# idna\n")

	d, err := digest.ComputeFile(wheel, "sha256")
	if err != nil {
		t.Fatal(err)
	}
	lock := writeFile(t, dir, "requirements.txt", "idna==2.10 --hash="+d.String()+"\n")

	out, err := run(t, "verify", "--lock", lock, "-j", "2", wheels)
	if err != nil {
		t.Fatalf("verify: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Verified 1 artifacts, 0 rejected") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	// tampered artifact fails closed
	writeWheel(t, wheels, "# idna, patched\n")
	out, err = run(t, "verify", "--lock", lock, wheels)
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v\n%s", err, out)
	}
	if !strings.Contains(out, "hash-mismatch") {
		t.Fatalf("expected hash-mismatch in output:\n%s", out)
	}
}

func TestHashCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pypi/idna/2.10/json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"info": {"name": "idna", "version": "2.10"}, "urls": [
			{"filename": "idna-2.10-py2.py3-none-any.whl", "digests": {"sha256": "` + idnaHash + `"}}]}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	conf := writeFile(t, dir, "pinlock.yaml", "pypi_url: "+srv.URL+"\ncache:\n  disabled: true\n")

	out, err := run(t, "--config", conf, "hash", "idna==2.10")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if out != "idna==2.10 \\\n    --hash=sha256:"+idnaHash+"\n" {
		t.Fatalf("unexpected record:\n%s", out)
	}

	lock := writeFile(t, dir, "requirements.txt", "idna==2.10\n    # via requests\n")
	if _, err := run(t, "--config", conf, "hash", "--lock", lock); err != nil {
		t.Fatalf("hash --lock: %v", err)
	}
	data, _ := os.ReadFile(lock)
	if !strings.Contains(string(data), "--hash=sha256:"+idnaHash) || !strings.Contains(string(data), "# via requests") {
		t.Fatalf("manifest not updated:\n%s", data)
	}

	if _, err := run(t, "--config", conf, "hash", "idna>=2"); err == nil {
		t.Fatal("expected error for unpinned argument")
	}
}

func TestBadConfigIsCommandError(t *testing.T) {
	conf := writeFile(t, t.TempDir(), "pinlock.yaml", "workers: zero\n")
	_, err := run(t, "--config", conf, "validate", "x.txt")
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected config error, got %v", err)
	}
}
