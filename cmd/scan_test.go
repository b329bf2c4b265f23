package cmd

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/kev", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vulnerabilities": [{"cveID": "CVE-2023-0001", "vendorProject": "PSF", "product": "idna", "vulnerabilityName": "idna DoS"}]}`))
	})
	mux.HandleFunc("/osv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [{"vulns": [{"id": "CVE-2023-0001"}]}]}`))
	})
	mux.HandleFunc("/epss", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"cve": "CVE-2023-0001", "epss": "0.5", "percentile": "0.9"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScanCommand(t *testing.T) {
	srv := newFeedServer(t)
	dir := t.TempDir()
	writeFile(t, dir, "requirements.txt", "idna==2.10\n")
	conf := writeFile(t, t.TempDir(), "pinlock.yaml", "cache:\n  disabled: true\nscan:\n"+
		"  kev_url: "+srv.URL+"/kev\n  osv_url: "+srv.URL+"/osv\n  epss_url: "+srv.URL+"/epss\n")

	out, err := run(t, "--config", conf, "--format", "json", "scan", dir)
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed for a KEV finding, got %v", err)
	}
	if !strings.Contains(out, "CVE-2023-0001") {
		t.Fatalf("finding missing from output:\n%s", out)
	}

	if _, err := run(t, "--config", conf, "scan", "--no-fail", dir); err != nil {
		t.Fatalf("expected --no-fail to exit cleanly, got %v", err)
	}

	if _, err := run(t, "--config", conf, "scan", "--epss-threshold", "0.9", dir); err != nil {
		t.Fatalf("expected findings below the threshold to be dropped, got %v", err)
	}
}
