package parsers

import (
	"testing"
)

func TestRequirementsParserSkipsUnpinned(t *testing.T) {
	content := []byte("idna==2.10 \\\n    --hash=sha256:b97d804b1e9b523befed77c48dacec60e6dcb0b5391d57af6a65a312a90648c0\nflask>=2\n")

	p := &PythonRequirementsParser{}
	if !p.CanParse("requirements-prod.txt") || !p.CanParse("dev_requirements.txt") || p.CanParse("notes.txt") {
		t.Fatal("unexpected CanParse result")
	}

	deps, err := p.Parse("requirements.txt", content)
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 1 || deps[0].Name != "idna" || deps[0].Line != 1 || len(deps[0].Hashes) != 1 {
		t.Fatalf("unexpected deps %+v", deps)
	}
}

func TestRequirementsParserKeepsGoodLines(t *testing.T) {
	content := []byte("django==3.2.0\nmylib @ git+https://example.com/mylib.git\nsix==1.16.0 --install-option=x\nidna==2.10\n")

	deps, err := (&PythonRequirementsParser{}).Parse("requirements.txt", content)
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 2 || deps[0].Name != "django" || deps[1].Name != "idna" || deps[1].Line != 4 {
		t.Fatalf("unexpected deps %+v", deps)
	}
}

func TestPyProjectParser(t *testing.T) {
	content := []byte(`
[project]
dependencies = ["Requests[socks]==2.31.0 ; python_version >= '3.8'", "click>=8"]

[project.optional-dependencies]
dev = ["pytest==7.4.0"]

[tool.poetry.dependencies]
python = "^3.10"
httpx = "0.24.1"
rich = "^13"
pydantic = { version = "2.4.2" }
`)
	deps, err := (&PythonPyProjectParser{}).Parse("pyproject.toml", content)
	if err != nil {
		t.Fatal(err)
	}

	got := make(map[string]string)
	for _, d := range deps {
		got[d.Name] = d.Version
	}
	want := map[string]string{"requests": "2.31.0", "pytest": "7.4.0", "httpx": "0.24.1", "pydantic": "2.4.2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s: got %q, want %q", k, got[k], v)
		}
	}
}

func TestGoModParser(t *testing.T) {
	content := []byte(`module example.com/tool

go 1.22

require (
	github.com/spf13/cobra v1.10.2
	golang.org/x/sys v0.38.0 // indirect
)
`)
	deps, err := (&GoModParser{}).Parse("go.mod", content)
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 1 || deps[0].Name != "github.com/spf13/cobra" || deps[0].Version != "1.10.2" {
		t.Fatalf("unexpected deps %+v", deps)
	}
	if deps[0].Line != 6 {
		t.Fatalf("expected line 6, got %d", deps[0].Line)
	}
}
