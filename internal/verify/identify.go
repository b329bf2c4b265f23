// Package verify checks downloaded artifacts against the records of a manifest.
package verify

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ethanolivertroy/pinlock/internal/models"
	"github.com/klauspost/compress/zip"
)

var sdistSuffixes = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tgz", ".zip"}

// IsArtifact reports whether filename looks like a wheel or source distribution
func IsArtifact(filename string) bool {
	if strings.HasSuffix(filename, ".whl") {
		return true
	}
	for _, s := range sdistSuffixes {
		if strings.HasSuffix(filename, s) {
			return true
		}
	}
	return false
}

// ParseFilename derives the project name and version from an artifact filename.
func ParseFilename(filename string) (name, version string, err error) {
	base := filepath.Base(filename)

	if strings.HasSuffix(base, ".whl") {
		// name-version(-build)?-python-abi-platform.whl
		parts := strings.Split(strings.TrimSuffix(base, ".whl"), "-")
		if len(parts) != 5 && len(parts) != 6 {
			return "", "", fmt.Errorf("invalid wheel filename %q", base)
		}
		return parts[0], parts[1], nil
	}

	for _, s := range sdistSuffixes {
		if !strings.HasSuffix(base, s) {
			continue
		}
		stem := strings.TrimSuffix(base, s)
		// the version starts after the last dash followed by a digit
		for i := len(stem) - 2; i > 0; i-- {
			if stem[i] == '-' && stem[i+1] >= '0' && stem[i+1] <= '9' {
				return stem[:i], stem[i+1:], nil
			}
		}
		return "", "", fmt.Errorf("invalid sdist filename %q", base)
	}

	return "", "", fmt.Errorf("unrecognized artifact %q", base)
}

// WheelMetadata holds the core metadata fields of a wheel
type WheelMetadata struct {
	Name    string
	Version string
}

// ReadWheelMetadata reads Name and Version from the wheel's dist-info/METADATA
func ReadWheelMetadata(path string) (WheelMetadata, error) {
	var md WheelMetadata

	zr, err := zip.OpenReader(path)
	if err != nil {
		return md, fmt.Errorf("failed to open wheel: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		dir, file := filepath.Split(f.Name)
		if file != "METADATA" || strings.Count(f.Name, "/") != 1 || !strings.HasSuffix(dir, ".dist-info/") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return md, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		defer rc.Close()

		sc := bufio.NewScanner(rc)
		for sc.Scan() {
			line := sc.Text()
			if line == "" {
				break // end of headers
			}
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			switch key {
			case "Name":
				md.Name = strings.TrimSpace(value)
			case "Version":
				md.Version = strings.TrimSpace(value)
			}
		}
		if err := sc.Err(); err != nil {
			return md, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		if md.Name == "" || md.Version == "" {
			return md, fmt.Errorf("%s lacks Name or Version", f.Name)
		}
		return md, nil
	}

	return md, fmt.Errorf("no dist-info/METADATA in %s", filepath.Base(path))
}

// Identify returns the project name and version of an artifact. Wheels must
// carry metadata that agrees with their filename.
func Identify(path string) (name, version string, err error) {
	name, version, err = ParseFilename(path)
	if err != nil {
		return "", "", err
	}
	if !strings.HasSuffix(path, ".whl") {
		return name, version, nil
	}

	md, err := ReadWheelMetadata(path)
	if err != nil {
		return "", "", err
	}
	if models.NormalizeName(md.Name) != models.NormalizeName(name) || !models.SameVersion(md.Version, version) {
		return "", "", fmt.Errorf("wheel metadata %s %s disagrees with filename %s",
			md.Name, md.Version, filepath.Base(path))
	}
	return md.Name, md.Version, nil
}
