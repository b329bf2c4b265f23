package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ethanolivertroy/pinlock/internal/cache"
	"github.com/ethanolivertroy/pinlock/internal/logger"
	"github.com/ethanolivertroy/pinlock/internal/models"
)

// ErrReleaseNotFound means the index has no such project version
var ErrReleaseNotFound = errors.New("release not found")

// PyPIClient looks up release files on a PyPI-compatible JSON API
type PyPIClient struct {
	BaseURL    string
	httpClient *http.Client
	cache      *cache.Cache
}

// NewPyPIClient creates a client for the index at baseURL (e.g. https://pypi.org)
func NewPyPIClient(baseURL string, httpClient *http.Client, c *cache.Cache) *PyPIClient {
	return &PyPIClient{
		BaseURL:    baseURL,
		httpClient: httpClient,
		cache:      c,
	}
}

type pypiRelease struct {
	Info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"info"`
	URLs []pypiFile `json:"urls"`
}

type pypiFile struct {
	Filename    string            `json:"filename"`
	PackageType string            `json:"packagetype"`
	Digests     map[string]string `json:"digests"`
	Yanked      bool              `json:"yanked"`
}

// Release is the published artifact set of one project version
type Release struct {
	Name    string
	Version string
	Files   []ReleaseFile
}

// ReleaseFile is one published artifact with its sha256 digest
type ReleaseFile struct {
	Filename string
	Digest   models.Digest
	Yanked   bool
}

// Record builds a pinned record from the release's digests
func (r Release) Record() models.Record {
	rec := models.Record{Name: r.Name, Operator: "==", Version: r.Version}
	for _, f := range r.Files {
		rec.Hashes = append(rec.Hashes, f.Digest)
	}
	rec.Hashes = rec.Hashes.Sorted()
	return rec
}

// ReleaseDigests fetches the files published for name==version
func (c *PyPIClient) ReleaseDigests(ctx context.Context, name, version string) (Release, error) {
	log := logger.Logger()
	endpoint := fmt.Sprintf("%s/pypi/%s/%s/json", c.BaseURL,
		url.PathEscape(models.NormalizeName(name)), url.PathEscape(version))

	data, cached := c.cache.Get(endpoint)
	if !cached {
		var err error
		data, err = get(ctx, c.httpClient, endpoint)
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return Release{}, fmt.Errorf("%s==%s: %w", name, version, ErrReleaseNotFound)
		}
		if err != nil {
			return Release{}, fmt.Errorf("failed to query index for %s==%s: %w", name, version, err)
		}
		if err := c.cache.Set(endpoint, data); err != nil {
			log.Warnf("failed to cache %s: %v", endpoint, err)
		}
	}

	var doc pypiRelease
	if err := json.Unmarshal(data, &doc); err != nil {
		return Release{}, fmt.Errorf("failed to decode index response for %s==%s: %w", name, version, err)
	}

	rel := Release{Name: doc.Info.Name, Version: doc.Info.Version}
	if rel.Name == "" {
		rel.Name = name
	}
	if rel.Version == "" {
		rel.Version = version
	}
	for _, f := range doc.URLs {
		hexDigest, ok := f.Digests["sha256"]
		if !ok {
			log.Debugf("%s has no sha256 digest, skipping", f.Filename)
			continue
		}
		d, err := models.ParseDigest("sha256:" + hexDigest)
		if err != nil {
			return Release{}, fmt.Errorf("%s: %w", f.Filename, err)
		}
		rel.Files = append(rel.Files, ReleaseFile{Filename: f.Filename, Digest: d, Yanked: f.Yanked})
	}
	if len(rel.Files) == 0 {
		return Release{}, fmt.Errorf("%s==%s has no hashed release files", name, version)
	}

	return rel, nil
}
