package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethanolivertroy/pinlock/internal/cache"
	"github.com/ethanolivertroy/pinlock/internal/clients"
	"github.com/ethanolivertroy/pinlock/internal/logger"
	"github.com/ethanolivertroy/pinlock/internal/models"
	"github.com/ethanolivertroy/pinlock/internal/parsers"
)

// directories never descended into while discovering manifests
var skipDirs = map[string]bool{
	".git":         true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"node_modules": true,
	"vendor":       true,
}

// Scanner looks up pinned dependencies in OSV and keeps those with KEV entries.
type Scanner struct {
	config  *models.Config
	parsers []parsers.Parser
	kev     *clients.KEVClient
	osv     *clients.OSVClient
	epss    *clients.EPSSClient
}

// New builds a Scanner whose clients share one HTTP client and the on-disk cache.
func New(config *models.Config) *Scanner {
	var c *cache.Cache
	if !config.NoCache {
		var err error
		if c, err = cache.New("pinlock", config.CacheTTL); err != nil {
			logger.Logger().Warnf("continuing without cache: %v", err)
			c = nil
		}
	}

	httpClient := clients.NewHTTPClient(config.Timeout)
	kev := clients.NewKEVClient(httpClient, c)
	osv := clients.NewOSVClient(httpClient)
	epss := clients.NewEPSSClient(httpClient)
	if config.KEVURL != "" {
		kev.URL = config.KEVURL
	}
	if config.OSVURL != "" {
		osv.URL = config.OSVURL
	}
	if config.EPSSURL != "" {
		epss.URL = config.EPSSURL
	}
	return NewWithClients(config, kev, osv, epss)
}

// NewWithClients builds a Scanner around existing clients.
func NewWithClients(config *models.Config, kev *clients.KEVClient, osv *clients.OSVClient, epss *clients.EPSSClient) *Scanner {
	return &Scanner{
		config:  config,
		parsers: parsers.GetAllParsers(),
		kev:     kev,
		osv:     osv,
		epss:    epss,
	}
}

// Scan returns one finding per dependency that has at least one KEV-listed CVE.
func (s *Scanner) Scan(ctx context.Context) ([]models.Finding, error) {
	log := logger.Logger()

	deps, err := s.collect()
	if err != nil {
		return nil, fmt.Errorf("discovering dependencies: %w", err)
	}
	deps = dedupe(deps)
	log.Infof("found %d pinned dependencies", len(deps))
	if len(deps) == 0 {
		return nil, nil
	}

	catalog, err := s.kev.FetchKEVCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching KEV catalog: %w", err)
	}
	vulns, err := s.osv.QueryBatch(ctx, deps)
	if err != nil {
		return nil, fmt.Errorf("querying OSV: %w", err)
	}

	findings, ids := match(deps, vulns, catalog)
	if len(ids) > 0 {
		enrich(findings, s.epss.FetchScores(ctx, ids))
	}
	if s.config.EPSSThreshold > 0 {
		findings = filterByEPSS(findings, s.config.EPSSThreshold)
	}
	return findings, nil
}

// match pairs OSV results with catalog entries and returns the KEV ids seen.
func match(deps []models.Dependency, vulns map[int][]models.CVEInfo, catalog map[string]models.KEVInfo) ([]models.Finding, []string) {
	var findings []models.Finding
	var ids []string
	for i, dep := range deps {
		f := models.Finding{Dependency: dep, CVEs: vulns[i]}
		for _, cve := range f.CVEs {
			if entry, ok := catalog[cve.ID]; ok {
				f.KEVs = append(f.KEVs, entry)
				ids = append(ids, cve.ID)
			}
		}
		if f.HasKEV() {
			findings = append(findings, f)
		}
	}
	return findings, ids
}

func enrich(findings []models.Finding, scores map[string]models.EPSSScore) {
	for i := range findings {
		kevs := findings[i].KEVs
		for j := range kevs {
			if score, ok := scores[kevs[j].CVEID]; ok {
				kevs[j].EPSSScore = score.Score
				kevs[j].EPSSPercentile = score.Percentile
			}
		}
	}
}

func filterByEPSS(findings []models.Finding, threshold float64) []models.Finding {
	out := findings[:0]
	for _, f := range findings {
		var kept []models.KEVInfo
		for _, kev := range f.KEVs {
			if kev.EPSSScore >= threshold {
				kept = append(kept, kev)
			}
		}
		if len(kept) == 0 {
			continue
		}
		f.KEVs = kept
		out = append(out, f)
	}
	return out
}

// dedupe keeps the first occurrence of each ecosystem/name/version triple.
func dedupe(deps []models.Dependency) []models.Dependency {
	seen := make(map[string]bool, len(deps))
	out := deps[:0]
	for _, d := range deps {
		key := string(d.Ecosystem) + "/" + models.NormalizeName(d.Name) + "@" + d.Version
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

// collect parses every recognised manifest under the configured paths.
// Explicit file arguments must parse; files found by walking are skipped on error.
func (s *Scanner) collect() ([]models.Dependency, error) {
	var deps []models.Dependency
	for _, root := range s.config.Paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			found, err := s.parse(root)
			if err != nil {
				return nil, err
			}
			deps = append(deps, found...)
			continue
		}

		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			switch {
			case err != nil:
				return err
			case d.IsDir() && skipDirs[d.Name()]:
				return filepath.SkipDir
			case d.IsDir():
				return nil
			}
			found, err := s.parse(p)
			if err != nil {
				logger.Logger().Warnf("skipping %s: %v", p, err)
				return nil
			}
			deps = append(deps, found...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return deps, nil
}

func (s *Scanner) parse(path string) ([]models.Dependency, error) {
	name := filepath.Base(path)
	for _, p := range s.parsers {
		if !p.CanParse(name) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return p.Parse(path, data)
	}
	return nil, nil
}
