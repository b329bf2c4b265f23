package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethanolivertroy/pinlock/internal/models"
)

// DefaultOSVURL is the OSV batch query endpoint
const DefaultOSVURL = "https://api.osv.dev/v1/querybatch"

// OSVClient looks up known vulnerabilities for exact package versions
type OSVClient struct {
	URL        string
	httpClient *http.Client
}

// NewOSVClient returns a client for the public OSV endpoint
func NewOSVClient(httpClient *http.Client) *OSVClient {
	return &OSVClient{
		URL:        DefaultOSVURL,
		httpClient: httpClient,
	}
}

type osvQuery struct {
	Package struct {
		Name      string `json:"name"`
		Ecosystem string `json:"ecosystem"`
	} `json:"package"`
	Version string `json:"version"`
}

type osvBatchRequest struct {
	Queries []osvQuery `json:"queries"`
}

type osvVulnerability struct {
	ID      string   `json:"id"`
	Aliases []string `json:"aliases"`
	Summary string   `json:"summary"`
}

type osvBatchResponse struct {
	Results []struct {
		Vulns []osvVulnerability `json:"vulns"`
	} `json:"results"`
}

// QueryBatch returns the CVEs affecting deps, keyed by index into deps.
func (c *OSVClient) QueryBatch(ctx context.Context, deps []models.Dependency) (map[int][]models.CVEInfo, error) {
	results := make(map[int][]models.CVEInfo)

	// chunks stay well under the 1000-query limit of querybatch
	const batchSize = 100
	for i := 0; i < len(deps); i += batchSize {
		end := i + batchSize
		if end > len(deps) {
			end = len(deps)
		}

		chunkResults, err := c.queryChunk(ctx, deps[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to query OSV batch: %w", err)
		}

		for j, cves := range chunkResults {
			if len(cves) > 0 {
				results[i+j] = cves
			}
		}
	}

	return results, nil
}

func (c *OSVClient) queryChunk(ctx context.Context, deps []models.Dependency) (map[int][]models.CVEInfo, error) {
	batch := osvBatchRequest{Queries: make([]osvQuery, len(deps))}
	for j, dep := range deps {
		batch.Queries[j].Package.Name = dep.Name
		batch.Queries[j].Package.Ecosystem = string(dep.Ecosystem)
		batch.Queries[j].Version = dep.Version
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: c.URL, Code: resp.StatusCode}
	}

	var batchResp osvBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batchResp); err != nil {
		return nil, err
	}

	results := make(map[int][]models.CVEInfo)
	for j, result := range batchResp.Results {
		for _, vuln := range result.Vulns {
			for _, cveID := range extractCVEIDs(vuln.ID, vuln.Aliases) {
				results[j] = append(results[j], models.CVEInfo{
					ID:      cveID,
					Summary: vuln.Summary,
					Source:  "OSV",
				})
			}
		}
	}

	return results, nil
}

// extractCVEIDs returns the CVE identifiers among id and its aliases
func extractCVEIDs(id string, aliases []string) []string {
	seen := make(map[string]bool)
	var cves []string

	for _, candidate := range append([]string{id}, aliases...) {
		if strings.HasPrefix(candidate, "CVE-") && !seen[candidate] {
			cves = append(cves, candidate)
			seen[candidate] = true
		}
	}

	return cves
}
