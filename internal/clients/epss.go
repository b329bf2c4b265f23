package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethanolivertroy/pinlock/internal/logger"
	"github.com/ethanolivertroy/pinlock/internal/models"
)

// DefaultEPSSURL is the FIRST EPSS API endpoint
const DefaultEPSSURL = "https://api.first.org/data/v1/epss"

// EPSSClient handles requests to the EPSS API
type EPSSClient struct {
	URL        string
	httpClient *http.Client
}

// NewEPSSClient creates a new EPSS client
func NewEPSSClient(httpClient *http.Client) *EPSSClient {
	return &EPSSClient{
		URL:        DefaultEPSSURL,
		httpClient: httpClient,
	}
}

// EPSSResponse represents the response from the EPSS API
type EPSSResponse struct {
	Status     string     `json:"status"`
	StatusCode int        `json:"status-code"`
	Version    string     `json:"version"`
	Total      int        `json:"total"`
	Data       []EPSSData `json:"data"`
}

// EPSSData represents a single EPSS score entry
type EPSSData struct {
	CVE        string `json:"cve"`
	EPSS       string `json:"epss"`
	Percentile string `json:"percentile"`
	Date       string `json:"date"`
}

// FetchScores fetches EPSS scores for the given CVE IDs.
// Failed chunks are logged and skipped; scores are enrichment only.
func (c *EPSSClient) FetchScores(ctx context.Context, cveIDs []string) map[string]models.EPSSScore {
	log := logger.Logger()
	scores := make(map[string]models.EPSSScore)

	// chunk to avoid URL length issues
	const chunkSize = 100
	for i := 0; i < len(cveIDs); i += chunkSize {
		end := i + chunkSize
		if end > len(cveIDs) {
			end = len(cveIDs)
		}

		url := fmt.Sprintf("%s?cve=%s", c.URL, strings.Join(cveIDs[i:end], ","))
		data, err := get(ctx, c.httpClient, url)
		if err != nil {
			log.Warnf("EPSS lookup failed: %v", err)
			continue
		}

		var epssResp EPSSResponse
		if err := json.Unmarshal(data, &epssResp); err != nil {
			log.Warnf("EPSS response undecodable: %v", err)
			continue
		}

		for _, d := range epssResp.Data {
			score, _ := strconv.ParseFloat(d.EPSS, 64)
			percentile, _ := strconv.ParseFloat(d.Percentile, 64)
			scores[d.CVE] = models.EPSSScore{
				Score:      score,
				Percentile: percentile,
			}
		}
	}

	return scores
}
