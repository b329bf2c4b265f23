package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ethanolivertroy/pinlock/internal/cache"
	"github.com/ethanolivertroy/pinlock/internal/logger"
	"github.com/ethanolivertroy/pinlock/internal/models"
)

// DefaultKEVURL is the CISA KEV catalog feed
const DefaultKEVURL = "https://raw.githubusercontent.com/cisagov/kev-data/main/known_exploited_vulnerabilities.json"

// KEVClient handles requests to the CISA KEV catalog
type KEVClient struct {
	URL        string
	httpClient *http.Client
	cache      *cache.Cache
}

// NewKEVClient creates a new KEV client
func NewKEVClient(httpClient *http.Client, c *cache.Cache) *KEVClient {
	return &KEVClient{
		URL:        DefaultKEVURL,
		httpClient: httpClient,
		cache:      c,
	}
}

// KEVResponse represents the top-level JSON response from CISA KEV catalog
type KEVResponse struct {
	Title           string              `json:"title"`
	CatalogVersion  string              `json:"catalogVersion"`
	DateReleased    string              `json:"dateReleased"`
	Count           int                 `json:"count"`
	Vulnerabilities []VulnerabilityJSON `json:"vulnerabilities"`
}

// VulnerabilityJSON represents a single vulnerability entry from the API
type VulnerabilityJSON struct {
	CVEID                      string   `json:"cveID"`
	VendorProject              string   `json:"vendorProject"`
	Product                    string   `json:"product"`
	VulnerabilityName          string   `json:"vulnerabilityName"`
	DateAdded                  string   `json:"dateAdded"`
	ShortDescription           string   `json:"shortDescription"`
	RequiredAction             string   `json:"requiredAction"`
	DueDate                    string   `json:"dueDate"`
	KnownRansomwareCampaignUse string   `json:"knownRansomwareCampaignUse"`
	Notes                      string   `json:"notes"`
	CWEs                       []string `json:"cwes"`
}

// FetchKEVCatalog fetches the KEV catalog and returns a map of CVE ID -> KEVInfo
func (c *KEVClient) FetchKEVCatalog(ctx context.Context) (map[string]models.KEVInfo, error) {
	log := logger.Logger()

	data, cached := c.cache.Get(c.URL)
	if cached {
		log.Debugf("using cached KEV catalog")
	} else {
		var err error
		data, err = get(ctx, c.httpClient, c.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch KEV data: %w", err)
		}
		if err := c.cache.Set(c.URL, data); err != nil {
			log.Warnf("failed to cache KEV catalog: %v", err)
		}
	}

	return parseKEVData(data)
}

func parseKEVData(data []byte) (map[string]models.KEVInfo, error) {
	var kevResp KEVResponse
	if err := json.Unmarshal(data, &kevResp); err != nil {
		return nil, fmt.Errorf("failed to parse KEV data: %w", err)
	}

	catalog := make(map[string]models.KEVInfo, len(kevResp.Vulnerabilities))
	for _, v := range kevResp.Vulnerabilities {
		kev := models.KEVInfo{
			CVEID:             v.CVEID,
			VendorProject:     v.VendorProject,
			Product:           v.Product,
			VulnerabilityName: v.VulnerabilityName,
			ShortDescription:  v.ShortDescription,
			RequiredAction:    v.RequiredAction,
			RansomwareUse:     v.KnownRansomwareCampaignUse == "Known",
			CWEs:              v.CWEs,
			Notes:             v.Notes,
		}
		kev.DateAdded, _ = time.Parse("2006-01-02", v.DateAdded)
		kev.DueDate, _ = time.Parse("2006-01-02", v.DueDate)
		catalog[v.CVEID] = kev
	}

	return catalog, nil
}
