package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coinforge/coindw/pkg/utils"
)

const userAgent = "coindw-etl/extract"

// Client fetches paginated market snapshots from a CoinGecko-compatible API.
type Client struct {
	baseURL    string
	coinsPath  string
	vsCurrency string
	perPage    int
	client     *http.Client
}

// Opts is the set of options for a new Client.
type Opts struct {
	BaseURL    string
	CoinsPath  string
	VsCurrency string
	PerPage    int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// New creates a market API client.
func New(o Opts) *Client {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.PerPage <= 0 {
		o.PerPage = 100
	}
	if o.VsCurrency == "" {
		o.VsCurrency = "usd"
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		// Apply the default timeout on a copy; the caller's client stays
		// untouched.
		cp := *client
		cp.Timeout = o.Timeout
		client = &cp
	}

	return &Client{
		baseURL:    strings.TrimRight(o.BaseURL, "/"),
		coinsPath:  o.CoinsPath,
		vsCurrency: o.VsCurrency,
		perPage:    o.PerPage,
		client:     client,
	}
}

// FetchPage retrieves one page of coin objects ordered by market cap.
// Records come back as generic maps so columns absent from a response stay
// absent instead of being zero-filled.
func (c *Client) FetchPage(ctx context.Context, page int) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("vs_currency", c.vsCurrency)
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("order", "market_cap_desc")
	q.Set("price_change_percentage", "24h")

	endpoint := c.baseURL + c.coinsPath + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for page %d: %w", page, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch page %d: unexpected status %s", page, resp.Status)
	}

	var records []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode page %d: %w", page, err)
	}
	return records, nil
}
