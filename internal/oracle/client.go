// Package oracle fetches price reports from an external feed service and
// drives automatic resolution of price-feed markets.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/predictd/internal/domain"
)

// Client is the REST client for the price report service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a report client.
//
// baseURL is the feed service root, e.g. "https://feeds.example.com".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiReport is the wire shape of a published report.
type apiReport struct {
	FeedID      string `json:"feed_id"`
	Price       int64  `json:"price"`
	PublishedAt int64  `json:"published_at"`
}

// LatestReport returns the most recent report for a feed. Staleness is not
// checked here; the engine enforces its own freshness window at resolution.
func (c *Client) LatestReport(ctx context.Context, feedID common.Hash) (*domain.PriceReport, error) {
	path := fmt.Sprintf("/reports/%s/latest", url.PathEscape(feedID.Hex()))

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("oracle: get report %s: %w", feedID.Hex(), err)
	}

	var r apiReport
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("oracle: decode report: %w", err)
	}
	return &domain.PriceReport{
		FeedID:      common.HexToHash(r.FeedID),
		Price:       r.Price,
		PublishedAt: r.PublishedAt,
	}, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
