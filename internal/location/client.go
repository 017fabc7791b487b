// Package location consumes the external geographic lookup service
// (province → regency → district → village → postal code). The data is
// opaque pass-through reference data, cached by a staleness window.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Item is one entry of a location list as the upstream service returns it.
type Item struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Result  []Item `json:"result"`
}

type cacheEntry struct {
	items     []Item
	fetchedAt time.Time
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	ttl        time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewClient(baseURL string, ttl time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		ttl:        ttl,
		cache:      make(map[string]cacheEntry),
	}
}

func (c *Client) Provinces(ctx context.Context) ([]Item, error) {
	return c.fetch(ctx, "/provinsi/get/", nil)
}

func (c *Client) Regencies(ctx context.Context, provinceID string) ([]Item, error) {
	return c.fetch(ctx, "/kabkota/get/", url.Values{"d_provinsi_id": {provinceID}})
}

func (c *Client) Districts(ctx context.Context, regencyID string) ([]Item, error) {
	return c.fetch(ctx, "/kecamatan/get/", url.Values{"d_kabkota_id": {regencyID}})
}

func (c *Client) Villages(ctx context.Context, districtID string) ([]Item, error) {
	return c.fetch(ctx, "/kelurahan/get/", url.Values{"d_kecamatan_id": {districtID}})
}

func (c *Client) PostalCodes(ctx context.Context, regencyID, districtID string) ([]Item, error) {
	return c.fetch(ctx, "/kodepos/get/", url.Values{
		"d_kabkota_id":   {regencyID},
		"d_kecamatan_id": {districtID},
	})
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]Item, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	if items, ok := c.cached(endpoint); ok {
		return items, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("location service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}

	items := env.Result
	if items == nil {
		items = []Item{}
	}

	c.store(endpoint, items)
	return items, nil
}

func (c *Client) cached(key string) ([]Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || time.Since(entry.fetchedAt) > c.ttl {
		return nil, false
	}
	return entry.items, true
}

func (c *Client) store(key string, items []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = cacheEntry{items: items, fetchedAt: time.Now()}
}
