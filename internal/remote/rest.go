package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bestlist/vitara-core/internal/models"
)

// RESTConfig holds backend connection configuration.
type RESTConfig struct {
	BaseURL string // e.g. https://<project>.example.co/rest/v1
	APIKey  string
	Token   string // bearer token for the signed-in user
}

// RESTClient implements Client against a PostgREST-style backend.
type RESTClient struct {
	config     *RESTConfig
	httpClient *http.Client
}

// NewRESTClient creates a new RESTClient.
func NewRESTClient(config *RESTConfig) *RESTClient {
	return &RESTClient{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// updatePayload is the wire shape of update/delete queue payloads.
type updatePayload struct {
	ItemID  string          `json:"item_id,omitempty"`
	UserID  string          `json:"user_id,omitempty"`
	Updates json.RawMessage `json:"updates,omitempty"`
}

// CreateRecord inserts an item and returns the authoritative record.
func (c *RESTClient) CreateRecord(ctx context.Context, payload json.RawMessage) (*models.Record, error) {
	return c.insertReturning(ctx, "items", payload)
}

// UpdateRecord applies updates to an existing item.
func (c *RESTClient) UpdateRecord(ctx context.Context, payload json.RawMessage) (*models.Record, error) {
	var p updatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid update payload: %w", err)
	}

	path := "items?id=eq." + url.QueryEscape(p.ItemID)
	body, err := c.do(ctx, http.MethodPatch, path, bytes.NewReader(p.Updates), true)
	if err != nil {
		return nil, err
	}
	return decodeSingle(body)
}

// DeleteRecord removes an item.
func (c *RESTClient) DeleteRecord(ctx context.Context, payload json.RawMessage) error {
	var p updatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid delete payload: %w", err)
	}

	path := "items?id=eq." + url.QueryEscape(p.ItemID)
	_, err := c.do(ctx, http.MethodDelete, path, nil, false)
	return err
}

// CreatePost publishes a feed post and returns the authoritative record.
func (c *RESTClient) CreatePost(ctx context.Context, payload json.RawMessage) (*models.Record, error) {
	return c.insertReturning(ctx, "posts", payload)
}

// UpdateProfile applies profile field updates.
func (c *RESTClient) UpdateProfile(ctx context.Context, payload json.RawMessage) error {
	var p updatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid profile payload: %w", err)
	}

	path := "profiles?id=eq." + url.QueryEscape(p.UserID)
	_, err := c.do(ctx, http.MethodPatch, path, bytes.NewReader(p.Updates), false)
	return err
}

// CreateList creates a new list container.
func (c *RESTClient) CreateList(ctx context.Context, payload json.RawMessage) error {
	_, err := c.do(ctx, http.MethodPost, "lists", bytes.NewReader(payload), false)
	return err
}

// FetchPage returns one page of records for a cache domain, newest first.
// Domain keys map onto backend queries: "feed:<type>" reads the posts
// table, "profile:<userId>" reads that user's items.
func (c *RESTClient) FetchPage(ctx context.Context, domain string, limit, offset int) ([]models.Record, error) {
	var path string
	switch {
	case strings.HasPrefix(domain, "profile:"):
		userID := strings.TrimPrefix(domain, "profile:")
		path = fmt.Sprintf("items?select=*&user_id=eq.%s&order=created_at.desc&limit=%d&offset=%d",
			url.QueryEscape(userID), limit, offset)
	default:
		feedType := strings.TrimPrefix(domain, "feed:")
		path = fmt.Sprintf("posts?select=*&feed=eq.%s&order=created_at.desc&limit=%d&offset=%d",
			url.QueryEscape(feedType), limit, offset)
	}

	body, err := c.do(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}

	var records []models.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to parse page response: %w", err)
	}
	return records, nil
}

// insertReturning POSTs a row and decodes the returned representation.
func (c *RESTClient) insertReturning(ctx context.Context, table string, payload json.RawMessage) (*models.Record, error) {
	body, err := c.do(ctx, http.MethodPost, table, bytes.NewReader(payload), true)
	if err != nil {
		return nil, err
	}
	return decodeSingle(body)
}

// do executes one request against the backend. When returning is set the
// backend is asked to echo the affected row back.
func (c *RESTClient) do(ctx context.Context, method, path string, body io.Reader, returning bool) ([]byte, error) {
	urlStr := strings.TrimRight(c.config.BaseURL, "/") + "/" + path

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", c.config.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if returning {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(data))
	}

	return data, nil
}

// decodeSingle parses a single returned row. PostgREST returns an array
// even for single-row representations.
func decodeSingle(body []byte) (*models.Record, error) {
	var records []models.Record
	if err := json.Unmarshal(body, &records); err != nil {
		var single models.Record
		if err2 := json.Unmarshal(body, &single); err2 == nil && single.ID != "" {
			return &single, nil
		}
		return nil, fmt.Errorf("failed to parse record response: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("backend returned no record")
	}
	return &records[0], nil
}
