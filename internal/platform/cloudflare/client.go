// Package cloudflare is a minimal Cloudflare API client for keeping A
// records of installed applications pointed at the host.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/imamik/hostup/internal/host"
)

// DefaultBaseURL is the Cloudflare v4 API endpoint.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// Client is a minimal Cloudflare API client for DNS record management.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client

	mu    sync.Mutex
	zones map[string]string
}

// Record represents a Cloudflare DNS record.
type Record struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl,omitempty"`
	Proxied bool   `json:"proxied"`
	Comment string `json:"comment,omitempty"`
}

type apiResponse struct {
	Success bool            `json:"success"`
	Errors  []apiError      `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type zoneResult struct {
	ID string `json:"id"`
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a new Cloudflare API client.
func NewClient(apiToken string, opts ...Option) *Client {
	c := &Client{
		apiToken:   apiToken,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		zones:      map[string]string{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetZoneID returns the zone ID for the given domain.
func (c *Client) GetZoneID(ctx context.Context, domain string) (string, error) {
	c.mu.Lock()
	id, ok := c.zones[domain]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/zones?name="+url.QueryEscape(domain), nil)
	if err != nil {
		return "", err
	}

	var resp apiResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("get zone ID: %w", err)
	}

	var zones []zoneResult
	if err := json.Unmarshal(resp.Result, &zones); err != nil {
		return "", fmt.Errorf("parse zones: %w", err)
	}

	if len(zones) == 0 {
		return "", fmt.Errorf("no zone found for domain %s", domain)
	}

	c.mu.Lock()
	c.zones[domain] = zones[0].ID
	c.mu.Unlock()
	return zones[0].ID, nil
}

// FindRecords returns records of type with exactly name.
func (c *Client) FindRecords(ctx context.Context, zoneID, recordType, name string) ([]Record, error) {
	q := url.Values{"type": {recordType}, "name": {name}}
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/zones/%s/dns_records?%s", zoneID, q.Encode()), nil)
	if err != nil {
		return nil, err
	}

	var resp apiResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("list DNS records: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(resp.Result, &records); err != nil {
		return nil, fmt.Errorf("parse DNS records: %w", err)
	}
	return records, nil
}

// CreateRecord creates rec in the zone.
func (c *Client) CreateRecord(ctx context.Context, zoneID string, rec Record) error {
	return c.send(ctx, http.MethodPost, fmt.Sprintf("/zones/%s/dns_records", zoneID), rec)
}

// UpdateRecord replaces the record with id.
func (c *Client) UpdateRecord(ctx context.Context, zoneID, id string, rec Record) error {
	return c.send(ctx, http.MethodPut, fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, id), rec)
}

// EnsureA makes name resolve to ip with exactly one A record.
func (c *Client) EnsureA(ctx context.Context, zone, name, ip string, proxied bool) (host.Change, error) {
	zoneID, err := c.GetZoneID(ctx, zone)
	if err != nil {
		return host.Unchanged, err
	}
	records, err := c.FindRecords(ctx, zoneID, "A", name)
	if err != nil {
		return host.Unchanged, err
	}

	want := Record{Type: "A", Name: name, Content: ip, TTL: 1, Proxied: proxied, Comment: "managed by hostup"}
	if len(records) == 0 {
		if err := c.CreateRecord(ctx, zoneID, want); err != nil {
			return host.Unchanged, fmt.Errorf("create A record %s: %w", name, err)
		}
		return host.Created, nil
	}

	current := records[0]
	if current.Content == ip && current.Proxied == proxied {
		return host.Unchanged, nil
	}
	if err := c.UpdateRecord(ctx, zoneID, current.ID, want); err != nil {
		return host.Unchanged, fmt.Errorf("update A record %s: %w", name, err)
	}
	return host.Updated, nil
}

func (c *Client) send(ctx context.Context, method, path string, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	var resp apiResponse
	return c.do(req, &resp)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out *apiResponse) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w (status %d)", err, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.Success {
		if len(out.Errors) > 0 {
			return fmt.Errorf("API error (status %d): %s (code %d)", resp.StatusCode, out.Errors[0].Message, out.Errors[0].Code)
		}
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
