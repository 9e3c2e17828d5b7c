package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultPageLimit = 100
)

// Client is a bearer-token REST client for the POS platform. It performs no
// retries; retry and cooldown policy belongs to callers.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given platform base URL and access token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// ── wire payloads ────────────────────────────────────────────────────────────

type listLocationsResponse struct {
	Locations []Location `json:"locations"`
}

type searchCatalogRequest struct {
	ObjectTypes    []CatalogObjectType `json:"object_types"`
	IncludeDeleted bool                `json:"include_deleted_objects,omitempty"`
	Cursor         string              `json:"cursor,omitempty"`
	Limit          int                 `json:"limit,omitempty"`
}

type searchCatalogResponse struct {
	Objects []CatalogObject `json:"objects"`
	Cursor  string          `json:"cursor,omitempty"`
}

type batchRetrieveInventoryRequest struct {
	LocationIDs  []string `json:"location_ids"`
	UpdatedAfter string   `json:"updated_after,omitempty"`
	Cursor       string   `json:"cursor,omitempty"`
	Limit        int      `json:"limit,omitempty"`
}

type batchRetrieveInventoryResponse struct {
	Counts []InventoryCount `json:"counts"`
	Cursor string           `json:"cursor,omitempty"`
}

type searchOrdersRequest struct {
	LocationIDs []string           `json:"location_ids"`
	Filter      searchOrdersFilter `json:"filter"`
	Cursor      string             `json:"cursor,omitempty"`
	Limit       int                `json:"limit,omitempty"`
}

type searchOrdersFilter struct {
	DateRange wireDateRange `json:"date_range"`
	States    []string      `json:"states,omitempty"`
}

type wireDateRange struct {
	Start string `json:"start_at"`
	End   string `json:"end_at"`
}

type searchVendorsResponse struct {
	Vendors []Vendor `json:"vendors"`
}

// ── operations ───────────────────────────────────────────────────────────────

// ListLocations returns every location the token can see.
func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	var out listLocationsResponse
	if err := c.do(ctx, http.MethodGet, "/v2/locations", nil, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

// SearchCatalogObjects fetches one page of catalog objects of the given type.
// An empty returned cursor means the last page.
func (c *Client) SearchCatalogObjects(ctx context.Context, objectType CatalogObjectType, cursor string) ([]CatalogObject, string, error) {
	req := searchCatalogRequest{
		ObjectTypes:    []CatalogObjectType{objectType},
		IncludeDeleted: true,
		Cursor:         cursor,
		Limit:          defaultPageLimit,
	}
	var out searchCatalogResponse
	if err := c.do(ctx, http.MethodPost, "/v2/catalog/search", req, &out); err != nil {
		return nil, "", err
	}
	return out.Objects, out.Cursor, nil
}

// SearchAllCatalogObjects pages through SearchCatalogObjects until the cursor
// is exhausted, accumulating every object.
func (c *Client) SearchAllCatalogObjects(ctx context.Context, objectType CatalogObjectType) ([]CatalogObject, error) {
	var all []CatalogObject
	cursor := ""
	for {
		page, next, err := c.SearchCatalogObjects(ctx, objectType, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

// BatchRetrieveInventory fetches one page of inventory counts for the given
// locations, optionally limited to counts calculated after updatedAfter.
func (c *Client) BatchRetrieveInventory(ctx context.Context, locationIDs []string, updatedAfter time.Time, cursor string) ([]InventoryCount, string, error) {
	req := batchRetrieveInventoryRequest{
		LocationIDs: locationIDs,
		Cursor:      cursor,
		Limit:       defaultPageLimit,
	}
	if !updatedAfter.IsZero() {
		req.UpdatedAfter = updatedAfter.UTC().Format(time.RFC3339)
	}
	var out batchRetrieveInventoryResponse
	if err := c.do(ctx, http.MethodPost, "/v2/inventory/counts/batch-retrieve", req, &out); err != nil {
		return nil, "", err
	}
	return out.Counts, out.Cursor, nil
}

// RetrieveAllInventory accumulates every page of inventory counts.
func (c *Client) RetrieveAllInventory(ctx context.Context, locationIDs []string, updatedAfter time.Time) ([]InventoryCount, error) {
	var all []InventoryCount
	cursor := ""
	for {
		page, next, err := c.BatchRetrieveInventory(ctx, locationIDs, updatedAfter, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

// SearchOrders fetches one page of orders for the given locations, date range
// and states. An empty returned cursor means the last page.
func (c *Client) SearchOrders(ctx context.Context, locationIDs []string, dr DateRange, states []string, cursor string) ([]Order, string, error) {
	req := searchOrdersRequest{
		LocationIDs: locationIDs,
		Filter: searchOrdersFilter{
			DateRange: wireDateRange{
				Start: dr.Start.UTC().Format(time.RFC3339),
				End:   dr.End.UTC().Format(time.RFC3339),
			},
			States: states,
		},
		Cursor: cursor,
		Limit:  defaultPageLimit,
	}
	var out struct {
		Orders []Order `json:"orders"`
		Cursor string  `json:"cursor,omitempty"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/orders/search", req, &out); err != nil {
		return nil, "", err
	}
	return out.Orders, out.Cursor, nil
}

// SearchVendors returns every vendor the token can see.
func (c *Client) SearchVendors(ctx context.Context) ([]Vendor, error) {
	var out searchVendorsResponse
	if err := c.do(ctx, http.MethodPost, "/v2/vendors/search", struct{}{}, &out); err != nil {
		return nil, err
	}
	return out.Vendors, nil
}

// ── transport ────────────────────────────────────────────────────────────────

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pos request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw), URL: url}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}
