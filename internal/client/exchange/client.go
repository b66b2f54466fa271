package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange API error (%d): %s", e.Status, e.Body)
}

// Client is a read-only exchange data client. All requests share one
// token-bucket limiter so the poller, the results ingester and ad-hoc
// callers cannot jointly exceed the account's request allowance.
type Client struct {
	host       string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(httpClient *http.Client, host string, rps float64, burst int) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// ListMarkets returns market catalogues with an off time inside [from, to).
func (c *Client) ListMarkets(ctx context.Context, from, to time.Time, limit int) ([]MarketCatalogue, error) {
	query := url.Values{}
	if !from.IsZero() {
		query.Set("from", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		query.Set("to", to.UTC().Format(time.RFC3339))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.doRequest(ctx, "/markets", query)
	if err != nil {
		return nil, err
	}
	var items []MarketCatalogue
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("parse market catalogues: %w", err)
	}
	return items, nil
}

// GetBooks fetches live books for up to maxBooksPerRequest markets at a
// time; larger inputs are chunked transparently.
func (c *Client) GetBooks(ctx context.Context, marketIDs []string, depth int) ([]MarketBook, error) {
	const maxBooksPerRequest = 40
	var books []MarketBook
	for start := 0; start < len(marketIDs); start += maxBooksPerRequest {
		end := start + maxBooksPerRequest
		if end > len(marketIDs) {
			end = len(marketIDs)
		}
		chunk, err := c.getBooksChunk(ctx, marketIDs[start:end], depth)
		if err != nil {
			return books, err
		}
		books = append(books, chunk...)
	}
	return books, nil
}

func (c *Client) getBooksChunk(ctx context.Context, marketIDs []string, depth int) ([]MarketBook, error) {
	if len(marketIDs) == 0 {
		return nil, nil
	}
	query := url.Values{}
	query.Set("market_ids", strings.Join(marketIDs, ","))
	if depth > 0 {
		query.Set("depth", strconv.Itoa(depth))
	}
	body, err := c.doRequest(ctx, "/books", query)
	if err != nil {
		return nil, err
	}
	var items []MarketBook
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("parse market books: %w", err)
	}
	return items, nil
}

// ListResults returns markets settled since the watermark.
func (c *Client) ListResults(ctx context.Context, since time.Time, limit int) ([]MarketResult, error) {
	query := url.Values{}
	if !since.IsZero() {
		query.Set("since", since.UTC().Format(time.RFC3339))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.doRequest(ctx, "/results", query)
	if err != nil {
		return nil, err
	}
	var items []MarketResult
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("parse market results: %w", err)
	}
	return items, nil
}
