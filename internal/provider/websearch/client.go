package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultURL is the Tavily search endpoint
const DefaultURL = "https://api.tavily.com/search"

// ErrNoAPIKey is returned when the search API key is missing
var ErrNoAPIKey = errors.New("search api key not configured")

// Request is the search API request body
type Request struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	SearchDepth       string `json:"search_depth"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
	Topic             string `json:"topic,omitempty"`
	Days              int    `json:"days,omitempty"`
}

// Item is one search hit
type Item struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date,omitempty"`
}

// Response is the search API response body
type Response struct {
	Answer  string `json:"answer"`
	Results []Item `json:"results"`
}

// StatusError reports a non-2xx reply
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search api returned status %d", e.Code)
}

// Client calls a Tavily-compatible search API
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client. rps <= 0 disables throttling.
func NewClient(url, apiKey string, rps float64) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if url == "" {
		url = DefaultURL
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &Client{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

// Search runs one query. The API key is filled in from the client.
func (c *Client) Search(ctx context.Context, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", ctx.Err())
		}
		if _, ok := ctx.Deadline(); ok {
			// the next token arrives after the deadline
			return nil, fmt.Errorf("waiting for rate limiter: %v: %w", err, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req.APIKey = c.apiKey
	if req.SearchDepth == "" {
		req.SearchDepth = "basic"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling search api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}
