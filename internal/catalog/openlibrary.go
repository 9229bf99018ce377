package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrlokans/bookshelf/internal/config"
)

const (
	// SearchLimit caps the number of works returned by Search.
	SearchLimit = 10
	// EditionsLimit caps the number of editions returned by ListEditions.
	EditionsLimit = 20

	UnknownAuthor = "Unknown"
)

// Client is a pass-through to the Open Library search and editions endpoints.
// It never retries and never caches.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
}

// newLimiter paces outbound calls. rps <= 0 disables pacing.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// NewClient creates an Open Library client from the catalog settings.
func NewClient(cfg config.Catalog) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultCatalogBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		limiter:    newLimiter(cfg.RequestsPerSecond),
	}
}

// Search returns at most SearchLimit works matching the free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]Work, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprint(SearchLimit))
	searchURL := fmt.Sprintf("%s/search.json?%s", c.baseURL, params.Encode())

	var result searchResponse
	if err := c.getJSON(ctx, "search", searchURL, &result); err != nil {
		return nil, err
	}

	docs := result.Docs
	if len(docs) > SearchLimit {
		docs = docs[:SearchLimit]
	}

	works := make([]Work, 0, len(docs))
	for _, doc := range docs {
		works = append(works, doc.toWork())
	}
	return works, nil
}

// ListEditions returns at most EditionsLimit editions of a work.
// The key may be given as "/works/OL45883W" or just "OL45883W".
func (c *Client) ListEditions(ctx context.Context, workKey string) ([]Edition, error) {
	workKey = NormalizeWorkKey(workKey)
	if workKey == "" {
		return nil, ErrQueryRequired
	}

	editionsURL := fmt.Sprintf("%s%s/editions.json?limit=%d", c.baseURL, workKey, EditionsLimit)

	var result editionsResponse
	if err := c.getJSON(ctx, "editions", editionsURL, &result); err != nil {
		return nil, err
	}

	entries := result.Entries
	if len(entries) > EditionsLimit {
		entries = entries[:EditionsLimit]
	}

	editions := make([]Edition, 0, len(entries))
	for _, doc := range entries {
		editions = append(editions, doc.toEdition())
	}
	return editions, nil
}

// NormalizeWorkKey turns a bare work id into a "/works/<id>" path.
func NormalizeWorkKey(key string) string {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return ""
	}
	key = strings.TrimPrefix(key, "works/")
	if key == "" || key == "works" || strings.Contains(key, "/") {
		return ""
	}
	return "/works/" + key
}

func (c *Client) getJSON(ctx context.Context, op, target string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &UpstreamError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &UpstreamError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
