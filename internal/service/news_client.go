package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Article is a single news item returned by the aggregator.
type Article struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"link"`
	Content     string    `json:"content"`
	PublishedAt time.Time `json:"publishDate"`
}

// NewsClient fetches recent articles for a search query.
type NewsClient interface {
	FetchArticles(ctx context.Context, query string, from, to time.Time, limit int) ([]Article, error)
}

type httpNewsClient struct {
	client  *http.Client
	baseURL string
	keys    ProviderKeySource
}

// NewNewsClient creates a NewsClient against the configured aggregator.
func NewNewsClient(baseURL string, keys ProviderKeySource, timeout time.Duration) NewsClient {
	return &httpNewsClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		keys:    keys,
	}
}

func (c *httpNewsClient) FetchArticles(ctx context.Context, query string, from, to time.Time, limit int) ([]Article, error) {
	apiKey, err := c.keys.Key(ctx, ProviderNews)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))
	params.Set("pageSize", strconv.Itoa(limit))
	params.Set("language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/articles?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create news request: %w", err)
	}
	req.Header.Set("X-API-KEY", apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read news response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news request failed: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Articles []Article `json:"articles"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode news response: %w", err)
	}

	// Providers occasionally return near-duplicate syndicated items; drop
	// repeats by title so the summarizer does not double-cover a story.
	seen := make(map[string]bool, len(parsed.Articles))
	out := make([]Article, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		if a.Title == "" || seen[a.Title] {
			continue
		}
		seen[a.Title] = true
		out = append(out, a)
	}
	return out, nil
}
