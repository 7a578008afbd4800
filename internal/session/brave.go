// Package session orchestrates the pipeline: rate-limited query calls,
// concurrency-bounded extraction, and archival of both.
package session

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

	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/metrics"
	"github.com/searchive/searchive/internal/pipeline"
	"github.com/searchive/searchive/internal/ratelimit"
)

// QueryClient issues search queries and returns ranked result descriptors.
type QueryClient interface {
	Search(ctx context.Context, query string, count int, source pipeline.SourceType) ([]pipeline.ResultDescriptor, error)
}

// BraveConfig configures the Brave Search API client.
type BraveConfig struct {
	BaseURL      string
	APIKey       string
	DefaultCount int
}

// BraveClient talks to the Brave Search API. Every call serializes
// through the shared rate limiter before going on the wire; a non-2xx
// response fails that single query call and is never retried here.
type BraveClient struct {
	cfg        BraveConfig
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	logger     *zap.Logger
}

// NewBraveClient validates the credential and rate gate up front; both
// are construction-time requirements, not request-time ones.
func NewBraveClient(cfg BraveConfig, limiter *ratelimit.Limiter, logger *zap.Logger) (*BraveClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.search.brave.com/res/v1"
	}
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BraveClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// News queries are bounded to results from the past day; older items
// duplicate what the web leg already surfaces.
const newsFreshness = "pd"

// braveEnvelope mirrors the slice of the Brave response we consume. Web
// and news payloads share the same result shape under different keys.
type braveEnvelope struct {
	Web  *braveResults `json:"web"`
	News *braveResults `json:"news"`
}

type braveResults struct {
	Results []braveResult `json:"results"`
}

type braveResult struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Age           *string  `json:"age"`
	ExtraSnippets []string `json:"extra_snippets"`
}

// Search issues one query against the web or news endpoint and maps the
// response into result descriptors, preserving API ranking order.
func (c *BraveClient) Search(ctx context.Context, query string, count int, source pipeline.SourceType) ([]pipeline.ResultDescriptor, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if count <= 0 {
		count = c.cfg.DefaultCount
	}

	endpoint := "web/search"
	params := url.Values{
		"q":     {query},
		"count": {strconv.Itoa(count)},
	}
	if source == pipeline.SourceNews {
		endpoint = "news/search"
		params.Set("freshness", newsFreshness)
	}

	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.RecordSearch(string(source), "canceled")
		return nil, err
	}
	metrics.ObserveRateLimitDelay(time.Since(waitStart))

	reqURL := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.cfg.BaseURL, "/"), endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		metrics.RecordSearch(string(source), "error")
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordSearch(string(source), "error")
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		metrics.RecordSearch(string(source), "error")
		return nil, fmt.Errorf("search %q: unexpected status %d", query, resp.StatusCode)
	}

	var envelope braveEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		metrics.RecordSearch(string(source), "error")
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	section := envelope.Web
	if source == pipeline.SourceNews {
		section = envelope.News
	}

	var descriptors []pipeline.ResultDescriptor
	if section != nil {
		descriptors = make([]pipeline.ResultDescriptor, 0, len(section.Results))
		for _, r := range section.Results {
			if r.URL == "" {
				continue
			}
			descriptors = append(descriptors, pipeline.ResultDescriptor{
				URL:           r.URL,
				Title:         r.Title,
				Description:   r.Description,
				Snippet:       r.Description,
				Age:           r.Age,
				ExtraSnippets: append([]string(nil), r.ExtraSnippets...),
				SourceType:    source,
			})
		}
	}

	metrics.RecordSearch(string(source), "ok")
	metrics.RecordSearchResults(string(source), len(descriptors))
	c.logger.Info("search completed",
		zap.String("query", query),
		zap.String("type", string(source)),
		zap.Int("results", len(descriptors)))
	return descriptors, nil
}
