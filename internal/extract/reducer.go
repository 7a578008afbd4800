// Package extract reduces fetched documents to readable text and runs
// extraction batches under a bounded worker pool.
package extract

import (
	"bytes"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/searchive/searchive/internal/pipeline"
)

// ReadabilityReducer implements pipeline.Reducer using go-readability.
type ReadabilityReducer struct{}

// NewReadabilityReducer returns the default reducer.
func NewReadabilityReducer() *ReadabilityReducer {
	return &ReadabilityReducer{}
}

// Reduce extracts (title, text) from raw HTML. A document with no usable
// text yields a no-content failure, never a propagated parse error.
func (*ReadabilityReducer) Reduce(pageURL string, html []byte) (string, string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = nil
	}

	article, err := readability.FromReader(bytes.NewReader(html), parsed)
	if err != nil {
		return "", "", &pipeline.FetchError{Kind: pipeline.FailureNoContent}
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", "", &pipeline.FetchError{Kind: pipeline.FailureNoContent}
	}
	return strings.TrimSpace(article.Title), text, nil
}
