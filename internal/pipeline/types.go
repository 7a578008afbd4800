// Package pipeline defines core types shared across the search and
// extraction subsystems.
package pipeline

import (
	"net/http"
	"time"
)

// SourceType tags where a result descriptor came from.
type SourceType string

// Source type values attached to results and preserved through archival.
const (
	SourceWeb  SourceType = "web"
	SourceNews SourceType = "news"
)

// ResultDescriptor is one discovered item from a query, prior to content
// extraction. Immutable once constructed; optional fields are resolved at
// construction time, not at read time.
type ResultDescriptor struct {
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Snippet       string     `json:"snippet"`
	Age           *string    `json:"age,omitempty"`
	ExtraSnippets []string   `json:"extra_snippets,omitempty"`
	SourceType    SourceType `json:"source_type,omitempty"`
}

// ExtractionOutcome is the result of attempting to extract one URL.
// Exactly one outcome exists per input URL per batch call.
type ExtractionOutcome struct {
	URL     string `json:"url"`
	Success bool   `json:"success"`
	Title   string `json:"title,omitempty"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FetchRequest captures everything needed to fetch one document.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the raw content returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// ContentLength reports the body size in bytes.
func (r FetchResponse) ContentLength() int {
	return len(r.Body)
}
