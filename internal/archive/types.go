// Package archive implements the append-only, deduplicating persistence
// layer: per-day batch logs, a cross-run URL database keyed by content
// identity, and durable running indices.
package archive

import "time"

// ArchivedResult is one search result as persisted inside a day file.
// The age field is kept even when absent so round-trips preserve nulls.
type ArchivedResult struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Age     *string `json:"age"`
}

// SearchBatch is one query's results appended to a day's search log.
// Batches are immutable once written.
type SearchBatch struct {
	Query       string           `json:"query"`
	Type        string           `json:"type"`
	Timestamp   time.Time        `json:"timestamp"`
	ResultCount int              `json:"result_count"`
	Results     []ArchivedResult `json:"results"`
}

// SearchDayFile is the full contents of {date}_searches.json.
type SearchDayFile struct {
	Date     string        `json:"date"`
	Searches []SearchBatch `json:"searches"`
}

// ExtractionItem references one successfully extracted document.
type ExtractionItem struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	File       string `json:"file"`
	URI        string `json:"uri,omitempty"`
	TextLength int    `json:"text_length"`
}

// ExtractionFailure references one failed extraction attempt.
type ExtractionFailure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// ExtractionBatch summarizes one extraction run appended to a day's log.
type ExtractionBatch struct {
	Timestamp  time.Time           `json:"timestamp"`
	Total      int                 `json:"total"`
	Successful []ExtractionItem    `json:"successful"`
	Failed     []ExtractionFailure `json:"failed"`
}

// ExtractionDayFile is the full contents of {date}_extractions.json.
type ExtractionDayFile struct {
	Date        string            `json:"date"`
	Extractions []ExtractionBatch `json:"extractions"`
}

// TextDocument is one individually addressable extracted-text record,
// named from (timestamp, URL identity) so reruns at different instants
// never collide with prior runs.
type TextDocument struct {
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Text           string    `json:"text"`
	ExtractionTime time.Time `json:"extraction_time"`
}

// URLEntry is the per-unique-URL record in the URL database. Entries are
// created on first sight and merged, never replaced, on every later
// sighting; titles and queries accumulate with set-union semantics.
type URLEntry struct {
	URL       string    `json:"url"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	SeenCount int       `json:"seen_count"`
	Titles    []string  `json:"titles"`
	Queries   []string  `json:"queries"`
}

// BatchPointer locates one persisted batch from a running index.
type BatchPointer struct {
	ID          string    `json:"id"`
	File        string    `json:"file"`
	Timestamp   time.Time `json:"timestamp"`
	Query       string    `json:"query,omitempty"`
	ResultCount int       `json:"result_count,omitempty"`
}

// SearchIndex holds process-wide search archival totals. Totals are the
// exact sum over all persisted search batches.
type SearchIndex struct {
	TotalSearches int            `json:"total_searches"`
	TotalURLs     int            `json:"total_urls"`
	Batches       []BatchPointer `json:"batches"`
}

// ExtractionIndex holds process-wide extraction archival totals.
type ExtractionIndex struct {
	TotalAttempted int            `json:"total_attempted"`
	TotalSucceeded int            `json:"total_succeeded"`
	TotalFailed    int            `json:"total_failed"`
	Batches        []BatchPointer `json:"batches"`
}

// Stats is a point-in-time snapshot of both indices for reporting.
type Stats struct {
	Search     SearchIndex     `json:"search"`
	Extraction ExtractionIndex `json:"extraction"`
}
