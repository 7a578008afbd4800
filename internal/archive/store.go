package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/hash/urlhash"
	"github.com/searchive/searchive/internal/metrics"
	"github.com/searchive/searchive/internal/pipeline"
)

const (
	dailyDirName     = "daily"
	extractedDirName = "extracted"

	searchIndexFile     = "search_index.json"
	urlDatabaseFile     = "url_database.json"
	extractionIndexFile = "extraction_index.json"

	dayLayout   = "2006-01-02"
	stampLayout = "2006-01-02_15-04-05"
)

// Store is the archive root. All mutating operations are serialized by
// an internal mutex so concurrent recorders interleave whole batches,
// never partial ones. In-memory state is only updated after the
// corresponding files have been written.
type Store struct {
	mu sync.Mutex

	root         string
	dailyDir     string
	extractedDir string

	blobs  pipeline.BlobStore
	clock  pipeline.Clock
	logger *zap.Logger

	searchIndex     SearchIndex
	extractionIndex ExtractionIndex
	urls            map[string]*URLEntry
}

// Open creates the archive directory layout under root and loads any
// previously persisted indices and URL database, so totals and
// deduplication survive restarts.
func Open(root string, blobs pipeline.BlobStore, clk pipeline.Clock, logger *zap.Logger) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("archive root is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		root:         root,
		dailyDir:     filepath.Join(root, dailyDirName),
		extractedDir: filepath.Join(root, extractedDirName),
		blobs:        blobs,
		clock:        clk,
		logger:       logger,
		urls:         make(map[string]*URLEntry),
	}

	for _, dir := range []string{s.root, s.dailyDir, s.extractedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir %s: %w", dir, err)
		}
	}

	if err := loadJSONFile(filepath.Join(root, searchIndexFile), &s.searchIndex); err != nil {
		return nil, fmt.Errorf("load search index: %w", err)
	}
	if err := loadJSONFile(filepath.Join(root, extractionIndexFile), &s.extractionIndex); err != nil {
		return nil, fmt.Errorf("load extraction index: %w", err)
	}
	if err := loadJSONFile(filepath.Join(root, urlDatabaseFile), &s.urls); err != nil {
		return nil, fmt.Errorf("load url database: %w", err)
	}

	logger.Info("archive opened",
		zap.String("root", root),
		zap.Int("known_urls", len(s.urls)),
		zap.Int("search_batches", len(s.searchIndex.Batches)),
		zap.Int("extraction_batches", len(s.extractionIndex.Batches)))
	return s, nil
}

// RecordSearch archives one query's results: merges every result into
// the URL database, appends an immutable batch to today's search log,
// and advances the search index. A zero-result query records nothing at
// all. Returns the day file path the batch was appended to.
func (s *Store) RecordSearch(query, searchType string, results []pipeline.ResultDescriptor) (string, error) {
	if len(results) == 0 {
		return "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()

	// Stage the merged URL entries; the live map is swapped only after
	// every file write has succeeded.
	staged := s.stageURLMerge(results, query, now)

	batch := SearchBatch{
		Query:       query,
		Type:        searchType,
		Timestamp:   now,
		ResultCount: len(results),
		Results:     make([]ArchivedResult, 0, len(results)),
	}
	for _, r := range results {
		batch.Results = append(batch.Results, ArchivedResult{
			URL:     r.URL,
			Title:   r.Title,
			Snippet: r.Snippet,
			Age:     r.Age,
		})
	}

	if err := writeJSONFile(filepath.Join(s.root, urlDatabaseFile), staged); err != nil {
		metrics.RecordArchiveWrite("url_database", err)
		return "", fmt.Errorf("persist url database: %w", err)
	}

	dayPath := filepath.Join(s.dailyDir, now.Format(dayLayout)+"_searches.json")
	day := SearchDayFile{Date: now.Format(dayLayout)}
	if err := loadJSONFile(dayPath, &day); err != nil {
		metrics.RecordArchiveWrite("search_batch", err)
		return "", fmt.Errorf("load day file: %w", err)
	}
	day.Searches = append(day.Searches, batch)
	if err := writeJSONFile(dayPath, day); err != nil {
		metrics.RecordArchiveWrite("search_batch", err)
		return "", fmt.Errorf("persist day file: %w", err)
	}

	index := s.searchIndex
	index.TotalSearches++
	index.TotalURLs = len(staged)
	index.Batches = append(append([]BatchPointer(nil), s.searchIndex.Batches...), BatchPointer{
		ID:          uuid.NewString(),
		File:        filepath.Base(dayPath),
		Timestamp:   now,
		Query:       query,
		ResultCount: len(results),
	})
	if err := writeJSONFile(filepath.Join(s.root, searchIndexFile), index); err != nil {
		metrics.RecordArchiveWrite("search_index", err)
		return "", fmt.Errorf("persist search index: %w", err)
	}

	s.urls = staged
	s.searchIndex = index
	metrics.RecordArchiveWrite("search_batch", nil)

	s.logger.Info("search batch archived",
		zap.String("query", query),
		zap.String("type", searchType),
		zap.Int("results", len(results)),
		zap.String("file", filepath.Base(dayPath)))
	return dayPath, nil
}

// RecordExtractions archives one extraction run: writes a text document
// per successful outcome, appends the batch summary to today's
// extraction log, and advances the extraction index. An empty batch
// records nothing. Returns the day file path the summary was appended to.
func (s *Store) RecordExtractions(ctx context.Context, outcomes []pipeline.ExtractionOutcome) (string, error) {
	if len(outcomes) == 0 {
		return "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	// Both lists are always present in the persisted record, even when
	// empty.
	batch := ExtractionBatch{
		Timestamp:  now,
		Total:      len(outcomes),
		Successful: []ExtractionItem{},
		Failed:     []ExtractionFailure{},
	}

	for _, o := range outcomes {
		if !o.Success {
			batch.Failed = append(batch.Failed, ExtractionFailure{URL: o.URL, Error: o.Error})
			continue
		}

		name := fmt.Sprintf("%s_%s.json", now.Format(stampLayout), urlhash.Key(o.URL))
		doc := TextDocument{
			URL:            o.URL,
			Title:          o.Title,
			Text:           o.Text,
			ExtractionTime: now,
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			metrics.RecordArchiveWrite("text_document", err)
			return "", fmt.Errorf("marshal text document for %s: %w", o.URL, err)
		}
		uri, err := s.blobs.PutObject(ctx, name, "application/json", data)
		if err != nil {
			metrics.RecordArchiveWrite("text_document", err)
			return "", fmt.Errorf("write text document for %s: %w", o.URL, err)
		}
		metrics.RecordArchiveWrite("text_document", nil)
		batch.Successful = append(batch.Successful, ExtractionItem{
			URL:        o.URL,
			Title:      o.Title,
			File:       name,
			URI:        uri,
			TextLength: len([]rune(o.Text)),
		})
	}

	dayPath := filepath.Join(s.extractedDir, now.Format(dayLayout)+"_extractions.json")
	day := ExtractionDayFile{Date: now.Format(dayLayout)}
	if err := loadJSONFile(dayPath, &day); err != nil {
		metrics.RecordArchiveWrite("extraction_batch", err)
		return "", fmt.Errorf("load day file: %w", err)
	}
	day.Extractions = append(day.Extractions, batch)
	if err := writeJSONFile(dayPath, day); err != nil {
		metrics.RecordArchiveWrite("extraction_batch", err)
		return "", fmt.Errorf("persist day file: %w", err)
	}

	index := s.extractionIndex
	index.TotalAttempted += batch.Total
	index.TotalSucceeded += len(batch.Successful)
	index.TotalFailed += len(batch.Failed)
	index.Batches = append(append([]BatchPointer(nil), s.extractionIndex.Batches...), BatchPointer{
		ID:          uuid.NewString(),
		File:        filepath.Base(dayPath),
		Timestamp:   now,
		ResultCount: batch.Total,
	})
	if err := writeJSONFile(filepath.Join(s.root, extractionIndexFile), index); err != nil {
		metrics.RecordArchiveWrite("extraction_index", err)
		return "", fmt.Errorf("persist extraction index: %w", err)
	}

	s.extractionIndex = index
	metrics.RecordArchiveWrite("extraction_batch", nil)

	s.logger.Info("extraction batch archived",
		zap.Int("total", batch.Total),
		zap.Int("successful", len(batch.Successful)),
		zap.Int("failed", len(batch.Failed)),
		zap.String("file", filepath.Base(dayPath)))
	return dayPath, nil
}

// Stats returns a snapshot of both running indices.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Search:     copySearchIndex(s.searchIndex),
		Extraction: copyExtractionIndex(s.extractionIndex),
	}
}

// URLEntry returns the database entry for a URL identity key, if known.
func (s *Store) URLEntry(key string) (URLEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.urls[key]
	if !ok {
		return URLEntry{}, false
	}
	out := *e
	out.Titles = append([]string(nil), e.Titles...)
	out.Queries = append([]string(nil), e.Queries...)
	return out, true
}

// URLCount returns the number of distinct URLs seen so far.
func (s *Store) URLCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

// stageURLMerge returns a copy of the URL database with every result
// merged in. Existing entries keep first_seen and accumulate counts,
// titles and queries; new entries start at seen_count 1.
func (s *Store) stageURLMerge(results []pipeline.ResultDescriptor, query string, now time.Time) map[string]*URLEntry {
	staged := make(map[string]*URLEntry, len(s.urls)+len(results))
	for k, v := range s.urls {
		entry := *v
		entry.Titles = append([]string(nil), v.Titles...)
		entry.Queries = append([]string(nil), v.Queries...)
		staged[k] = &entry
	}

	for _, r := range results {
		key := urlhash.Key(r.URL)
		entry, ok := staged[key]
		if !ok {
			staged[key] = &URLEntry{
				URL:       r.URL,
				FirstSeen: now,
				LastSeen:  now,
				SeenCount: 1,
				Titles:    appendUnique(nil, r.Title),
				Queries:   appendUnique(nil, query),
			}
			continue
		}
		entry.LastSeen = now
		entry.SeenCount++
		entry.Titles = appendUnique(entry.Titles, r.Title)
		entry.Queries = appendUnique(entry.Queries, query)
	}
	return staged
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, have := range list {
		if have == v {
			return list
		}
	}
	return append(list, v)
}

func copySearchIndex(in SearchIndex) SearchIndex {
	out := in
	out.Batches = append([]BatchPointer(nil), in.Batches...)
	return out
}

func copyExtractionIndex(in ExtractionIndex) ExtractionIndex {
	out := in
	out.Batches = append([]BatchPointer(nil), in.Batches...)
	return out
}

// loadJSONFile fills v from path. A missing file leaves v untouched.
func loadJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// DayFiles lists the archive's day files, newest first, for inspection
// endpoints.
func (s *Store) DayFiles() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for _, dir := range []string{s.dailyDir, s.extractedDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, filepath.Join(filepath.Base(dir), e.Name()))
			}
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
