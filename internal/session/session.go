package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/hash/urlhash"
	"github.com/searchive/searchive/internal/pipeline"
)

// Runner executes one extraction batch with bounded concurrency.
type Runner interface {
	Run(ctx context.Context, urls []string) []pipeline.ExtractionOutcome
}

// Archiver persists query results and extraction outcomes.
type Archiver interface {
	RecordSearch(query, searchType string, results []pipeline.ResultDescriptor) (string, error)
	RecordExtractions(ctx context.Context, outcomes []pipeline.ExtractionOutcome) (string, error)
}

// Options carry the optional collaborators of a session.
type Options struct {
	// Publisher, when set, receives a notification after each archived
	// batch. Publish failures are logged, never fatal.
	Publisher pipeline.Publisher
	Topic     string
}

// Session drives one query through the full pipeline: rate-limited
// search, concurrency-bounded extraction, then archival of both halves.
type Session struct {
	queries   QueryClient
	runner    Runner
	archiver  Archiver
	publisher pipeline.Publisher
	topic     string
	logger    *zap.Logger
}

// New wires a session from its collaborators.
func New(queries QueryClient, runner Runner, archiver Archiver, opts Options, logger *zap.Logger) (*Session, error) {
	if queries == nil {
		return nil, fmt.Errorf("query client is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if archiver == nil {
		return nil, fmt.Errorf("archiver is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		queries:   queries,
		runner:    runner,
		archiver:  archiver,
		publisher: opts.Publisher,
		topic:     opts.Topic,
		logger:    logger,
	}, nil
}

// RunReport is the outcome of one full pipeline run. It is populated as
// far as the run got even when the returned error is non-nil: archival
// is a side effect, so extraction results survive archive failures.
type RunReport struct {
	Query               string                       `json:"query"`
	Results             []pipeline.ResultDescriptor  `json:"results"`
	Outcomes            []pipeline.ExtractionOutcome `json:"outcomes"`
	SearchBatchFile     string                       `json:"search_batch_file,omitempty"`
	ExtractionBatchFile string                       `json:"extraction_batch_file,omitempty"`
}

// Run executes the full pipeline for one query. A failed query call is
// fatal for the run. Per-URL extraction failures and archival write
// failures are not: archival errors are joined into the returned error
// while the report still carries every result and outcome.
func (s *Session) Run(ctx context.Context, query string, count int, includeNews bool) (RunReport, error) {
	report := RunReport{Query: query}

	var (
		results []pipeline.ResultDescriptor
		err     error
	)
	if includeNews {
		results, err = s.SearchWebAndNews(ctx, query, count)
	} else {
		results, err = s.queries.Search(ctx, query, count, pipeline.SourceWeb)
	}
	if err != nil {
		return report, fmt.Errorf("query %q: %w", query, err)
	}
	report.Results = results

	var archiveErrs []error
	file, err := s.archiver.RecordSearch(query, sourceTag(results), results)
	if err != nil {
		s.logger.Error("search archival failed", zap.String("query", query), zap.Error(err))
		archiveErrs = append(archiveErrs, err)
	} else {
		report.SearchBatchFile = file
		s.notify(ctx, map[string]any{
			"kind":    "search",
			"query":   query,
			"file":    file,
			"results": len(results),
		})
	}

	if len(results) == 0 {
		s.logger.Info("no results to extract", zap.String("query", query))
		return report, errors.Join(archiveErrs...)
	}

	urls := make([]string, len(results))
	for i, r := range results {
		urls[i] = r.URL
	}
	report.Outcomes = s.runner.Run(ctx, urls)

	file, err = s.archiver.RecordExtractions(ctx, report.Outcomes)
	if err != nil {
		s.logger.Error("extraction archival failed", zap.String("query", query), zap.Error(err))
		archiveErrs = append(archiveErrs, err)
	} else {
		report.ExtractionBatchFile = file
		s.notify(ctx, map[string]any{
			"kind":  "extraction",
			"query": query,
			"file":  file,
			"total": len(report.Outcomes),
		})
	}

	return report, errors.Join(archiveErrs...)
}

// SearchWebAndNews issues a web query followed by a news query and
// merges the two, dropping news items whose URL identity already
// appeared in the web results. A failed news call degrades to web-only
// results rather than failing the run.
func (s *Session) SearchWebAndNews(ctx context.Context, query string, count int) ([]pipeline.ResultDescriptor, error) {
	web, err := s.queries.Search(ctx, query, count, pipeline.SourceWeb)
	if err != nil {
		return nil, err
	}

	news, err := s.queries.Search(ctx, query, count, pipeline.SourceNews)
	if err != nil {
		s.logger.Warn("news query failed, continuing with web results",
			zap.String("query", query), zap.Error(err))
		return web, nil
	}

	seen := make(map[string]struct{}, len(web))
	for _, r := range web {
		seen[urlhash.Key(r.URL)] = struct{}{}
	}

	merged := append([]pipeline.ResultDescriptor(nil), web...)
	for _, r := range news {
		key := urlhash.Key(r.URL)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, r)
	}
	return merged, nil
}

func (s *Session) notify(ctx context.Context, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	id, err := s.publisher.Publish(ctx, s.topic, payload)
	if err != nil {
		s.logger.Warn("batch notification failed", zap.Error(err))
		return
	}
	s.logger.Debug("batch notification published", zap.String("message_id", id))
}

// sourceTag labels an archived search batch. Mixed-source result sets
// are tagged "web+news".
func sourceTag(results []pipeline.ResultDescriptor) string {
	sawWeb, sawNews := false, false
	for _, r := range results {
		switch r.SourceType {
		case pipeline.SourceNews:
			sawNews = true
		default:
			sawWeb = true
		}
	}
	switch {
	case sawWeb && sawNews:
		return "web+news"
	case sawNews:
		return string(pipeline.SourceNews)
	default:
		return string(pipeline.SourceWeb)
	}
}
