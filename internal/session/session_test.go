package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/pipeline"
	pubmem "github.com/searchive/searchive/internal/publisher/memory"
)

type stubQueries struct {
	bySource map[pipeline.SourceType][]pipeline.ResultDescriptor
	errs     map[pipeline.SourceType]error
	calls    []pipeline.SourceType
}

func (s *stubQueries) Search(_ context.Context, _ string, _ int, source pipeline.SourceType) ([]pipeline.ResultDescriptor, error) {
	s.calls = append(s.calls, source)
	if err := s.errs[source]; err != nil {
		return nil, err
	}
	return s.bySource[source], nil
}

type stubRunner struct {
	gotURLs []string
}

func (r *stubRunner) Run(_ context.Context, urls []string) []pipeline.ExtractionOutcome {
	r.gotURLs = urls
	outcomes := make([]pipeline.ExtractionOutcome, len(urls))
	for i, u := range urls {
		outcomes[i] = pipeline.ExtractionOutcome{URL: u, Success: true, Text: "t"}
	}
	return outcomes
}

type stubArchiver struct {
	searchErr     error
	extractionErr error

	recordedQuery string
	recordedTag   string
	recordedCount int
	outcomeCount  int
}

func (a *stubArchiver) RecordSearch(query, tag string, results []pipeline.ResultDescriptor) (string, error) {
	a.recordedQuery = query
	a.recordedTag = tag
	a.recordedCount = len(results)
	if a.searchErr != nil {
		return "", a.searchErr
	}
	return "daily/2026-01-02_searches.json", nil
}

func (a *stubArchiver) RecordExtractions(_ context.Context, outcomes []pipeline.ExtractionOutcome) (string, error) {
	a.outcomeCount = len(outcomes)
	if a.extractionErr != nil {
		return "", a.extractionErr
	}
	return "extracted/2026-01-02_extractions.json", nil
}

func webResults(urls ...string) []pipeline.ResultDescriptor {
	out := make([]pipeline.ResultDescriptor, len(urls))
	for i, u := range urls {
		out[i] = pipeline.ResultDescriptor{URL: u, Title: u, SourceType: pipeline.SourceWeb}
	}
	return out
}

func TestRunArchivesSearchAndExtractions(t *testing.T) {
	t.Parallel()

	queries := &stubQueries{bySource: map[pipeline.SourceType][]pipeline.ResultDescriptor{
		pipeline.SourceWeb: webResults("https://a.test", "https://b.test"),
	}}
	runner := &stubRunner{}
	archiver := &stubArchiver{}
	pub := pubmem.New()

	sess, err := New(queries, runner, archiver, Options{Publisher: pub, Topic: "batches"}, zap.NewNop())
	require.NoError(t, err)

	report, err := sess.Run(context.Background(), "inflation", 10, false)
	require.NoError(t, err)

	require.Equal(t, []string{"https://a.test", "https://b.test"}, runner.gotURLs)
	require.Len(t, report.Outcomes, 2)
	require.Equal(t, "inflation", archiver.recordedQuery)
	require.Equal(t, "web", archiver.recordedTag)
	require.Equal(t, 2, archiver.recordedCount)
	require.Equal(t, 2, archiver.outcomeCount)
	require.NotEmpty(t, report.SearchBatchFile)
	require.NotEmpty(t, report.ExtractionBatchFile)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "search", msgs[0].Payload["kind"])
	require.Equal(t, "extraction", msgs[1].Payload["kind"])
}

func TestRunQueryFailureIsFatal(t *testing.T) {
	t.Parallel()

	queries := &stubQueries{errs: map[pipeline.SourceType]error{
		pipeline.SourceWeb: fmt.Errorf("unexpected status 429"),
	}}
	sess, err := New(queries, &stubRunner{}, &stubArchiver{}, Options{}, zap.NewNop())
	require.NoError(t, err)

	report, err := sess.Run(context.Background(), "anything", 5, false)
	require.Error(t, err)
	require.Empty(t, report.Results)
	require.Empty(t, report.Outcomes)
}

func TestRunArchiveFailureStillReturnsOutcomes(t *testing.T) {
	t.Parallel()

	queries := &stubQueries{bySource: map[pipeline.SourceType][]pipeline.ResultDescriptor{
		pipeline.SourceWeb: webResults("https://a.test"),
	}}
	archiver := &stubArchiver{extractionErr: fmt.Errorf("disk full")}
	sess, err := New(queries, &stubRunner{}, archiver, Options{}, zap.NewNop())
	require.NoError(t, err)

	report, err := sess.Run(context.Background(), "rates", 5, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.Len(t, report.Outcomes, 1)
	require.True(t, report.Outcomes[0].Success)
	require.NotEmpty(t, report.SearchBatchFile)
	require.Empty(t, report.ExtractionBatchFile)
}

func TestRunZeroResultsSkipsExtraction(t *testing.T) {
	t.Parallel()

	queries := &stubQueries{bySource: map[pipeline.SourceType][]pipeline.ResultDescriptor{}}
	runner := &stubRunner{}
	sess, err := New(queries, runner, &stubArchiver{}, Options{}, zap.NewNop())
	require.NoError(t, err)

	report, err := sess.Run(context.Background(), "nothing", 5, false)
	require.NoError(t, err)
	require.Empty(t, report.Outcomes)
	require.Nil(t, runner.gotURLs)
}

func TestSearchWebAndNewsDedupesByURLIdentity(t *testing.T) {
	t.Parallel()

	shared := pipeline.ResultDescriptor{URL: "https://example.com/story", Title: "Story", SourceType: pipeline.SourceWeb}
	queries := &stubQueries{bySource: map[pipeline.SourceType][]pipeline.ResultDescriptor{
		pipeline.SourceWeb: {shared},
		pipeline.SourceNews: {
			{URL: "HTTPS://example.com/story", Title: "Story", SourceType: pipeline.SourceNews},
			{URL: "https://news.example.com/other", Title: "Other", SourceType: pipeline.SourceNews},
		},
	}}
	sess, err := New(queries, &stubRunner{}, &stubArchiver{}, Options{}, zap.NewNop())
	require.NoError(t, err)

	merged, err := sess.SearchWebAndNews(context.Background(), "story", 10)
	require.NoError(t, err)
	require.Len(t, merged, 2)
	require.Equal(t, "https://example.com/story", merged[0].URL)
	require.Equal(t, "https://news.example.com/other", merged[1].URL)
}

func TestSearchWebAndNewsNewsFailureDegradesToWeb(t *testing.T) {
	t.Parallel()

	queries := &stubQueries{
		bySource: map[pipeline.SourceType][]pipeline.ResultDescriptor{
			pipeline.SourceWeb: webResults("https://a.test"),
		},
		errs: map[pipeline.SourceType]error{
			pipeline.SourceNews: fmt.Errorf("unexpected status 500"),
		},
	}
	sess, err := New(queries, &stubRunner{}, &stubArchiver{}, Options{}, zap.NewNop())
	require.NoError(t, err)

	merged, err := sess.SearchWebAndNews(context.Background(), "q", 10)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	require.Equal(t, []pipeline.SourceType{pipeline.SourceWeb, pipeline.SourceNews}, queries.calls)
}

func TestRunMixedSourcesTaggedWebAndNews(t *testing.T) {
	t.Parallel()

	queries := &stubQueries{bySource: map[pipeline.SourceType][]pipeline.ResultDescriptor{
		pipeline.SourceWeb: webResults("https://a.test"),
		pipeline.SourceNews: {
			{URL: "https://news.example.com/x", Title: "X", SourceType: pipeline.SourceNews},
		},
	}}
	archiver := &stubArchiver{}
	sess, err := New(queries, &stubRunner{}, archiver, Options{}, zap.NewNop())
	require.NoError(t, err)

	_, err = sess.Run(context.Background(), "q", 10, true)
	require.NoError(t, err)
	require.Equal(t, "web+news", archiver.recordedTag)
}
