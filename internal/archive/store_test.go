package archive

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/hash/urlhash"
	"github.com/searchive/searchive/internal/pipeline"
	memblob "github.com/searchive/searchive/internal/storage/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestStore(t *testing.T) (*Store, *memblob.BlobStore, *fakeClock, string) {
	t.Helper()
	root := t.TempDir()
	blobs := memblob.NewBlobStore()
	clk := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	store, err := Open(root, blobs, clk, zap.NewNop())
	require.NoError(t, err)
	return store, blobs, clk, root
}

func TestRecordSearchMergesURLDatabase(t *testing.T) {
	t.Parallel()

	store, _, clk, root := newTestStore(t)

	shared := pipeline.ResultDescriptor{
		URL:     "https://example.com/btc",
		Title:   "Bitcoin Today",
		Snippet: "Price moves.",
	}
	_, err := store.RecordSearch("bitcoin", "web", []pipeline.ResultDescriptor{shared})
	require.NoError(t, err)

	clk.now = clk.now.Add(time.Hour)
	later := shared
	later.Title = "Bitcoin Price Report"
	_, err = store.RecordSearch("bitcoin price", "web", []pipeline.ResultDescriptor{later})
	require.NoError(t, err)

	entry, ok := store.URLEntry(urlhash.Key(shared.URL))
	require.True(t, ok)
	require.Equal(t, 2, entry.SeenCount)
	require.Equal(t, []string{"bitcoin", "bitcoin price"}, entry.Queries)
	require.Equal(t, []string{"Bitcoin Today", "Bitcoin Price Report"}, entry.Titles)
	require.True(t, entry.LastSeen.After(entry.FirstSeen))
	require.Equal(t, 1, store.URLCount())

	// The merged entry must be on disk too, keyed by URL identity.
	var persisted map[string]URLEntry
	data, err := os.ReadFile(filepath.Join(root, urlDatabaseFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &persisted))
	require.Equal(t, 2, persisted[urlhash.Key(shared.URL)].SeenCount)
}

func TestRecordSearchAppendsToDayFile(t *testing.T) {
	t.Parallel()

	store, _, clk, _ := newTestStore(t)

	age := "2 hours ago"
	first := []pipeline.ResultDescriptor{
		{URL: "https://a.example.com", Title: "A", Snippet: "sa", Age: &age},
		{URL: "https://b.example.com", Title: "B", Snippet: "sb"},
	}
	path, err := store.RecordSearch("inflation", "web", first)
	require.NoError(t, err)
	require.Equal(t, "2026-01-02_searches.json", filepath.Base(path))

	clk.now = clk.now.Add(time.Minute)
	_, err = store.RecordSearch("cpi report", "news", first[:1])
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var day SearchDayFile
	require.NoError(t, json.Unmarshal(data, &day))
	require.Equal(t, "2026-01-02", day.Date)
	require.Len(t, day.Searches, 2)
	require.Equal(t, "inflation", day.Searches[0].Query)
	require.Equal(t, 2, day.Searches[0].ResultCount)
	require.Equal(t, "news", day.Searches[1].Type)

	// Absent ages serialize as explicit nulls, present ones round-trip.
	require.Contains(t, string(data), `"age": null`)
	require.NotNil(t, day.Searches[0].Results[0].Age)
	require.Equal(t, age, *day.Searches[0].Results[0].Age)
	require.Nil(t, day.Searches[0].Results[1].Age)
}

func TestSearchIndexCountsSearchesNotResults(t *testing.T) {
	t.Parallel()

	store, _, _, _ := newTestStore(t)

	results := []pipeline.ResultDescriptor{
		{URL: "https://a.example.com", Title: "A"},
		{URL: "https://b.example.com", Title: "B"},
		{URL: "https://c.example.com", Title: "C"},
	}
	_, err := store.RecordSearch("housing", "web", results)
	require.NoError(t, err)

	stats := store.Stats()
	require.Equal(t, 1, stats.Search.TotalSearches)
	require.Equal(t, 3, stats.Search.TotalURLs)

	_, err = store.RecordSearch("rent", "web", results[:1])
	require.NoError(t, err)
	require.Equal(t, 2, store.Stats().Search.TotalSearches)
}

func TestRecordSearchZeroResultsIsNoOp(t *testing.T) {
	t.Parallel()

	store, _, _, root := newTestStore(t)

	path, err := store.RecordSearch("nothing here", "web", nil)
	require.NoError(t, err)
	require.Empty(t, path)

	entries, err := os.ReadDir(filepath.Join(root, dailyDirName))
	require.NoError(t, err)
	require.Empty(t, entries)

	stats := store.Stats()
	require.Zero(t, stats.Search.TotalSearches)
	require.Empty(t, stats.Search.Batches)
	require.NoFileExists(t, filepath.Join(root, searchIndexFile))
}

func TestRecordExtractionsWritesDocumentsAndSummary(t *testing.T) {
	t.Parallel()

	store, blobs, _, root := newTestStore(t)

	outcomes := []pipeline.ExtractionOutcome{
		{URL: "https://ok.example.com/story", Success: true, Title: "Story", Text: "body text"},
		{URL: "https://gone.example.com", Success: false, Error: "HttpStatus(404)"},
		{URL: "https://slow.example.com", Success: false, Error: "Timeout"},
	}
	path, err := store.RecordExtractions(context.Background(), outcomes)
	require.NoError(t, err)
	require.Equal(t, "2026-01-02_extractions.json", filepath.Base(path))

	var day ExtractionDayFile
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &day))
	require.Len(t, day.Extractions, 1)

	batch := day.Extractions[0]
	require.Equal(t, 3, batch.Total)
	require.Len(t, batch.Successful, 1)
	require.Len(t, batch.Failed, 2)
	require.Equal(t, "HttpStatus(404)", batch.Failed[0].Error)
	require.Equal(t, len("body text"), batch.Successful[0].TextLength)

	wantName := "2026-01-02_03-04-05_" + urlhash.Key(outcomes[0].URL) + ".json"
	require.Equal(t, wantName, batch.Successful[0].File)

	raw, ok := blobs.GetObject(wantName)
	require.True(t, ok)
	var doc TextDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, "body text", doc.Text)
	require.Equal(t, "Story", doc.Title)

	stats := store.Stats()
	require.Equal(t, 3, stats.Extraction.TotalAttempted)
	require.Equal(t, 1, stats.Extraction.TotalSucceeded)
	require.Equal(t, 2, stats.Extraction.TotalFailed)
	require.Len(t, stats.Extraction.Batches, 1)
	require.FileExists(t, filepath.Join(root, extractionIndexFile))
}

func TestExtractionBatchListsAlwaysPresent(t *testing.T) {
	t.Parallel()

	store, _, _, _ := newTestStore(t)

	path, err := store.RecordExtractions(context.Background(), []pipeline.ExtractionOutcome{
		{URL: "https://ok.example.com", Success: true, Title: "OK", Text: "body"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"failed": []`)
	require.NotContains(t, string(data), `"failed": null`)

	_, err = store.RecordExtractions(context.Background(), []pipeline.ExtractionOutcome{
		{URL: "https://gone.example.com", Success: false, Error: "HttpStatus(404)"},
	})
	require.NoError(t, err)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"successful": []`)
	require.NotContains(t, string(data), `"successful": null`)
}

func TestRecordExtractionsEmptyBatchIsNoOp(t *testing.T) {
	t.Parallel()

	store, blobs, _, root := newTestStore(t)

	path, err := store.RecordExtractions(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, path)
	require.Zero(t, blobs.Len())
	require.NoFileExists(t, filepath.Join(root, extractionIndexFile))
}

func TestReopenRestoresPersistedState(t *testing.T) {
	t.Parallel()

	store, blobs, clk, root := newTestStore(t)

	results := []pipeline.ResultDescriptor{
		{URL: "https://example.com/one", Title: "One"},
		{URL: "https://example.com/two", Title: "Two"},
	}
	_, err := store.RecordSearch("rates", "web", results)
	require.NoError(t, err)
	_, err = store.RecordExtractions(context.Background(), []pipeline.ExtractionOutcome{
		{URL: results[0].URL, Success: true, Title: "One", Text: "t"},
	})
	require.NoError(t, err)

	reopened, err := Open(root, blobs, clk, zap.NewNop())
	require.NoError(t, err)

	stats := reopened.Stats()
	require.Equal(t, 1, stats.Search.TotalSearches)
	require.Equal(t, 2, stats.Search.TotalURLs)
	require.Equal(t, 1, stats.Extraction.TotalSucceeded)
	require.Len(t, stats.Search.Batches, 1)
	require.NotEmpty(t, stats.Search.Batches[0].ID)

	entry, ok := reopened.URLEntry(urlhash.Key(results[1].URL))
	require.True(t, ok)
	require.Equal(t, []string{"rates"}, entry.Queries)
}

func TestDayFilesListsBothLogs(t *testing.T) {
	t.Parallel()

	store, _, _, _ := newTestStore(t)

	_, err := store.RecordSearch("q", "web", []pipeline.ResultDescriptor{{URL: "https://x.test", Title: "X"}})
	require.NoError(t, err)
	_, err = store.RecordExtractions(context.Background(), []pipeline.ExtractionOutcome{
		{URL: "https://x.test", Success: false, Error: "no content"},
	})
	require.NoError(t, err)

	names, err := store.DayFiles()
	require.NoError(t, err)
	require.Len(t, names, 2)
	for _, n := range names {
		require.True(t,
			strings.HasPrefix(n, dailyDirName+string(os.PathSeparator)) ||
				strings.HasPrefix(n, extractedDirName+string(os.PathSeparator)),
			"unexpected entry %q", n)
	}
}

func TestOpenValidatesArguments(t *testing.T) {
	t.Parallel()

	_, err := Open("", memblob.NewBlobStore(), &fakeClock{now: time.Now()}, zap.NewNop())
	require.Error(t, err)

	_, err = Open(t.TempDir(), nil, &fakeClock{now: time.Now()}, zap.NewNop())
	require.Error(t, err)

	_, err = Open(t.TempDir(), memblob.NewBlobStore(), nil, zap.NewNop())
	require.Error(t, err)
}
