package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/metrics"
	"github.com/searchive/searchive/internal/pipeline"
)

// Config controls one-URL extraction behavior.
type Config struct {
	// MaxTextLength caps extracted text, measured in runes. Truncation is
	// part of the data model: persisted records never exceed the cap.
	MaxTextLength int
}

// Extractor composes fetch + reduce into one outcome per URL. It never
// returns an error past its boundary; every failure becomes a populated
// failure outcome.
type Extractor struct {
	fetcher  pipeline.Fetcher
	headless pipeline.Fetcher
	reducer  pipeline.Reducer
	cfg      Config
	logger   *zap.Logger
}

// NewExtractor builds an Extractor. The headless fetcher is optional; when
// non-nil it is tried once if the static document has no extractable text.
func NewExtractor(
	fetcher pipeline.Fetcher,
	headless pipeline.Fetcher,
	reducer pipeline.Reducer,
	cfg Config,
	logger *zap.Logger,
) (*Extractor, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if reducer == nil {
		return nil, fmt.Errorf("reducer is required")
	}
	if cfg.MaxTextLength <= 0 {
		return nil, fmt.Errorf("max text length must be > 0")
	}
	return &Extractor{
		fetcher:  fetcher,
		headless: headless,
		reducer:  reducer,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// ExtractOne fetches and reduces a single URL. This is the unit of work the
// batch runner parallelizes.
func (e *Extractor) ExtractOne(ctx context.Context, pageURL string) pipeline.ExtractionOutcome {
	request := pipeline.FetchRequest{
		URL: pageURL,
		Headers: http.Header{
			"Accept-Language": []string{"en-US,en;q=0.9"},
		},
	}

	resp, err := e.fetcher.Fetch(ctx, request)
	if err != nil {
		return e.failure(pageURL, err)
	}

	title, text, err := e.reducer.Reduce(pageURL, resp.Body)
	if err != nil && e.headless != nil {
		// JS-shell pages carry no article text in the static document.
		// One headless render is the only retry the pipeline makes.
		if headlessResp, herr := e.headless.Fetch(ctx, request); herr == nil {
			title, text, err = e.reducer.Reduce(pageURL, headlessResp.Body)
		}
	}
	if err != nil {
		return e.failure(pageURL, err)
	}

	text = capRunes(text, e.cfg.MaxTextLength)
	metrics.RecordExtraction(true, len([]rune(text)))
	return pipeline.ExtractionOutcome{
		URL:     pageURL,
		Success: true,
		Title:   title,
		Text:    text,
	}
}

func (e *Extractor) failure(pageURL string, err error) pipeline.ExtractionOutcome {
	metrics.RecordExtraction(false, 0)
	return pipeline.ExtractionOutcome{
		URL:   pageURL,
		Error: classification(err),
	}
}

// classification renders any task error as an outcome error string.
func classification(err error) string {
	var fetchErr *pipeline.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Classification()
	}
	return "internal:" + err.Error()
}

// capRunes truncates s to at most n runes.
func capRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
