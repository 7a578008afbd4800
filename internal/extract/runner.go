package extract

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/pipeline"
)

// OneExtractor is the unit of work the runner parallelizes.
type OneExtractor interface {
	ExtractOne(ctx context.Context, pageURL string) pipeline.ExtractionOutcome
}

// Runner executes extraction batches with bounded parallelism. The returned
// slice is always the same length as the input and positionally aligned to
// it, regardless of completion order.
type Runner struct {
	extractor   OneExtractor
	concurrency int
	logger      *zap.Logger
}

// NewRunner builds a Runner with the given concurrency width.
func NewRunner(extractor OneExtractor, concurrency int, logger *zap.Logger) (*Runner, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	return &Runner{
		extractor:   extractor,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// Run extracts every URL in the batch. A fault in one task never aborts the
// batch: each URL gets exactly one outcome, success or failure.
func (r *Runner) Run(ctx context.Context, urls []string) []pipeline.ExtractionOutcome {
	outcomes := make([]pipeline.ExtractionOutcome, len(urls))
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

admit:
	for i, pageURL := range urls {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			// No URL is ever dropped: unstarted work still produces
			// one failure outcome per input position.
			for j := i; j < len(urls); j++ {
				outcomes[j] = pipeline.ExtractionOutcome{
					URL:   urls[j],
					Error: "internal:canceled",
				}
			}
			break admit
		}

		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = r.safeExtract(ctx, pageURL)
		}(i, pageURL)
	}

	wg.Wait()

	succeeded := 0
	for _, o := range outcomes {
		if o.Success {
			succeeded++
		}
	}
	if r.logger != nil && len(urls) > 0 {
		r.logger.Info("extraction batch finished",
			zap.Int("total", len(urls)),
			zap.Int("succeeded", succeeded),
			zap.Int("failed", len(urls)-succeeded),
		)
	}
	return outcomes
}

// safeExtract converts a panic inside one task into a failure outcome for
// that URL alone.
func (r *Runner) safeExtract(ctx context.Context, pageURL string) (outcome pipeline.ExtractionOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.logger != nil {
				r.logger.Error("extraction task panicked",
					zap.String("url", pageURL),
					zap.Any("panic", rec),
				)
			}
			outcome = pipeline.ExtractionOutcome{
				URL:   pageURL,
				Error: fmt.Sprintf("internal:%v", rec),
			}
		}
	}()
	return r.extractor.ExtractOne(ctx, pageURL)
}
