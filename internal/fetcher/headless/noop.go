package headless

import (
	"context"

	"github.com/searchive/searchive/internal/pipeline"
)

// Noop is a Fetcher used when headless rendering is disabled. It reports
// every request as unsupported so the caller keeps the static result.
type Noop struct{}

// NewNoop returns a disabled headless fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch always fails with an internal classification.
func (*Noop) Fetch(_ context.Context, _ pipeline.FetchRequest) (pipeline.FetchResponse, error) {
	return pipeline.FetchResponse{}, pipeline.NewInternalError("headless fetch disabled")
}

// Close is a no-op.
func (*Noop) Close() {}
