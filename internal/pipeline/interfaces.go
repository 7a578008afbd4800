package pipeline

import (
	"context"
	"time"
)

// Fetcher fetches one URL and returns the raw body plus metadata.
// Classified failures are returned as *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Reducer turns raw HTML into readable (title, text) or a failure.
type Reducer interface {
	Reduce(pageURL string, html []byte) (title string, text string, err error)
}

// BlobStore writes individually addressable documents and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes archive notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload map[string]any) (string, error)
	Close() error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
