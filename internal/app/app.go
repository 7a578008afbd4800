// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/archive"
	"github.com/searchive/searchive/internal/clock/system"
	"github.com/searchive/searchive/internal/config"
	"github.com/searchive/searchive/internal/extract"
	collyfetcher "github.com/searchive/searchive/internal/fetcher/colly"
	headlessfetcher "github.com/searchive/searchive/internal/fetcher/headless"
	"github.com/searchive/searchive/internal/logging"
	"github.com/searchive/searchive/internal/metrics"
	"github.com/searchive/searchive/internal/pipeline"
	gcppublisher "github.com/searchive/searchive/internal/publisher/pubsub"
	"github.com/searchive/searchive/internal/ratelimit"
	"github.com/searchive/searchive/internal/session"
	gcsstorage "github.com/searchive/searchive/internal/storage/gcs"
	localstorage "github.com/searchive/searchive/internal/storage/local"
	memorystorage "github.com/searchive/searchive/internal/storage/memory"
)

// App holds all the shared, long-lived services for the application. It
// is initialized once at startup and passed to the components that need
// it.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	archive   *archive.Store
	session   *session.Session
	publisher pipeline.Publisher
	gcsClient *storage.Client
	headless  *headlessfetcher.Fetcher
}

// Build creates and initializes an App from the configuration. It is the
// central point for service initialization and fails fast if any
// critical service cannot be constructed.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}

	blobs, err := a.setupBlobStore(ctx)
	if err != nil {
		return nil, err
	}

	a.archive, err = archive.Open(cfg.Archive.Root, blobs, system.New(), logger)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	limiter, err := ratelimit.New(cfg.Search.RequestsPerSecond)
	if err != nil {
		return nil, fmt.Errorf("rate limiter init failed: %w", err)
	}

	queries, err := session.NewBraveClient(session.BraveConfig{
		BaseURL:      cfg.Search.BaseURL,
		APIKey:       cfg.Search.APIKey,
		DefaultCount: cfg.Search.DefaultCount,
	}, limiter, logger)
	if err != nil {
		return nil, fmt.Errorf("search client init failed: %w", err)
	}

	runner, err := a.setupExtraction()
	if err != nil {
		return nil, err
	}

	opts := session.Options{}
	if cfg.Publish.Enabled {
		logger.Info("connecting to pub/sub",
			zap.String("project", cfg.Publish.ProjectID),
			zap.String("topic", cfg.Publish.Topic))
		a.publisher, err = gcppublisher.New(ctx, cfg.Publish.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("publisher init failed: %w", err)
		}
		opts.Publisher = a.publisher
		opts.Topic = cfg.Publish.Topic
	}

	a.session, err = session.New(queries, runner, a.archive, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("session init failed: %w", err)
	}

	logger.Info("application services initialized")
	return a, nil
}

func (a *App) setupBlobStore(ctx context.Context) (pipeline.BlobStore, error) {
	switch a.cfg.Archive.Provider {
	case "local":
		blobs, err := localstorage.New(localstorage.Config{
			BaseDir: filepath.Join(a.cfg.Archive.Root, "extracted"),
		})
		if err != nil {
			return nil, fmt.Errorf("create local blob store: %w", err)
		}
		return blobs, nil
	case "gcs":
		a.logger.Info("using gcs blob store", zap.String("bucket", a.cfg.Archive.GCSBucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.gcsClient = client
		blobs, err := gcsstorage.New(client, gcsstorage.Config{Bucket: a.cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("create gcs blob store: %w", err)
		}
		return blobs, nil
	case "memory":
		a.logger.Info("using in-memory blob store, extracted text will not survive restarts")
		return memorystorage.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", a.cfg.Archive.Provider)
	}
}

func (a *App) setupExtraction() (session.Runner, error) {
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: a.cfg.Extract.UserAgent,
		Timeout:   a.cfg.FetchTimeout(),
	}, a.logger)

	var headless pipeline.Fetcher
	if a.cfg.Extract.HeadlessEnabled {
		hf, err := headlessfetcher.New(headlessfetcher.Config{
			MaxParallel:       1,
			UserAgent:         a.cfg.Extract.UserAgent,
			NavigationTimeout: a.cfg.HeadlessTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("headless fetcher init failed: %w", err)
		}
		a.headless = hf
		headless = hf
	}

	extractor, err := extract.NewExtractor(fetcher, headless, extract.NewReadabilityReducer(),
		extract.Config{MaxTextLength: a.cfg.Extract.MaxTextLength}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("extractor init failed: %w", err)
	}

	runner, err := extract.NewRunner(extractor, a.cfg.Extract.Concurrency, a.logger)
	if err != nil {
		return nil, fmt.Errorf("runner init failed: %w", err)
	}
	return runner, nil
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Session returns the pipeline orchestrator.
func (a *App) Session() *session.Session {
	return a.session
}

// Archive returns the archive store.
func (a *App) Archive() *archive.Store {
	return a.archive
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Close gracefully shuts down all services in the container.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("error closing publisher", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("error closing gcs client", zap.Error(err))
		}
	}
	if a.headless != nil {
		a.headless.Close()
	}
	// Best effort: logging itself may be failing at this point.
	_ = a.logger.Sync()
}
