// Package collyfetcher implements the document Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/metrics"
	"github.com/searchive/searchive/internal/pipeline"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher performs single HTTP GETs with redirect following and a bounded
// timeout. Failures come back as classified *pipeline.FetchError values,
// never as batch-fatal errors.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	base := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	base.AllowURLRevisit = true
	base.IgnoreRobotsTxt = true
	base.WithTransport(NewTransport())
	base.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: base,
		logger:        logger,
	}
}

// Fetch retrieves one document via a cloned collector.
func (f *Fetcher) Fetch(ctx context.Context, request pipeline.FetchRequest) (pipeline.FetchResponse, error) {
	collector := f.baseCollector.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	start := time.Now()

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range request.Headers {
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{page: pipeline.FetchResponse{
			URL:        request.URL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    cloneHeaders(r.Headers),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}})
	})

	collector.OnError(func(r *colly.Response, err error) {
		var status int
		if r != nil {
			status = r.StatusCode
		}
		send(fetchResult{err: classify(err, status)})
	})

	if err := collector.Visit(request.URL); err != nil {
		send(fetchResult{err: classify(err, 0)})
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return pipeline.FetchResponse{}, pipeline.NewInternalError(err.Error())
		}
		if res.err != nil {
			f.logger.Debug("fetch failed",
				zap.String("url", request.URL),
				zap.String("classification", res.err.Classification()),
			)
			return pipeline.FetchResponse{}, res.err
		}
		metrics.ObserveFetchDuration(res.page.Duration)
		return res.page, nil
	default:
		return pipeline.FetchResponse{}, pipeline.NewNetworkError("fetch produced no result")
	}
}

type fetchResult struct {
	page pipeline.FetchResponse
	err  *pipeline.FetchError
}

// classify maps transport and protocol errors onto the failure taxonomy.
func classify(err error, status int) *pipeline.FetchError {
	if status >= 400 {
		return pipeline.NewHTTPStatusError(status)
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return pipeline.NewTimeoutError()
	case errors.As(err, &netErr) && netErr.Timeout():
		return pipeline.NewTimeoutError()
	case err != nil:
		return pipeline.NewNetworkError(err.Error())
	default:
		return pipeline.NewNetworkError("unknown fetch error")
	}
}

func cloneHeaders(h *http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}

// NewTransport returns the pooled HTTP transport shared by outbound calls.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}
