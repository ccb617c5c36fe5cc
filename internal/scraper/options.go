package scraper

import (
	"context"
	"log/slog"

	"github.com/nao1215/websnap/internal/config"
	"github.com/nao1215/websnap/internal/media"
	"github.com/nao1215/websnap/internal/model"
	"github.com/nao1215/websnap/internal/storage"
	"github.com/nao1215/websnap/internal/transport"
)

// Fetcher downloads one URL. It fails only when no response was received.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts config.RequestOptions) (*transport.Response, error)
}

// Recorder is told about every resource once its file is written.
type Recorder interface {
	RecordResource(ctx context.Context, r *model.Resource, meta media.Summary) error
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithFetcher replaces the HTTP client built from the configuration.
func WithFetcher(f Fetcher) Option {
	return func(s *Scraper) {
		s.fetcher = f
	}
}

// WithStore replaces the local directory store.
func WithStore(st storage.Store) Option {
	return func(s *Scraper) {
		s.store = st
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) {
		s.logger = logger
	}
}

// WithRecorder records every saved resource, e.g. in the history database.
func WithRecorder(r Recorder) Option {
	return func(s *Scraper) {
		s.recorder = r
	}
}

// WithStateObserver calls fn on every lifecycle transition.
func WithStateObserver(fn func(State)) Option {
	return func(s *Scraper) {
		s.observer = fn
	}
}
