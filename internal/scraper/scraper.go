package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/nao1215/websnap/internal/config"
	"github.com/nao1215/websnap/internal/handler"
	"github.com/nao1215/websnap/internal/model"
	"github.com/nao1215/websnap/internal/storage"
	"github.com/nao1215/websnap/internal/transport"
	"github.com/nao1215/websnap/internal/urlutil"
)

// ErrScrapeFailed is reported by ErrorCleanup when no cause was given.
var ErrScrapeFailed = errors.New("scrape failed")

// Scraper mirrors the configured seed URLs into a local directory.
// A Scraper runs one crawl; create a new one for the next.
type Scraper struct {
	cfg      *config.Config
	fetcher  Fetcher
	store    storage.Store
	logger   *slog.Logger
	recorder Recorder
	observer func(State)

	// sources and originals are set by Prepare.
	sources   []config.SourceRule
	originals []*model.Resource

	mu        sync.Mutex
	state     State
	loaded    map[string]*model.Resource
	filenames map[string]bool

	flights singleflight.Group
}

// New creates a Scraper for cfg. The configuration is copied; later changes
// to cfg have no effect.
func New(cfg *config.Config, opts ...Option) (*Scraper, error) {
	s := &Scraper{
		cfg:       cfg.Clone(),
		loaded:    make(map[string]*model.Resource),
		filenames: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.store == nil {
		s.store = storage.NewDir(s.cfg.Directory)
	}
	if s.fetcher == nil {
		clientOpts := []transport.Option{transport.WithLogger(s.logger)}
		if s.cfg.ProxyAddress != "" {
			clientOpts = append(clientOpts, transport.WithSOCKS5Proxy(s.cfg.ProxyAddress))
		}
		client, err := transport.NewClient(clientOpts...)
		if err != nil {
			return nil, err
		}
		s.fetcher = client
	}
	s.sources = s.cfg.Sources

	return s, nil
}

// State returns the current lifecycle state.
func (s *Scraper) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scraper) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	if s.observer != nil {
		s.observer(state)
	}
}

// Sources returns the extraction rules handlers apply to HTML documents.
func (s *Scraper) Sources() []config.SourceRule {
	return s.sources
}

// Originals returns the seed resources built by Prepare, in seed order.
func (s *Scraper) Originals() []*model.Resource {
	return s.originals
}

// LoadedCount returns the number of cached resources.
func (s *Scraper) LoadedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loaded)
}

// Validate checks the configuration and that the output directory does not
// exist yet. It has no side effects.
func (s *Scraper) Validate() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	if _, err := os.Stat(s.cfg.Directory); err == nil {
		return config.NewConfigError("directory", fmt.Errorf("%w: %s", config.ErrDirectoryExists, s.cfg.Directory))
	} else if !errors.Is(err, os.ErrNotExist) {
		return config.NewConfigError("directory", err)
	}

	s.setState(StateValidated)
	return nil
}

// Prepare creates the output directory, builds one resource per seed and
// settles the source rules.
func (s *Scraper) Prepare(ctx context.Context) error {
	if err := s.store.Mkdir(ctx); err != nil {
		return config.NewConfigError("directory", fmt.Errorf("%w: %w", config.ErrDirectoryCreate, err))
	}

	s.originals = make([]*model.Resource, 0, len(s.cfg.URLs))
	for _, seed := range s.cfg.URLs {
		s.originals = append(s.originals, model.NewResource(seed.URL, seed.Filename))
		if seed.Filename != "" {
			s.claimFilename(seed.Filename)
		}
	}

	if s.cfg.Recursive {
		s.sources = config.WithRecursiveSource(s.cfg.Sources)
	} else {
		s.sources = append([]config.SourceRule(nil), s.cfg.Sources...)
	}

	s.setState(StatePrepared)
	return nil
}

// MakeRequest fetches url with the configured request options.
func (s *Scraper) MakeRequest(ctx context.Context, url string) (*transport.Response, error) {
	return s.fetcher.Fetch(ctx, url, s.cfg.Request)
}

// GetLoadedResource returns the cached resource with the URL of r, or nil.
func (s *Scraper) GetLoadedResource(r *model.Resource) *model.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded[urlutil.Key(r.URL())]
}

// AddLoadedResource caches r under its normalized URL.
func (s *Scraper) AddLoadedResource(r *model.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded[urlutil.Key(r.URL())] = r
}

// ResourceHandler returns the handlers that run for r. Resources deeper
// than MaxDepth are kept but not searched for children.
func (s *Scraper) ResourceHandler(r *model.Resource) handler.Bound {
	if s.cfg.MaxDepth >= 0 && r.Depth() > s.cfg.MaxDepth {
		return handler.Bind(s, r)
	}
	return handler.Bind(s, r, handler.For(r.Type())...)
}

// Load loads every seed concurrently. The result is index-aligned with the
// seeds: a seed that failed or was filtered out leaves a nil entry. The
// returned error joins the failures of all seeds.
func (s *Scraper) Load(ctx context.Context) ([]*model.OutputObject, error) {
	s.setState(StateLoading)

	resources := make([]*model.Resource, len(s.originals))
	errs := make([]error, len(s.originals))

	var g errgroup.Group
	for i, r := range s.originals {
		g.Go(func() error {
			res, err := s.LoadResource(ctx, r)
			if err != nil {
				s.logger.Error("failed to load seed", "url", r.URL(), "error", err)
				errs[i] = fmt.Errorf("seed %s: %w", r.URL(), err)
				return nil
			}
			resources[i] = res
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // failures are collected per seed

	// Shared resources may be completed by another seed, so the tree is
	// built only after every seed returned.
	out := make([]*model.OutputObject, len(resources))
	for i, res := range resources {
		out[i] = model.NewOutputObject(res)
	}
	return out, errors.Join(errs...)
}

// ErrorCleanup removes the output directory when anything was loaded and
// returns err, or ErrScrapeFailed when err is nil. A failed removal is
// logged and never replaces err.
func (s *Scraper) ErrorCleanup(ctx context.Context, err error) error {
	if s.LoadedCount() > 0 {
		if rmErr := s.store.RemoveAll(ctx); rmErr != nil {
			s.logger.Error("failed to remove output directory", "directory", s.cfg.Directory, "error", rmErr)
		} else {
			s.logger.Info("removed partial output", "directory", s.cfg.Directory)
		}
	}

	s.setState(StateErrored)

	if err == nil {
		return ErrScrapeFailed
	}
	return err
}

// Scrape runs Validate, Prepare and Load. Any failure goes through
// ErrorCleanup exactly once.
func (s *Scraper) Scrape(ctx context.Context) ([]*model.OutputObject, error) {
	if err := s.Validate(); err != nil {
		return nil, s.ErrorCleanup(ctx, err)
	}
	if err := s.Prepare(ctx); err != nil {
		return nil, s.ErrorCleanup(ctx, err)
	}

	out, err := s.Load(ctx)
	if err != nil {
		return nil, s.ErrorCleanup(ctx, err)
	}

	if closer, ok := s.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn("failed to close output store", "error", err)
		}
	}

	s.setState(StateDone)
	return out, nil
}
