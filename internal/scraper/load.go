package scraper

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/nao1215/websnap/internal/config"
	"github.com/nao1215/websnap/internal/media"
	"github.com/nao1215/websnap/internal/model"
	"github.com/nao1215/websnap/internal/urlutil"
)

// LoadResource fetches r, runs its handlers and saves it.
//
// It returns nil, nil when the URL filter rejects r. When a resource with
// the same normalized URL was loaded or is being loaded, that resource is
// returned instead and nothing is fetched. A transport failure of r or of
// any resource discovered below it is returned as an error; an HTTP error
// status is not a failure.
func (s *Scraper) LoadResource(ctx context.Context, r *model.Resource) (*model.Resource, error) {
	if !s.cfg.Filter()(r.URL()) {
		s.logger.Debug("skipped by filter", "url", r.URL())
		return nil, nil
	}

	if cached := s.GetLoadedResource(r); cached != nil {
		return cached, nil
	}

	// Only the caller that runs the flight continues with handlers and
	// saving. Others get the resource once it is cached, like a cache hit.
	leader := false
	v, err, _ := s.flights.Do(urlutil.Key(r.URL()), func() (any, error) {
		if cached := s.GetLoadedResource(r); cached != nil {
			return cached, nil
		}
		leader = true

		if err := s.fetch(ctx, r); err != nil {
			return nil, err
		}
		s.AddLoadedResource(r)
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	res, _ := v.(*model.Resource)
	if !leader {
		return res, nil
	}

	if err := s.complete(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// fetch downloads r and settles its type and filename.
func (s *Scraper) fetch(ctx context.Context, r *model.Resource) error {
	resp, err := s.MakeRequest(ctx, r.URL())
	if err != nil {
		return err
	}

	r.SetResponse(resp.Content, resp.ContentType, resp.StatusCode)
	r.SetType(model.Classify(resp.ContentType, r.URL()))
	if r.Filename() == "" {
		r.SetFilename(s.assignFilename(r))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		s.logger.Warn("saving error response", "url", r.URL(), "status", resp.StatusCode)
	}
	return nil
}

// complete runs the handlers of r and writes the final content.
func (s *Scraper) complete(ctx context.Context, r *model.Resource) error {
	bound := s.ResourceHandler(r)
	content, err := bound.Run(ctx, r.Content())
	if err != nil {
		return err
	}
	r.SetContent(content)

	if err := s.store.WriteFile(ctx, r.Filename(), content); err != nil {
		return fmt.Errorf("failed to save %s as %s: %w", r.URL(), r.Filename(), err)
	}

	s.logger.Debug("saved",
		"url", r.URL(),
		"file", r.Filename(),
		"type", r.Type().String(),
		"depth", r.Depth(),
		"handlers", bound.Names(),
	)

	s.record(ctx, r, content)
	return nil
}

// record inspects saved images and hands r to the recorder. Neither step
// can fail the crawl.
func (s *Scraper) record(ctx context.Context, r *model.Resource, content []byte) {
	var meta media.Summary
	if r.Type() == model.TypeOther && media.IsImage(r.ContentType(), r.URL()) {
		summary, err := media.Inspect(content)
		if err != nil {
			s.logger.Debug("failed to read image metadata", "url", r.URL(), "error", err)
		}
		meta = summary
		if meta.Sensitive() {
			s.logger.Warn("image carries identifying metadata",
				"url", r.URL(),
				"file", r.Filename(),
				"gps", meta.HasGPS,
				"serial", meta.HasSerial,
				"author", meta.Author != "",
			)
		}
	}

	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordResource(ctx, r, meta); err != nil {
		s.logger.Warn("failed to record resource", "url", r.URL(), "error", err)
	}
}

// assignFilename derives a free filename for r from its URL, falling back
// to the default filename.
func (s *Scraper) assignFilename(r *model.Resource) string {
	name := urlutil.FilenameFromURL(r.URL())
	if name == "" {
		name = s.cfg.Filename()
	}
	name = withTypeExtension(name, r.Type())
	name = config.PlaceFilename(s.cfg.Subdirectories, name)
	return s.claimFilename(name)
}

// claimFilename reserves name, adding a numeric suffix while it is taken.
func (s *Scraper) claimFilename(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := name
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; s.filenames[candidate]; i++ {
		candidate = base + "_" + strconv.Itoa(i) + ext
	}
	s.filenames[candidate] = true
	return candidate
}

// withTypeExtension makes sure pages and stylesheets open as such from disk.
func withTypeExtension(name string, t model.ResourceType) string {
	ext := strings.ToLower(path.Ext(name))
	switch t {
	case model.TypeHTML:
		if ext != ".html" && ext != ".htm" && ext != ".xhtml" && ext != ".shtml" {
			return name + ".html"
		}
	case model.TypeCSS:
		if ext != ".css" {
			return name + ".css"
		}
	}
	return name
}
