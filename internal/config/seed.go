package config

import (
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed is an entry point of a crawl.
type Seed struct {
	// URL is the absolute URL to download.
	URL string `yaml:"url"`

	// Filename optionally fixes the output filename of the seed.
	// When empty, the filename is derived from the URL.
	Filename string `yaml:"filename,omitempty"`
}

// UnmarshalYAML accepts either a plain URL string or a {url, filename} mapping.
func (s *Seed) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s.URL = strings.TrimSpace(node.Value)
		s.Filename = ""
		return nil
	case yaml.MappingNode:
		type plain Seed
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*s = Seed(p)
		s.URL = strings.TrimSpace(s.URL)
		return nil
	default:
		return fmt.Errorf("line %d: %w", node.Line, ErrInvalidSeed)
	}
}

// Seeds is the ordered list of seeds of a crawl.
type Seeds []Seed

// UnmarshalYAML accepts a single URL, a single {url, filename} mapping or a
// list of either. A single value becomes a one-element list.
func (s *Seeds) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		var one Seed
		if err := node.Decode(&one); err != nil {
			return err
		}
		*s = Seeds{one}
		return nil
	}

	out := make(Seeds, 0, len(node.Content))
	for _, item := range node.Content {
		var seed Seed
		if err := item.Decode(&seed); err != nil {
			return err
		}
		out = append(out, seed)
	}
	*s = out
	return nil
}

// SeedsFromURLs builds seeds without explicit filenames.
func SeedsFromURLs(urls ...string) Seeds {
	out := make(Seeds, 0, len(urls))
	for _, u := range urls {
		out = append(out, Seed{URL: strings.TrimSpace(u)})
	}
	return out
}

// URLs returns the seed URLs in order.
func (s Seeds) URLs() []string {
	out := make([]string, len(s))
	for i, seed := range s {
		out[i] = seed.URL
	}
	return out
}

// Validate checks that the seed URL is absolute and uses http or https.
func (s Seed) Validate() error {
	u, err := url.Parse(s.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%q: %w", s.URL, ErrInvalidURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: %w", s.URL, ErrInvalidURL)
	}
	return nil
}
