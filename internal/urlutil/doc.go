// Package urlutil provides the URL helpers used while mirroring a site:
// resolving references found in documents, comparing URLs for cache
// lookups, and mapping URLs to output filenames.
//
// All functions are pure. Invalid input never panics; helpers fall back to
// returning their input (or an empty string) when a URL cannot be parsed.
package urlutil
