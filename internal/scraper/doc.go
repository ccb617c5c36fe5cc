// Package scraper drives a crawl: it validates the configuration, prepares
// the output directory, loads every seed and, recursively, everything the
// handlers discover, and removes partial output when the crawl fails.
//
// Every distinct URL is fetched at most once per Scraper. Resources are
// cached under their normalized URL and concurrent requests for a URL that
// is still being fetched share that fetch, so a page referenced from many
// parents is one shared *model.Resource.
package scraper
