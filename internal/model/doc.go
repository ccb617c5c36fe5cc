// Package model defines the resource graph built during a crawl.
//
// A Resource is one downloaded URL: its content, detected type, the file it
// is saved as and the resources it references. Resources discovered from
// several pages are shared, so the graph may contain cycles.
//
// An OutputObject is the acyclic, JSON-serializable view of that graph that
// is handed to reports. Each resource appears at most once below any path
// from a seed.
package model
