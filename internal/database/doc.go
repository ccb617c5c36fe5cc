// Package database keeps the crawl history of websnap in SQLite.
//
// Every snap run is recorded as a crawl with its seeds, output directory
// and final status. Each saved resource is recorded with its filename,
// type, HTTP status, a SHA3-256 digest of the saved content and, for
// images, a summary of the EXIF metadata found in it.
//
// The database is a single file (websnap.db) in the XDG data directory
// unless another directory is configured. modernc.org/sqlite is used so
// the binary stays CGO-free.
package database
