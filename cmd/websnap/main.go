// Package main provides the entry point for the websnap CLI.
//
// websnap saves web pages together with the images, stylesheets, scripts
// and other files they reference into a local directory, rewriting the
// references so the copy can be browsed offline.
//
// Usage:
//
//	websnap snap -d mirror https://example.com
//	websnap snap -d mirror -r --max-depth 2 https://example.com
//	websnap history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
