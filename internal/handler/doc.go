// Package handler discovers and localizes the references inside a fetched
// resource.
//
// A Handler receives the current content of a resource, loads every child
// it finds through the Context and returns the content with each loaded
// reference rewritten to the relative path of the child's local file. The
// registry maps a resource type to the handlers that run for it, in order:
// stylesheets get the CSS handler, HTML documents get the CSS handler (for
// <style> blocks and style attributes) followed by the HTML handler.
package handler
