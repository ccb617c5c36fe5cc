// Package transport fetches resources over HTTP(S).
//
// A Client sends GET requests with the configured headers, cookie and user
// agent, decodes gzip, deflate and brotli bodies, and returns the body for
// every status code. Only requests that produce no response at all fail,
// with an error matching ErrTransport.
//
// Connections can go through a SOCKS5 proxy, either an external one or an
// embedded Tor daemon started with Tor.
package transport
