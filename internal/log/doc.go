// Package log builds the slog loggers used by websnap.
//
// Every logger wraps its text or JSON handler in a SecureHandler, which
// masks credentials before they reach the output: attributes whose key
// names a secret (cookie, authorization, password, token, ...), values that
// look like bearer tokens or keys, and the sensitive parts of URLs. A URL
// keeps its scheme, host and path, but the password in its userinfo and
// the values of query parameters such as "token" or "sig" are masked, so
// crawl logs can be shared without leaking the session used for the crawl.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
