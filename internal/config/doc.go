// Package config defines the configuration of a websnap crawl: the seed
// URLs, the output directory, the extraction rules used to discover assets,
// the depth limit, the URL filter and the options applied to every request.
//
// A Config is created with NewConfig, optionally populated from a YAML file
// (see LoadInto) and from CLI flags, and checked with Validate. Invalid
// values are reported as *ConfigError wrapping one of the sentinel errors.
package config
