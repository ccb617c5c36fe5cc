package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name looked up in the
// current directory.
const DefaultConfigFile = ".websnap.yaml"

// File is the structure of a websnap YAML configuration file.
// Pointer fields distinguish "not set" from zero values.
type File struct {
	URLs            Seeds          `yaml:"urls,omitempty"`
	Directory       string         `yaml:"directory,omitempty"`
	DefaultFilename string         `yaml:"defaultFilename,omitempty"`
	Sources         []SourceRule   `yaml:"sources,omitempty"`
	Recursive       *bool          `yaml:"recursive,omitempty"`
	MaxDepth        *int           `yaml:"maxDepth,omitempty"`
	Filter          FilterRules    `yaml:"filter,omitempty"`
	Request         RequestOptions `yaml:"request,omitempty"`
	Subdirectories  []Subdirectory `yaml:"subdirectories,omitempty"`
	Proxy           string         `yaml:"proxy,omitempty"`
	Tor             *bool          `yaml:"tor,omitempty"`
}

// LoadConfigFile reads and decodes a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return ParseConfigFile(data)
}

// ParseConfigFile decodes YAML configuration data.
func ParseConfigFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, if specified
//  2. .websnap.yaml in the current directory
//  3. config.yaml in the XDG config directory
//
// It returns an empty string if no file is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}

	return ""
}

// Apply copies every value set in f into c.
func (f *File) Apply(c *Config) {
	if len(f.URLs) > 0 {
		c.URLs = append(Seeds(nil), f.URLs...)
	}
	if f.Directory != "" {
		c.Directory = f.Directory
	}
	if f.DefaultFilename != "" {
		c.DefaultFilename = f.DefaultFilename
	}
	if len(f.Sources) > 0 {
		c.Sources = append([]SourceRule(nil), f.Sources...)
	}
	if f.Recursive != nil {
		c.Recursive = *f.Recursive
	}
	if f.MaxDepth != nil {
		c.MaxDepth = *f.MaxDepth
	}
	if !f.Filter.IsZero() {
		c.URLFilter = f.Filter.Build()
	}
	c.Request = c.Request.Merge(f.Request)
	if len(f.Subdirectories) > 0 {
		c.Subdirectories = append([]Subdirectory(nil), f.Subdirectories...)
	}
	if f.Proxy != "" {
		c.ProxyAddress = f.Proxy
	}
	if f.Tor != nil {
		c.UseTor = *f.Tor
	}
}

// LoadInto finds the configuration file (see FindConfigFile) and applies it
// to c. An explicitly requested file that does not exist is an error; a
// missing default file is not. It returns the path that was loaded.
func LoadInto(c *Config, configPath string) (string, error) {
	path := FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return "", NewConfigError("config", ErrConfigNotFound)
		}
		return "", nil
	}

	f, err := LoadConfigFile(path)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return "", NewConfigError("config", err)
		}
		return "", err
	}
	f.Apply(c)
	return path, nil
}
