package config

import (
	"path"
	"strings"
)

// Subdirectory groups downloaded files by extension, e.g. all images under
// "img/". Resources with an explicit filename are never moved.
type Subdirectory struct {
	// Directory is the relative directory, e.g. "img".
	Directory string `yaml:"directory"`

	// Extensions lists the extensions (with leading dot) stored in Directory.
	Extensions []string `yaml:"extensions"`
}

// DefaultSubdirectories mirrors the usual layout of a static site.
func DefaultSubdirectories() []Subdirectory {
	return []Subdirectory{
		{Directory: "img", Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico", ".bmp"}},
		{Directory: "js", Extensions: []string{".js", ".mjs"}},
		{Directory: "css", Extensions: []string{".css"}},
		{Directory: "fonts", Extensions: []string{".woff", ".woff2", ".ttf", ".eot", ".otf"}},
		{Directory: "media", Extensions: []string{".mp4", ".webm", ".mp3", ".ogg", ".wav", ".vtt"}},
	}
}

// PlaceFilename returns filename prefixed with the directory whose
// extensions include the extension of filename, or filename unchanged.
func PlaceFilename(subdirs []Subdirectory, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		return filename
	}
	for _, sd := range subdirs {
		for _, e := range sd.Extensions {
			if strings.ToLower(e) == ext {
				return path.Join(sd.Directory, filename)
			}
		}
	}
	return filename
}
