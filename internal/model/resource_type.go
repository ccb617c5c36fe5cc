package model

import (
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"github.com/nao1215/websnap/internal/urlutil"
)

// ResourceType classifies fetched content. The type decides which handlers
// run after a resource is downloaded.
type ResourceType int

const (
	// TypeUnknown is the type of a resource that has not been fetched yet.
	TypeUnknown ResourceType = iota

	// TypeHTML is markup. Links, assets and embedded styles are discovered.
	TypeHTML

	// TypeCSS is a stylesheet. url() and @import references are discovered.
	TypeCSS

	// TypeOther is any other content (images, scripts, fonts, ...).
	// It is saved as-is and never inspected.
	TypeOther
)

// String returns the lower-case name used in reports and logs.
func (t ResourceType) String() string {
	switch t {
	case TypeHTML:
		return "html"
	case TypeCSS:
		return "css"
	case TypeOther:
		return "other"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the type as its name.
func (t ResourceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a type from its name.
func (t *ResourceType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseResourceType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseResourceType converts a name produced by String back into a type.
func ParseResourceType(s string) (ResourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html":
		return TypeHTML, nil
	case "css":
		return TypeCSS, nil
	case "other":
		return TypeOther, nil
	case "unknown", "":
		return TypeUnknown, nil
	default:
		return TypeUnknown, fmt.Errorf("unknown resource type %q", s)
	}
}

// Classify determines the type of fetched content from the Content-Type
// header reported by the transport. When the header is missing or generic,
// the extension of the URL path decides.
func Classify(contentType, rawURL string) ResourceType {
	mediaType := ""
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = strings.ToLower(mt)
		} else {
			mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
		}
	}

	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return TypeHTML
	case "text/css":
		return TypeCSS
	case "", "application/octet-stream", "text/plain":
		// Generic or missing type; fall through to the extension.
	default:
		return TypeOther
	}

	switch urlutil.Extension(rawURL) {
	case ".html", ".htm", ".xhtml", ".shtml":
		return TypeHTML
	case ".css":
		return TypeCSS
	case "":
		if mediaType == "" {
			// Directory-style URLs without a content type are almost always pages.
			return TypeHTML
		}
		return TypeOther
	default:
		return TypeOther
	}
}
