// Package media inspects mirrored images for embedded metadata.
//
// Images copied verbatim keep their EXIF block, which may carry the GPS
// position where a photo was taken or the serial number of the camera.
// Inspect summarizes what is there so the crawl can warn about it and the
// history database can record it.
package media

import (
	"mime"
	"path"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// Summary describes the EXIF metadata of one image.
type Summary struct {
	// Tags is the number of EXIF tags found. Zero means no EXIF block.
	Tags int
	// HasGPS is true when any GPS position tag is present.
	HasGPS bool
	// Camera is "Make Model" when either is present.
	Camera string
	// HasSerial is true when a device serial number is present.
	HasSerial bool
	// Author holds the Artist, Author or Copyright value.
	Author string
}

// Sensitive reports whether the metadata can identify a person, place or
// device.
func (s Summary) Sensitive() bool {
	return s.HasGPS || s.HasSerial || s.Author != ""
}

// exifExtensions are the formats that usually carry EXIF.
var exifExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
	".heic": true, ".png": true, ".webp": true,
}

// IsImage reports whether a resource with contentType and rawURL is an image
// worth inspecting.
func IsImage(contentType, rawURL string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mt, "image/") {
		return mt != "image/svg+xml"
	}
	u := rawURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return exifExtensions[strings.ToLower(path.Ext(u))]
}

// Inspect returns the EXIF summary of an image. Data without a readable
// EXIF block yields a zero Summary and no error.
func Inspect(data []byte) (Summary, error) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		// Not finding an EXIF block is the common case, not a failure.
		return Summary{}, nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	var maker, model string
	s.Tags = len(entries)
	for _, entry := range entries {
		switch entry.TagName {
		case "GPSLatitude", "GPSLongitude", "GPSLatitudeRef", "GPSLongitudeRef":
			s.HasGPS = true
		case "Make":
			maker = strings.TrimSpace(entry.Formatted)
		case "Model":
			model = strings.TrimSpace(entry.Formatted)
		case "SerialNumber", "CameraSerialNumber", "BodySerialNumber", "LensSerialNumber":
			s.HasSerial = true
		case "Artist", "Author", "Copyright", "XPAuthor":
			if s.Author == "" {
				s.Author = strings.TrimSpace(entry.Formatted)
			}
		}
	}
	s.Camera = strings.TrimSpace(maker + " " + model)
	return s, nil
}
