package transport

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// readBody reads at most limit bytes of the decoded body. Bodies larger
// than limit are truncated rather than rejected so the mirror stays usable;
// truncated reports whether that happened. An empty body is empty content
// whatever its Content-Encoding says.
func readBody(body io.Reader, contentEncoding string, limit int64) (data []byte, truncated bool, err error) {
	buffered := bufio.NewReader(body)
	if _, err := buffered.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return []byte{}, false, nil
		}
		return nil, false, fmt.Errorf("read body: %w", err)
	}

	var reader io.Reader = buffered
	var closer io.Closer

	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, false, fmt.Errorf("gzip decode: %w", err)
		}
		reader, closer = gz, gz
	case "br":
		reader = brotli.NewReader(buffered)
	case "deflate":
		fl := flate.NewReader(buffered)
		reader, closer = fl, fl
	}

	if closer != nil {
		defer closer.Close()
	}

	data, err = io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, false, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}
