package downloader

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// decompressBody decodes body according to the Content-Encoding header.
// Only the header is trusted: image bytes can look like a compressed
// stream, so there is no sniffing. Unknown encodings pass through.
func decompressBody(body []byte, contentEncoding string) ([]byte, bool, error) {
	if len(body) == 0 {
		return body, false, nil
	}

	var reader io.Reader
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "br":
		reader = brotli.NewReader(bytes.NewReader(body))
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, false, fmt.Errorf("gzip reader creation failed: %w", err)
		}
		defer gz.Close()
		reader = gz
	default:
		return body, false, nil
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("%s decompression failed: %w", contentEncoding, err)
	}
	return decoded, true, nil
}
