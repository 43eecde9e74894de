package parser

import "strings"

// rasterExts is the set of file extensions the Assembler picks up.
var rasterExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".tiff": {},
}

// IsRasterExt reports whether ext (with the leading dot, any case) is a
// known raster extension.
func IsRasterExt(ext string) bool {
	_, ok := rasterExts[strings.ToLower(ext)]
	return ok
}

// DefaultExt is used when the content type names no known format.
const DefaultExt = ".jpg"

// contentTypeRules is checked in order; the first substring match wins.
var contentTypeRules = []struct {
	substr string
	ext    string
}{
	{"png", ".png"},
	{"gif", ".gif"},
	{"bmp", ".bmp"},
	{"tiff", ".tiff"},
	{"jpeg", ".jpeg"},
}

// ExtensionForContentType maps a Content-Type header value to the file
// extension a downloaded page is saved under.
func ExtensionForContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	for _, rule := range contentTypeRules {
		if strings.Contains(ct, rule.substr) {
			return rule.ext
		}
	}
	return DefaultExt
}

// IsHTML reports whether a Content-Type header value describes an HTML page.
func IsHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
