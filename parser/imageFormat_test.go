package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtensionForContentType(t *testing.T) {
	tests := map[string]string{
		"image/png":                ".png",
		"image/gif":                ".gif",
		"image/bmp":                ".bmp",
		"image/x-ms-bmp":           ".bmp",
		"image/tiff":               ".tiff",
		"image/jpeg":               ".jpeg",
		"IMAGE/JPEG; charset=utf8": ".jpeg",
		"image/webp":               ".jpg",
		"application/octet-stream": ".jpg",
		"":                         ".jpg",
	}

	for in, want := range tests {
		assert.Equal(t, want, ExtensionForContentType(in), "content type %q", in)
	}
}

func TestIsRasterExt(t *testing.T) {
	for _, ext := range []string{".jpg", ".JPEG", ".png", ".gif", ".bmp", ".tiff"} {
		assert.True(t, IsRasterExt(ext), ext)
	}
	for _, ext := range []string{".webp", ".txt", "", ".tif"} {
		assert.False(t, IsRasterExt(ext), ext)
	}
}

func TestIsHTML(t *testing.T) {
	assert.True(t, IsHTML("text/html; charset=UTF-8"))
	assert.False(t, IsHTML("image/jpeg"))
}
