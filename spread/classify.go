package spread

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultThreshold is the width/height ratio above which an image is
// treated as an existing two-page spread.
const DefaultThreshold = 1.1

// Dimensions returns the pixel size of the image at path without decoding
// the full pixel data.
func Dimensions(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, &DecodeError{Path: path, Err: err}
	}
	return cfg.Width, cfg.Height, nil
}

// IsSpreadLikely reports whether the image at path is wider than threshold
// times its height. Unreadable images and zero-height images are singles.
func IsSpreadLikely(path string, threshold float64) bool {
	width, height, err := Dimensions(path)
	if err != nil || height == 0 {
		return false
	}
	return float64(width)/float64(height) > threshold
}
