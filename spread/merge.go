package spread

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is used for merged spreads.
const DefaultJPEGQuality = 95

// TargetHeight is the common height two pages are scaled to before they
// are placed side by side: the integer average of both heights. Pages that
// already share a height are left alone.
func TargetHeight(leftHeight, rightHeight int) int {
	if leftHeight == rightHeight {
		return leftHeight
	}
	return (leftHeight + rightHeight) / 2
}

// ScaledWidth keeps the aspect ratio of a width x height image scaled to
// targetHeight, rounding to the nearest pixel.
func ScaledWidth(width, height, targetHeight int) int {
	if height == 0 {
		return 0
	}
	return int(math.Round(float64(width) * float64(targetHeight) / float64(height)))
}

// MergePair places left and right side by side on a white canvas and
// writes the result as a JPEG to outPath. The output is written to a
// temporary file first so a failed merge never leaves a truncated JPEG
// under the final name.
func MergePair(leftPath, rightPath, outPath string, quality int) error {
	wrap := func(err error) error {
		return &MergeError{Left: leftPath, Right: rightPath, Err: err}
	}

	left, err := imaging.Open(leftPath)
	if err != nil {
		return wrap(&DecodeError{Path: leftPath, Err: err})
	}
	right, err := imaging.Open(rightPath)
	if err != nil {
		return wrap(&DecodeError{Path: rightPath, Err: err})
	}

	canvas, err := Compose(left, right)
	if err != nil {
		return wrap(err)
	}

	if err := saveJPEG(canvas, outPath, quality); err != nil {
		return wrap(err)
	}
	return nil
}

// Compose returns the spread built from two single pages.
func Compose(left, right image.Image) (*image.NRGBA, error) {
	lh, rh := left.Bounds().Dy(), right.Bounds().Dy()
	if lh <= 0 || rh <= 0 {
		return nil, fmt.Errorf("empty image (heights %d and %d)", lh, rh)
	}

	height := TargetHeight(lh, rh)
	if lh != rh {
		left = scaleToHeight(left, height)
		right = scaleToHeight(right, height)
	}

	lw := left.Bounds().Dx()
	canvas := imaging.New(lw+right.Bounds().Dx(), height, color.White)
	canvas = imaging.Paste(canvas, dropAlpha(left), image.Pt(0, 0))
	canvas = imaging.Paste(canvas, dropAlpha(right), image.Pt(lw, 0))
	return canvas, nil
}

func scaleToHeight(img image.Image, targetHeight int) image.Image {
	b := img.Bounds()
	width := max(1, ScaledWidth(b.Dx(), b.Dy(), targetHeight))
	return imaging.Resize(img, width, targetHeight, imaging.Lanczos)
}

// dropAlpha makes every pixel opaque while keeping its colour channels.
func dropAlpha(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

func saveJPEG(img image.Image, outPath string, quality int) error {
	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".merge-*.jpg")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode jpeg: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
