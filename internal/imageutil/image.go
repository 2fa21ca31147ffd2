// Package imageutil decodes, resizes and encodes raster images.
package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned when data does not look like a supported image.
var ErrNotImage = errors.New("not an image")

// IsImage reports whether data sniffs as an image/* content type.
func IsImage(data []byte) bool {
	return strings.HasPrefix(http.DetectContentType(data), "image/")
}

// Decode decodes image data in any registered format. JPEGs are turned
// upright according to their EXIF orientation.
func Decode(data []byte) (image.Image, string, error) {
	if !IsImage(data) {
		return nil, "", ErrNotImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if format == "jpeg" {
		img = ApplyOrientation(img, Orientation(data))
	}
	return img, format, nil
}

// FitScale returns the factor that fits width x height within maxSize on the
// longest edge. It returns 1 when no resizing is needed.
func FitScale(width, height, maxSize int) float64 {
	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return 1
	}
	return float64(maxSize) / float64(max(width, height))
}

// Downscale resizes img to fit within maxSize while keeping aspect ratio and
// returns the scale factor used. Images already small enough are returned as is.
func Downscale(img image.Image, maxSize int) (image.Image, float64) {
	bounds := img.Bounds()
	scale := FitScale(bounds.Dx(), bounds.Dy(), maxSize)
	if scale == 1 {
		return img, 1
	}

	newWidth := max(1, int(float64(bounds.Dx())*scale+0.5))
	newHeight := max(1, int(float64(bounds.Dy())*scale+0.5))

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized, scale
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Stem returns filename without its last extension.
func Stem(filename string) string {
	if i := strings.LastIndex(filename, "."); i > 0 {
		return filename[:i]
	}
	return filename
}
