package imageutil

import (
	"bytes"
	"image"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Orientation returns the EXIF orientation tag of JPEG data (1 through 8).
// Missing or unreadable EXIF yields 1, the upright orientation.
func Orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// orientationTransform maps source pixel space of a w x h image to the
// displayed image for an EXIF orientation, and reports the displayed size.
func orientationTransform(orientation, w, h int) (f64.Aff3, int, int) {
	fw, fh := float64(w), float64(h)
	switch orientation {
	case 2: // mirrored horizontally
		return f64.Aff3{-1, 0, fw, 0, 1, 0}, w, h
	case 3: // rotated 180
		return f64.Aff3{-1, 0, fw, 0, -1, fh}, w, h
	case 4: // mirrored vertically
		return f64.Aff3{1, 0, 0, 0, -1, fh}, w, h
	case 5: // transposed
		return f64.Aff3{0, 1, 0, 1, 0, 0}, h, w
	case 6: // rotate 90 clockwise to display
		return f64.Aff3{0, -1, fh, 1, 0, 0}, h, w
	case 7: // transversed
		return f64.Aff3{0, -1, fh, -1, 0, fw}, h, w
	case 8: // rotate 90 counter-clockwise to display
		return f64.Aff3{0, 1, 0, -1, 0, fw}, h, w
	default:
		return f64.Aff3{1, 0, 0, 0, 1, 0}, w, h
	}
}

// ApplyOrientation returns img as it is meant to be displayed for the given
// EXIF orientation. Orientation 1 and unknown values return img unchanged.
func ApplyOrientation(img image.Image, orientation int) image.Image {
	if orientation < 2 || orientation > 8 {
		return img
	}
	b := img.Bounds()
	m, w, h := orientationTransform(orientation, b.Dx(), b.Dy())
	// Work in coordinates relative to the source origin.
	m[2] -= m[0]*float64(b.Min.X) + m[1]*float64(b.Min.Y)
	m[5] -= m[3]*float64(b.Min.X) + m[4]*float64(b.Min.Y)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Transform(out, m, img, b, draw.Src, nil)
	return out
}
