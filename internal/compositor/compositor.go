// Package compositor draws overlay assets onto photos at computed placements.
package compositor

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/kozaktomas/sunglasses/internal/placement"
)

// OverlayTransform returns the transform mapping overlay pixel coordinates
// (origin at the overlay's top-left corner, size ow x oh) to base image
// coordinates for placement p.
func OverlayTransform(p placement.Placement, ow, oh int) Matrix {
	return Chain(
		Translate(p.CenterX, p.CenterY),
		Rotate(p.Angle),
		ShearY(p.Skew),
		Translate(-p.Width/2, -p.Height/2+p.OffsetY),
		Scale(p.Width/float64(ow), p.Height/float64(oh)),
	)
}

// Composite copies base to a new RGBA surface and draws overlay at each
// placement in order. base is never modified. A nil overlay produces a plain copy.
func Composite(base image.Image, overlay image.Image, placements []placement.Placement) *image.RGBA {
	bounds := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), base, bounds.Min, draw.Src)

	if overlay == nil {
		return out
	}
	ob := overlay.Bounds()
	if ob.Dx() == 0 || ob.Dy() == 0 {
		return out
	}

	for _, p := range placements {
		if p.Width <= 0 || p.Height <= 0 {
			continue
		}
		// Transform maps source coordinates relative to ob.Min.
		m := OverlayTransform(p, ob.Dx(), ob.Dy()).Mul(Translate(-float64(ob.Min.X), -float64(ob.Min.Y)))
		xdraw.CatmullRom.Transform(out, m.Aff3(), overlay, ob, xdraw.Over, nil)
	}
	return out
}
