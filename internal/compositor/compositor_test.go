package compositor

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/kozaktomas/sunglasses/internal/placement"
)

func fill(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.RGBA{R: 255, A: 255}
)

func isColor(c color.Color, want color.RGBA) bool {
	r, g, b, a := c.RGBA()
	wr, wg, wb, wa := want.RGBA()
	near := func(x, y uint32) bool {
		d := int64(x) - int64(y)
		return d > -0x0800 && d < 0x0800
	}
	return near(r, wr) && near(g, wg) && near(b, wb) && near(a, wa)
}

func TestComposite_DrawsOverlayAtCenter(t *testing.T) {
	base := fill(100, 100, white)
	overlay := fill(10, 10, red)
	p := placement.Placement{CenterX: 50, CenterY: 50, Width: 20, Height: 20}

	out := Composite(base, overlay, []placement.Placement{p})

	if !isColor(out.At(50, 50), red) {
		t.Errorf("center pixel = %v, want red", out.At(50, 50))
	}
	if !isColor(out.At(5, 5), white) {
		t.Errorf("corner pixel = %v, want white", out.At(5, 5))
	}
	if !isColor(out.At(70, 50), white) {
		t.Errorf("pixel outside overlay = %v, want white", out.At(70, 50))
	}
}

func TestComposite_DoesNotMutateBase(t *testing.T) {
	base := fill(40, 40, white)
	overlay := fill(4, 4, red)
	p := placement.Placement{CenterX: 20, CenterY: 20, Width: 30, Height: 30}

	_ = Composite(base, overlay, []placement.Placement{p})

	if !isColor(base.At(20, 20), white) {
		t.Error("base image was modified")
	}
}

func TestComposite_NilOverlay(t *testing.T) {
	base := fill(10, 10, white)

	out := Composite(base, nil, []placement.Placement{{CenterX: 5, CenterY: 5, Width: 4, Height: 4}})

	if out.Bounds() != base.Bounds() {
		t.Errorf("bounds = %v, want %v", out.Bounds(), base.Bounds())
	}
	if !isColor(out.At(5, 5), white) {
		t.Error("expected plain copy without overlay")
	}
}

func TestComposite_OffsetOrigin(t *testing.T) {
	base := fill(30, 30, white).SubImage(image.Rect(10, 10, 30, 30))

	out := Composite(base, nil, nil)

	if b := out.Bounds(); b.Min != (image.Point{}) || b.Dx() != 20 || b.Dy() != 20 {
		t.Errorf("bounds = %v, want 20x20 at origin", b)
	}
}

func TestComposite_RotatedOverlayWide(t *testing.T) {
	base := fill(100, 100, white)
	overlay := fill(20, 4, red)
	// A wide bar rotated by 90 degrees becomes tall.
	p := placement.Placement{CenterX: 50, CenterY: 50, Width: 40, Height: 8, Angle: math.Pi / 2}

	out := Composite(base, overlay, []placement.Placement{p})

	if !isColor(out.At(50, 35), red) {
		t.Errorf("pixel above center = %v, want red", out.At(50, 35))
	}
	if !isColor(out.At(35, 50), white) {
		t.Errorf("pixel left of center = %v, want white", out.At(35, 50))
	}
}

func TestOverlayTransform_Corners(t *testing.T) {
	p := placement.Placement{CenterX: 100, CenterY: 80, Width: 40, Height: 10}
	m := OverlayTransform(p, 200, 50)

	tests := []struct {
		name         string
		sx, sy       float64
		wantX, wantY float64
	}{
		{"top left", 0, 0, 80, 75},
		{"bottom right", 200, 50, 120, 85},
		{"center", 100, 25, 100, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := m.Apply(tt.sx, tt.sy)
			if math.Abs(x-tt.wantX) > 1e-9 || math.Abs(y-tt.wantY) > 1e-9 {
				t.Errorf("Apply(%v, %v) = (%v, %v), want (%v, %v)", tt.sx, tt.sy, x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestOverlayTransform_SkewAndOffset(t *testing.T) {
	p := placement.Placement{CenterX: 0, CenterY: 0, Width: 20, Height: 10, Skew: 0.1, OffsetY: 2}
	m := OverlayTransform(p, 20, 10)

	// Right edge midpoint: local (10, 2) before shear, y shifted by 0.1*10.
	x, y := m.Apply(20, 5)
	if math.Abs(x-10) > 1e-9 || math.Abs(y-3) > 1e-9 {
		t.Errorf("Apply = (%v, %v), want (10, 3)", x, y)
	}
}

func TestMatrix_MulOrder(t *testing.T) {
	// Scale first, then translate.
	m := Translate(5, 0).Mul(Scale(2, 2))
	x, y := m.Apply(1, 1)
	if x != 7 || y != 2 {
		t.Errorf("Apply = (%v, %v), want (7, 2)", x, y)
	}

	if Chain() != Identity() {
		t.Error("empty Chain should be identity")
	}
}
