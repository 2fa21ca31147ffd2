package placement

import (
	"math"

	"github.com/kozaktomas/sunglasses/internal/landmarks"
)

// Centroid returns the mean of the points, or the zero point for an empty slice.
func Centroid(points []landmarks.Point) landmarks.Point {
	if len(points) == 0 {
		return landmarks.Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return landmarks.Point{X: sx / n, Y: sy / n}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b landmarks.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b landmarks.Point) landmarks.Point {
	return landmarks.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// ScaleToOriginal maps landmarks found on a copy downscaled by detectionScale
// back to the original image: (x, y) becomes (x/s, y/s).
// A scale of 1, zero or a negative value returns the landmarks unchanged.
func ScaleToOriginal(lm landmarks.FaceLandmarks, detectionScale float64) landmarks.FaceLandmarks {
	if detectionScale <= 0 || detectionScale == 1 {
		return lm
	}
	return lm.Scale(1 / detectionScale)
}

// finite reports whether v is neither NaN nor infinite.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
