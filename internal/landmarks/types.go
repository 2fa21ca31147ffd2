// Package landmarks defines detected facial landmarks and the providers that
// produce them. Detection itself happens in an external service or helper
// process; this package only speaks to it and validates what comes back.
package landmarks

import (
	"errors"
	"fmt"
)

// PointCount is the number of points in the 68-point iBUG layout.
const PointCount = 68

// Index ranges of the landmark groups, half-open.
const (
	jawStart      = 0
	jawEnd        = 17
	noseStart     = 27
	noseEnd       = 36
	leftEyeStart  = 36
	leftEyeEnd    = 42
	rightEyeStart = 42
	rightEyeEnd   = 48
)

// ErrInvalidLandmarks is returned when a provider reports a face with the wrong
// number of landmark points.
var ErrInvalidLandmarks = errors.New("invalid landmarks")

// Point is a 2D landmark coordinate in image pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FaceLandmarks holds the 68 landmark points of one face. The zero value is
// not valid; use NewFaceLandmarks.
type FaceLandmarks struct {
	points []Point
}

// NewFaceLandmarks validates and copies the given points.
func NewFaceLandmarks(points []Point) (FaceLandmarks, error) {
	if len(points) != PointCount {
		return FaceLandmarks{}, fmt.Errorf("%w: expected %d points, got %d", ErrInvalidLandmarks, PointCount, len(points))
	}
	cp := make([]Point, len(points))
	copy(cp, points)
	return FaceLandmarks{points: cp}, nil
}

// FromPairs converts [[x, y], ...] pairs as returned by detector services.
func FromPairs(pairs [][]float64) (FaceLandmarks, error) {
	points := make([]Point, 0, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return FaceLandmarks{}, fmt.Errorf("%w: point %d has %d coordinates", ErrInvalidLandmarks, i, len(p))
		}
		points = append(points, Point{X: p[0], Y: p[1]})
	}
	return NewFaceLandmarks(points)
}

func (l FaceLandmarks) group(start, end int) []Point {
	if len(l.points) < end {
		return nil
	}
	out := make([]Point, end-start)
	copy(out, l.points[start:end])
	return out
}

// Points returns a copy of all points.
func (l FaceLandmarks) Points() []Point {
	return l.group(0, len(l.points))
}

// JawOutline returns the 17 face boundary points, ear to ear.
func (l FaceLandmarks) JawOutline() []Point { return l.group(jawStart, jawEnd) }

// Nose returns the 9 nose points; the first is the top of the bridge.
func (l FaceLandmarks) Nose() []Point { return l.group(noseStart, noseEnd) }

// LeftEye returns the 6 left eye points.
func (l FaceLandmarks) LeftEye() []Point { return l.group(leftEyeStart, leftEyeEnd) }

// RightEye returns the 6 right eye points.
func (l FaceLandmarks) RightEye() []Point { return l.group(rightEyeStart, rightEyeEnd) }

// Valid reports whether the landmarks have the full point layout.
func (l FaceLandmarks) Valid() bool {
	return len(l.points) == PointCount
}

// Scale returns a new FaceLandmarks with every coordinate multiplied by factor.
func (l FaceLandmarks) Scale(factor float64) FaceLandmarks {
	out := make([]Point, len(l.points))
	for i, p := range l.points {
		out[i] = Point{X: p.X * factor, Y: p.Y * factor}
	}
	return FaceLandmarks{points: out}
}

// Detection is one face reported by a provider.
type Detection struct {
	Box       []float64 // [x1, y1, x2, y2]
	Score     float64
	Landmarks FaceLandmarks
}

// Scale returns the detection with box and landmarks multiplied by factor.
func (d Detection) Scale(factor float64) Detection {
	box := make([]float64, len(d.Box))
	for i, v := range d.Box {
		box[i] = v * factor
	}
	return Detection{
		Box:       box,
		Score:     d.Score,
		Landmarks: d.Landmarks.Scale(factor),
	}
}

// faceJSON is the wire form of a detected face shared by the HTTP and exec providers.
type faceJSON struct {
	BBox      []float64   `json:"bbox"`
	DetScore  float64     `json:"det_score"`
	Landmarks [][]float64 `json:"landmarks"`
}

func decodeFaces(faces []faceJSON) ([]Detection, error) {
	detections := make([]Detection, 0, len(faces))
	for i, f := range faces {
		lm, err := FromPairs(f.Landmarks)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		detections = append(detections, Detection{
			Box:       f.BBox,
			Score:     f.DetScore,
			Landmarks: lm,
		})
	}
	return detections, nil
}
