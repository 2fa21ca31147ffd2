// Package mock provides a scripted landmark provider and synthetic faces for tests.
package mock

import (
	"context"
	"image"
	"sync"

	"github.com/kozaktomas/sunglasses/internal/landmarks"
	"github.com/kozaktomas/sunglasses/internal/readiness"
)

// Provider returns scripted responses in call order.
type Provider struct {
	mu        sync.Mutex
	responses [][]landmarks.Detection
	errs      []error
	calls     []image.Rectangle
	ready     *readiness.Signal

	// LoadError is used to resolve readiness when Load is called.
	LoadError error
}

// NewProvider creates a provider whose Detect returns responses[i] on call i.
// Calls past the end return no faces.
func NewProvider(responses ...[]landmarks.Detection) *Provider {
	return &Provider{
		responses: responses,
		ready:     readiness.New("mock provider"),
	}
}

// NewReadyProvider is NewProvider with readiness already resolved.
func NewReadyProvider(responses ...[]landmarks.Detection) *Provider {
	p := NewProvider(responses...)
	p.ready.Resolve(nil)
	return p
}

// FailOn makes call i return err instead of its scripted response.
func (p *Provider) FailOn(i int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.errs) <= i {
		p.errs = append(p.errs, nil)
	}
	p.errs[i] = err
}

// Load resolves readiness with LoadError.
func (p *Provider) Load(ctx context.Context) error {
	p.ready.Resolve(p.LoadError)
	return p.LoadError
}

// Ready returns the readiness signal.
func (p *Provider) Ready() *readiness.Signal {
	return p.ready
}

// Detect returns the next scripted response.
func (p *Provider) Detect(ctx context.Context, img image.Image) ([]landmarks.Detection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := len(p.calls)
	p.calls = append(p.calls, img.Bounds())
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i < len(p.responses) {
		return p.responses[i], nil
	}
	return nil, nil
}

// Close does nothing.
func (p *Provider) Close() error {
	return nil
}

// Calls returns the bounds of every image passed to Detect.
func (p *Provider) Calls() []image.Rectangle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]image.Rectangle, len(p.calls))
	copy(out, p.calls)
	return out
}

// FaceSpec describes a synthetic face.
type FaceSpec struct {
	LeftEye   landmarks.Point
	RightEye  landmarks.Point
	NoseX     float64 // x of the nose bridge
	JawLeftX  float64 // x of jaw point 0
	JawRightX float64 // x of jaw point 16
}

// Frontal returns a spec for a forward-facing face with eye centers at
// (cx-eyeDistance/2, cy) and (cx+eyeDistance/2, cy).
func Frontal(cx, cy, eyeDistance float64) FaceSpec {
	return FaceSpec{
		LeftEye:   landmarks.Point{X: cx - eyeDistance/2, Y: cy},
		RightEye:  landmarks.Point{X: cx + eyeDistance/2, Y: cy},
		NoseX:     cx,
		JawLeftX:  cx - eyeDistance,
		JawRightX: cx + eyeDistance,
	}
}

// eyeRing offsets average to zero so the group centroid equals its center.
var eyeRing = []landmarks.Point{
	{X: -2, Y: 0}, {X: -1, Y: -1}, {X: 1, Y: -1},
	{X: 2, Y: 0}, {X: 1, Y: 1}, {X: -1, Y: 1},
}

// Landmarks builds 68 points matching the spec.
func (s FaceSpec) Landmarks() landmarks.FaceLandmarks {
	points := make([]landmarks.Point, landmarks.PointCount)
	eyeY := (s.LeftEye.Y + s.RightEye.Y) / 2

	// Jaw 0..16: left edge to right edge, dropping toward the chin.
	for i := 0; i < 17; i++ {
		t := float64(i) / 16
		x := s.JawLeftX + (s.JawRightX-s.JawLeftX)*t
		drop := (0.5 - abs(t-0.5)) * (s.JawRightX - s.JawLeftX)
		points[i] = landmarks.Point{X: x, Y: eyeY + drop}
	}
	points[0] = landmarks.Point{X: s.JawLeftX, Y: eyeY}
	points[16] = landmarks.Point{X: s.JawRightX, Y: eyeY}

	// Brows 17..26 sit above the eyes.
	for i := 17; i < 27; i++ {
		t := float64(i-17) / 9
		points[i] = landmarks.Point{X: s.LeftEye.X + (s.RightEye.X-s.LeftEye.X)*t, Y: eyeY - 10}
	}

	// Nose 27..35, bridge first.
	for i := 27; i < 36; i++ {
		points[i] = landmarks.Point{X: s.NoseX, Y: eyeY + float64(i-27)*2}
	}

	for i, off := range eyeRing {
		points[36+i] = landmarks.Point{X: s.LeftEye.X + off.X, Y: s.LeftEye.Y + off.Y}
		points[42+i] = landmarks.Point{X: s.RightEye.X + off.X, Y: s.RightEye.Y + off.Y}
	}

	// Mouth 48..67.
	for i := 48; i < 68; i++ {
		t := float64(i-48) / 19
		points[i] = landmarks.Point{X: s.LeftEye.X + (s.RightEye.X-s.LeftEye.X)*t, Y: eyeY + 30}
	}

	lm, err := landmarks.NewFaceLandmarks(points)
	if err != nil {
		panic(err)
	}
	return lm
}

// Detection wraps the landmarks in a detection with a box around the jaw.
func (s FaceSpec) Detection() landmarks.Detection {
	eyeY := (s.LeftEye.Y + s.RightEye.Y) / 2
	return landmarks.Detection{
		Box:       []float64{s.JawLeftX, eyeY - 20, s.JawRightX, eyeY + 40},
		Score:     0.9,
		Landmarks: s.Landmarks(),
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
