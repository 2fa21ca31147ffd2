package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/kozaktomas/sunglasses/internal/imageutil"
	"github.com/kozaktomas/sunglasses/internal/landmarks"
	"github.com/kozaktomas/sunglasses/internal/landmarks/mock"
	"github.com/kozaktomas/sunglasses/internal/overlay"
	"github.com/kozaktomas/sunglasses/internal/readiness"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.RGBA{R: 255, A: 255}
)

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	data, err := imageutil.EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	return data
}

func redOverlay(t *testing.T) *overlay.Store {
	t.Helper()
	s := overlay.NewStore(nil)
	if err := s.Replace("red.png", solidPNG(t, 20, 10, red)); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	return s
}

func face() []landmarks.Detection {
	return []landmarks.Detection{mock.Frontal(50, 50, 20).Detection()}
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, _, err := imageutil.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return img
}

func isRed(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r > 0xe000 && g < 0x2000 && b < 0x2000
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r > 0xe000 && g > 0xe000 && b > 0xe000
}

func TestProcessBatch_SkipsFacelessImage(t *testing.T) {
	provider := mock.NewReadyProvider(face(), nil, face())
	p := New(provider, redOverlay(t), Options{})

	inputs := []Input{
		{Filename: "one.png", Data: solidPNG(t, 100, 100, white)},
		{Filename: "two.png", Data: solidPNG(t, 100, 100, white)},
		{Filename: "three.jpg", Data: solidPNG(t, 100, 100, white)},
	}

	var progress []Progress
	var skipped []Skip
	result, err := p.ProcessBatch(context.Background(), inputs, Callbacks{
		OnProgress: func(pr Progress) { progress = append(progress, pr) },
		OnSkip:     func(s Skip) { skipped = append(skipped, s) },
	})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if len(result.Images) != 2 {
		t.Fatalf("got %d images, want 2", len(result.Images))
	}
	if result.Images[0].Filename != "one_sunglasses.png" || result.Images[1].Filename != "three_sunglasses.png" {
		t.Errorf("filenames = %q, %q", result.Images[0].Filename, result.Images[1].Filename)
	}
	if result.Images[0].Handle == "" || result.Images[0].Handle == result.Images[1].Handle {
		t.Error("handles should be unique and non-empty")
	}
	if result.Images[0].Faces != 1 {
		t.Errorf("Faces = %d, want 1", result.Images[0].Faces)
	}
	if _, ok := result.Find(result.Images[1].Handle); !ok {
		t.Error("Find() did not locate image by handle")
	}

	if len(result.Skipped) != 1 || result.Skipped[0].Filename != "two.png" || result.Skipped[0].Reason != ReasonNoFaces {
		t.Errorf("Skipped = %+v", result.Skipped)
	}
	if len(skipped) != 1 {
		t.Errorf("OnSkip called %d times, want 1", len(skipped))
	}
	if result.Total != 3 || len(progress) != 3 {
		t.Errorf("Total = %d, progress events = %d; want 3, 3", result.Total, len(progress))
	}
	for i, pr := range progress {
		if pr.Current != i+1 || pr.Total != 3 || pr.Filename != inputs[i].Filename {
			t.Errorf("progress[%d] = %+v", i, pr)
		}
	}
	if result.Empty() || result.Err() != nil {
		t.Error("result with images should not be empty")
	}

	out := decode(t, result.Images[0].Data)
	if !isRed(out.At(50, 53)) {
		t.Errorf("overlay center pixel = %v, want red", out.At(50, 53))
	}
	if !isWhite(out.At(5, 95)) {
		t.Errorf("background pixel = %v, want white", out.At(5, 95))
	}
}

func TestProcessBatch_ScalesLandmarksToOriginal(t *testing.T) {
	// 2400x1200 is downscaled by 0.5 for detection.
	provider := mock.NewReadyProvider([]landmarks.Detection{mock.Frontal(300, 150, 40).Detection()})
	p := New(provider, redOverlay(t), Options{MaxDetectionSize: 1200})

	result, err := p.ProcessBatch(context.Background(), []Input{
		{Filename: "big.png", Data: solidPNG(t, 2400, 1200, white)},
	}, Callbacks{})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if len(result.Images) != 1 {
		t.Fatalf("got %d images, want 1", len(result.Images))
	}

	calls := provider.Calls()
	if len(calls) != 1 || calls[0].Dx() != 1200 || calls[0].Dy() != 600 {
		t.Fatalf("detection image bounds = %v, want 1200x600", calls)
	}

	out := decode(t, result.Images[0].Data)
	if out.Bounds().Dx() != 2400 || out.Bounds().Dy() != 1200 {
		t.Errorf("output size = %v, want full resolution", out.Bounds())
	}
	// Eye midpoint (600, 300); width 176, height 88, center y 300 + 13.2.
	if !isRed(out.At(600, 313)) {
		t.Errorf("pixel at scaled center = %v, want red", out.At(600, 313))
	}
	if !isRed(out.At(520, 313)) {
		t.Errorf("pixel near scaled left edge = %v, want red", out.At(520, 313))
	}
	if !isWhite(out.At(300, 156)) {
		t.Errorf("pixel at unscaled center = %v, want white", out.At(300, 156))
	}
}

func TestProcessBatch_ProviderNotReady(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*mock.Provider)
		wantErr error
	}{
		{
			name:    "timeout",
			setup:   func(*mock.Provider) {},
			wantErr: readiness.ErrTimeout,
		},
		{
			name: "load failure",
			setup: func(p *mock.Provider) {
				p.LoadError = errors.New("model missing")
				_ = p.Load(context.Background())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mock.NewProvider(face())
			tt.setup(provider)
			p := New(provider, redOverlay(t), Options{ProviderTimeout: 20 * time.Millisecond})

			result, err := p.ProcessBatch(context.Background(), []Input{
				{Filename: "a.png", Data: solidPNG(t, 10, 10, white)},
			}, Callbacks{})
			if !errors.Is(err, ErrProviderNotReady) {
				t.Fatalf("error = %v, want ErrProviderNotReady", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want wrapping %v", err, tt.wantErr)
			}
			if result != nil {
				t.Error("result should be nil on failure")
			}
			if len(provider.Calls()) != 0 {
				t.Error("Detect should not be called")
			}
		})
	}
}

func TestProcessBatch_OverlayTimeoutContinues(t *testing.T) {
	provider := mock.NewReadyProvider(face())
	p := New(provider, overlay.NewStore(nil), Options{OverlayTimeout: 10 * time.Millisecond})

	result, err := p.ProcessBatch(context.Background(), []Input{
		{Filename: "a.png", Data: solidPNG(t, 100, 100, white)},
	}, Callbacks{})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if len(result.Images) != 1 {
		t.Fatalf("got %d images, want 1", len(result.Images))
	}
	out := decode(t, result.Images[0].Data)
	if !isWhite(out.At(50, 53)) {
		t.Errorf("pixel = %v, want untouched base", out.At(50, 53))
	}
}

func TestProcessBatch_DetectionErrorAndNonImage(t *testing.T) {
	provider := mock.NewReadyProvider(face(), face())
	provider.FailOn(0, errors.New("provider crashed"))
	p := New(provider, redOverlay(t), Options{})

	var images []ProcessedImage
	result, err := p.ProcessBatch(context.Background(), []Input{
		{Filename: "notes.txt", Data: []byte("hello, not a photo")},
		{Filename: "broken.png", Data: solidPNG(t, 10, 10, white)},
		{Filename: "ok.png", Data: solidPNG(t, 100, 100, white)},
	}, Callbacks{OnImage: func(img ProcessedImage) { images = append(images, img) }})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if len(result.Skipped) != 2 {
		t.Fatalf("Skipped = %+v, want 2 entries", result.Skipped)
	}
	if result.Skipped[0].Reason != ReasonNotImage {
		t.Errorf("first skip reason = %q, want %q", result.Skipped[0].Reason, ReasonNotImage)
	}
	if result.Skipped[1].Reason != ReasonNoFaces {
		t.Errorf("second skip reason = %q, want %q", result.Skipped[1].Reason, ReasonNoFaces)
	}
	if len(provider.Calls()) != 2 {
		t.Errorf("Detect called %d times, want 2", len(provider.Calls()))
	}
	if len(result.Images) != 1 || len(images) != 1 || images[0].Filename != "ok_sunglasses.png" {
		t.Errorf("images = %+v", result.Images)
	}
}

func TestProcessBatch_AllFaceless(t *testing.T) {
	provider := mock.NewReadyProvider()
	p := New(provider, redOverlay(t), Options{})

	result, err := p.ProcessBatch(context.Background(), []Input{
		{Filename: "a.png", Data: solidPNG(t, 10, 10, white)},
		{Filename: "b.png", Data: solidPNG(t, 10, 10, white)},
	}, Callbacks{})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if !result.Empty() || !errors.Is(result.Err(), ErrNoFacesFound) {
		t.Errorf("Empty() = %v, Err() = %v; want true, ErrNoFacesFound", result.Empty(), result.Err())
	}
}
