// Package pipeline runs detection, placement and compositing over a batch of
// photos, one image at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/kozaktomas/sunglasses/internal/compositor"
	"github.com/kozaktomas/sunglasses/internal/constants"
	"github.com/kozaktomas/sunglasses/internal/imageutil"
	"github.com/kozaktomas/sunglasses/internal/landmarks"
	"github.com/kozaktomas/sunglasses/internal/overlay"
	"github.com/kozaktomas/sunglasses/internal/placement"
	"github.com/kozaktomas/sunglasses/internal/readiness"
)

var (
	// ErrProviderNotReady is returned when the landmark provider does not
	// become ready in time or fails to load.
	ErrProviderNotReady = errors.New("landmark provider not ready")
	// ErrNoFacesFound is returned by Result.Err when no input had a face.
	ErrNoFacesFound = errors.New("no faces found")
)

// Skip reasons.
const (
	ReasonNotImage = "not an image"
	ReasonDecode   = "decode failed"
	ReasonNoFaces  = "no faces detected"
	ReasonEncode   = "encode failed"
)

// Input is one photo of a batch.
type Input struct {
	Filename string
	Data     []byte
}

// ProcessedImage is a photo with overlays drawn on every detected face.
type ProcessedImage struct {
	Filename string `json:"filename"`
	Data     []byte `json:"-"`
	Handle   string `json:"handle"`
	Faces    int    `json:"faces"`
}

// Skip records an input that produced no output.
type Skip struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// Result is the outcome of a batch, with images in input order.
type Result struct {
	Images  []ProcessedImage `json:"images"`
	Skipped []Skip           `json:"skipped"`
	Total   int              `json:"total"`
}

// Empty reports whether no input yielded an image.
func (r *Result) Empty() bool {
	return len(r.Images) == 0
}

// Err returns ErrNoFacesFound for an empty result, nil otherwise.
func (r *Result) Err() error {
	if r.Empty() {
		return ErrNoFacesFound
	}
	return nil
}

// Find returns the image with the given handle.
func (r *Result) Find(handle string) (ProcessedImage, bool) {
	for _, img := range r.Images {
		if img.Handle == handle {
			return img, true
		}
	}
	return ProcessedImage{}, false
}

// Progress is reported before each input is processed. Current is 1-based.
type Progress struct {
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	Filename string `json:"filename"`
}

// Callbacks receive batch events. Any field may be nil.
type Callbacks struct {
	OnProgress func(Progress)
	OnSkip     func(Skip)
	OnImage    func(ProcessedImage)
}

// OverlaySource supplies the overlay asset.
type OverlaySource interface {
	Current() (overlay.Asset, bool)
	Ready() *readiness.Signal
}

// Options tune a pipeline. Zero values take package defaults.
type Options struct {
	ProviderTimeout  time.Duration
	OverlayTimeout   time.Duration
	MaxDetectionSize int
	Logger           *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ProviderTimeout <= 0 {
		o.ProviderTimeout = constants.ProviderReadyTimeout
	}
	if o.OverlayTimeout <= 0 {
		o.OverlayTimeout = constants.OverlayReadyTimeout
	}
	if o.MaxDetectionSize <= 0 {
		o.MaxDetectionSize = constants.MaxDetectionSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Pipeline processes batches against one provider and overlay source.
type Pipeline struct {
	provider landmarks.Provider
	overlays OverlaySource
	opts     Options
	logger   *slog.Logger
	proc     *process.Process
}

// New creates a pipeline.
func New(provider landmarks.Provider, overlays OverlaySource, opts Options) *Pipeline {
	opts = opts.withDefaults()
	p := &Pipeline{
		provider: provider,
		overlays: overlays,
		opts:     opts,
		logger:   opts.Logger,
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		p.proc = proc
	}
	return p
}

// ProcessBatch processes inputs strictly in order. It fails only if the
// provider is not ready; per-image problems are recorded as skips.
func (p *Pipeline) ProcessBatch(ctx context.Context, inputs []Input, cb Callbacks) (*Result, error) {
	if err := p.provider.Ready().Wait(ctx, p.opts.ProviderTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderNotReady, err)
	}

	var asset *overlay.Asset
	if err := p.overlays.Ready().Wait(ctx, p.opts.OverlayTimeout); err != nil {
		p.logger.Warn("overlay not ready, continuing without overlay", "error", err)
	} else if a, ok := p.overlays.Current(); ok {
		asset = &a
	}

	result := &Result{Total: len(inputs)}
	for i, in := range inputs {
		if cb.OnProgress != nil {
			cb.OnProgress(Progress{Current: i + 1, Total: len(inputs), Filename: in.Filename})
		}

		img, reason := p.processOne(ctx, in, asset)
		if reason != "" {
			skip := Skip{Filename: in.Filename, Reason: reason}
			result.Skipped = append(result.Skipped, skip)
			if cb.OnSkip != nil {
				cb.OnSkip(skip)
			}
		} else {
			result.Images = append(result.Images, img)
			if cb.OnImage != nil {
				cb.OnImage(img)
			}
		}
		p.logMemory(in.Filename)
	}

	p.logger.Info("batch finished",
		"total", result.Total,
		"processed", len(result.Images),
		"skipped", len(result.Skipped))
	return result, nil
}

// processOne returns the processed image, or a non-empty skip reason.
func (p *Pipeline) processOne(ctx context.Context, in Input, asset *overlay.Asset) (ProcessedImage, string) {
	log := p.logger.With("file", in.Filename)

	if !imageutil.IsImage(in.Data) {
		log.Info("skipping non-image input")
		return ProcessedImage{}, ReasonNotImage
	}
	base, _, err := imageutil.Decode(in.Data)
	if err != nil {
		log.Warn("failed to decode image", "error", err)
		return ProcessedImage{}, ReasonDecode
	}

	small, scale := imageutil.Downscale(base, p.opts.MaxDetectionSize)
	detections, err := p.provider.Detect(ctx, small)
	if err != nil {
		log.Warn("detection failed, treating as no faces", "error", err)
		detections = nil
	}
	if len(detections) == 0 {
		log.Info("no faces detected")
		return ProcessedImage{}, ReasonNoFaces
	}

	var overlayImg image.Image
	aspect := 0.0
	if asset != nil {
		overlayImg = asset.Image
		aspect = asset.AspectRatio()
	}
	placements := placement.PlaceAll(detections, aspect, scale)
	if len(placements) == 0 {
		log.Info("no usable landmarks")
		return ProcessedImage{}, ReasonNoFaces
	}

	out := compositor.Composite(base, overlayImg, placements)
	data, err := imageutil.EncodePNG(out)
	if err != nil {
		log.Warn("failed to encode output", "error", err)
		return ProcessedImage{}, ReasonEncode
	}

	log.Debug("image processed", "faces", len(placements), "detection_scale", scale)
	return ProcessedImage{
		Filename: imageutil.Stem(in.Filename) + constants.OutputSuffix,
		Data:     data,
		Handle:   uuid.NewString(),
		Faces:    len(placements),
	}, ""
}

func (p *Pipeline) logMemory(filename string) {
	if p.proc == nil {
		return
	}
	mem, err := p.proc.MemoryInfo()
	if err != nil {
		return
	}
	p.logger.Debug("memory after image", "file", filename, "rss_mb", mem.RSS/1024/1024)
}
