// Package overlay holds the accessory image drawn onto faces. The asset can
// be hot-swapped between batches; swapping the reference is the only mutation.
package overlay

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/kozaktomas/sunglasses/internal/imageutil"
	"github.com/kozaktomas/sunglasses/internal/readiness"
)

// DefaultName is the name reported for the bundled asset.
const DefaultName = "default-sunglasses.png"

//go:embed assets/default-sunglasses.png
var defaultPNG []byte

// Asset is a decoded overlay image.
type Asset struct {
	Name  string
	Image image.Image
	Data  []byte // encoded source bytes, served back to clients
}

// AspectRatio returns height divided by width, or 0 for an empty image.
func (a Asset) AspectRatio() float64 {
	b := a.Image.Bounds()
	if b.Dx() == 0 {
		return 0
	}
	return float64(b.Dy()) / float64(b.Dx())
}

// Store holds the current overlay asset.
type Store struct {
	mu       sync.RWMutex
	current  *Asset
	fallback *Asset
	ready    *readiness.Signal
	logger   *slog.Logger
}

// NewStore creates an empty store. Its readiness resolves when the first
// asset is loaded.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		ready:  readiness.New("overlay asset"),
		logger: logger,
	}
}

func decodeAsset(name string, data []byte) (*Asset, error) {
	img, _, err := imageutil.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("overlay %s: %w", name, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("overlay %s: empty image", name)
	}
	return &Asset{Name: name, Image: img, Data: data}, nil
}

// Bundled decodes the asset compiled into the binary.
func Bundled() (Asset, error) {
	a, err := decodeAsset(DefaultName, defaultPNG)
	if err != nil {
		return Asset{}, err
	}
	return *a, nil
}

// LoadDefault loads the asset at path, falling back to the bundled asset if
// path is empty or unreadable. The loaded asset becomes both current and
// the target of Reset.
func (s *Store) LoadDefault(path string) error {
	var asset *Asset
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			asset, err = decodeAsset(filepath.Base(path), data)
		}
		if err != nil {
			s.logger.Warn("failed to load overlay, using bundled default", "path", path, "error", err)
		}
	}
	if asset == nil {
		a, err := decodeAsset(DefaultName, defaultPNG)
		if err != nil {
			return fmt.Errorf("loading bundled overlay: %w", err)
		}
		asset = a
	}

	s.mu.Lock()
	s.current = asset
	s.fallback = asset
	s.mu.Unlock()

	s.logger.Info("overlay loaded", "name", asset.Name, "aspect_ratio", asset.AspectRatio())
	s.ready.Resolve(nil)
	return nil
}

// Replace decodes data and makes it the current asset.
func (s *Store) Replace(name string, data []byte) error {
	asset, err := decodeAsset(name, data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = asset
	s.mu.Unlock()

	s.logger.Info("overlay replaced", "name", name)
	s.ready.Resolve(nil)
	return nil
}

// Reset restores the asset loaded by LoadDefault. It reports false if no
// default was loaded.
func (s *Store) Reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fallback == nil {
		return false
	}
	s.current = s.fallback
	return true
}

// Current returns the current asset, if any.
func (s *Store) Current() (Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Asset{}, false
	}
	return *s.current, true
}

// Custom reports whether the current asset differs from the default.
func (s *Store) Custom() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current != s.fallback
}

// Ready returns the readiness signal.
func (s *Store) Ready() *readiness.Signal {
	return s.ready
}

// Bytes returns a copy of the current asset's encoded bytes, or nil.
func (s *Store) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	return bytes.Clone(s.current.Data)
}
