package landmarks

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/sunglasses/internal/readiness"
)

// ErrUnsupportedProvider is returned by New for unknown provider names.
var ErrUnsupportedProvider = errors.New("unsupported landmark provider")

// Provider detects faces and their landmarks in an image.
type Provider interface {
	// Load prepares the provider and resolves its readiness signal.
	Load(ctx context.Context) error
	// Ready is resolved once Load finishes.
	Ready() *readiness.Signal
	// Detect returns faces in detection order. An empty slice means no faces.
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
	Close() error
}

// Config configures a provider. Fields irrelevant to a provider are ignored.
type Config struct {
	URL            string
	Command        []string
	RequestTimeout time.Duration
	HealthInterval time.Duration
}

// Factory creates a provider from config.
type Factory func(cfg Config) (Provider, error)

var (
	factories   = make(map[string]Factory)
	factoriesMu sync.RWMutex
)

// Register makes a provider available under name.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New creates the provider registered under name.
func New(name string, cfg Config) (Provider, error) {
	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
	return f(cfg)
}

// Names returns registered provider names, sorted.
func Names() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("http", func(cfg Config) (Provider, error) {
		return NewHTTPProvider(cfg), nil
	})
	Register("exec", func(cfg Config) (Provider, error) {
		return NewExecProvider(cfg)
	})
}
