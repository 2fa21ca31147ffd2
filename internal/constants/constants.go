// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Detection constants
const (
	// MaxDetectionSize is the longest edge, in pixels, of the copy sent to the
	// landmark provider
	MaxDetectionSize = 1200

	// ProviderReadyTimeout bounds the wait for the landmark provider to load
	ProviderReadyTimeout = 30 * time.Second

	// OverlayReadyTimeout bounds the wait for the overlay asset
	OverlayReadyTimeout = 3 * time.Second

	// ProviderRequestTimeout is the HTTP timeout for a single detection request
	ProviderRequestTimeout = 60 * time.Second

	// ProviderHealthInterval is the delay between provider health probes
	ProviderHealthInterval = 500 * time.Millisecond
)

// Output naming constants
const (
	// OutputSuffix is appended to the input name stem of every processed image
	OutputSuffix = "_sunglasses.png"

	// ArchiveName is the filename of multi-image downloads
	ArchiveName = "sunglasses_photos.zip"
)

// Progress store constants
const (
	// ProgressKey is the storage key of the progress record
	ProgressKey = "kokki-zukan-progress"

	// MinGrade and MaxGrade bound the school grade of the learner
	MinGrade = 1
	MaxGrade = 6

	// SessionSize is the number of cards in one learning session
	SessionSize = 10
)
