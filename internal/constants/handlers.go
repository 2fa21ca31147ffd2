package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels. A full batch
	// sends two events per file plus the final one.
	EventChannelBuffer = 2*MaxBatchFiles + 8
)

// File upload constants
const (
	// MaxUploadSize is the maximum batch upload size in bytes (200MB)
	MaxUploadSize = 200 << 20

	// MaxOverlaySize is the maximum overlay upload size in bytes (10MB)
	MaxOverlaySize = 10 << 20

	// MaxBatchFiles is the maximum number of files in one batch
	MaxBatchFiles = 100
)
