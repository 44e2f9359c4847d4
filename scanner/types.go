package scanner

import (
	"sync"
	"time"
)

// ScanOptions defines the options for scanning
type ScanOptions struct {
	FolderPath   string
	SourcePrefix string
	ForceRewrite bool
	DebugMode    bool
	// Print a progress line to stdout while scanning
	ShowProgress bool
}

// ProcessImageResult holds the result of processing an image
type ProcessImageResult struct {
	Path    string
	Success bool
	Skipped bool
	Error   error
	IsRaw   bool
	IsTif   bool
}

// FileStats tracks information about files to be processed
type FileStats struct {
	TotalFiles int
	RawFiles   int
	TifFiles   int
}

// ImageHashes are the fingerprints stored for one file
type ImageHashes struct {
	Average     string
	BlockMedian string
	// Source raster dimensions, zero when the file was decoded through
	// the RAW chain
	Width  int
	Height int
}

// ProgressTracker tracks progress of the scan operation
type ProgressTracker struct {
	processed    int
	skipped      int
	errors       int
	rawProcessed int
	rawErrors    int
	tifProcessed int
	tifErrors    int
	ticker       *time.Ticker
	done         chan struct{}
	stopOnce     sync.Once
	mu           sync.Mutex
	stats        FileStats
}

// Summary is the outcome of a completed or interrupted scan
type Summary struct {
	Processed int
	Skipped   int
	Errors    int
	RawFiles  int
	RawErrors int
	Elapsed   time.Duration
}
