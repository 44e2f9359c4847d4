package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"rawfinder/logging"
)

// Tools names the external decoder executables. Each value is either a
// bare name resolved through PATH or an absolute path.
type Tools struct {
	Exiftool string
	Dcraw    string
	DcrawEmu string
}

// Config holds the decode settings. Start from Default or FromEnv and
// override only what you need.
type Config struct {
	// Wall-clock budget for one decode chain. Checked between strategies only.
	TimeoutBudget time.Duration
	// When set, the budget is also applied as a deadline on each tool process.
	EnforceToolDeadline bool

	ThumbnailSize      int   // side of the square grayscale thumbnail
	MinOutputBytes     int64 // file-write outputs must be strictly larger
	JPEGQuality        int   // 1-100
	DownscaleThreshold int   // sensor images wider or taller than this are halved

	TempDir string
	Tools   Tools
	// Query exiftool metadata for preview sizes before extracting.
	ExiftoolProbe bool

	DebugMode bool
	LogPath   string
}

// Default returns a Config populated with the production defaults.
func Default() Config {
	return Config{
		TimeoutBudget:      4 * time.Second,
		ThumbnailSize:      512,
		MinOutputBytes:     10000,
		JPEGQuality:        85,
		DownscaleThreshold: 2000,
		TempDir:            os.TempDir(),
		Tools: Tools{
			Exiftool: "exiftool",
			Dcraw:    "dcraw",
			DcrawEmu: "dcraw_emu",
		},
		ExiftoolProbe: true,
	}
}

// FromEnv returns Default with RAWFINDER_* environment overrides applied.
// Malformed values are reported and ignored.
func FromEnv() Config {
	c := Default()

	if v := os.Getenv("RAWFINDER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.TimeoutBudget = d
		} else {
			logging.LogWarning("ignoring RAWFINDER_TIMEOUT=%q: %v", v, err)
		}
	}
	envInt("RAWFINDER_THUMBNAIL_SIZE", &c.ThumbnailSize)
	envInt("RAWFINDER_JPEG_QUALITY", &c.JPEGQuality)
	envInt("RAWFINDER_DOWNSCALE_THRESHOLD", &c.DownscaleThreshold)
	if v := os.Getenv("RAWFINDER_MIN_OUTPUT_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MinOutputBytes = n
		} else {
			logging.LogWarning("ignoring RAWFINDER_MIN_OUTPUT_BYTES=%q: %v", v, err)
		}
	}

	if v := os.Getenv("RAWFINDER_TEMP_DIR"); v != "" {
		c.TempDir = v
	}
	if v := os.Getenv("RAWFINDER_EXIFTOOL"); v != "" {
		c.Tools.Exiftool = v
	}
	if v := os.Getenv("RAWFINDER_DCRAW"); v != "" {
		c.Tools.Dcraw = v
	}
	if v := os.Getenv("RAWFINDER_DCRAW_EMU"); v != "" {
		c.Tools.DcrawEmu = v
	}
	if v := os.Getenv("RAWFINDER_LOGFILE"); v != "" {
		c.LogPath = v
	}

	if v := os.Getenv("RAWFINDER_EXIFTOOL_PROBE"); v != "" {
		c.ExiftoolProbe = envBool("RAWFINDER_EXIFTOOL_PROBE")
	}
	c.EnforceToolDeadline = envBool("RAWFINDER_ENFORCE_DEADLINE")
	c.DebugMode = envBool("DEBUG") || envBool("RAWFINDER_DEBUG")

	return c
}

// Validate returns an error if the configuration is inconsistent.
func (c Config) Validate() error {
	if c.TimeoutBudget <= 0 {
		return errors.New("config: TimeoutBudget must be positive")
	}
	if c.ThumbnailSize <= 0 {
		return errors.New("config: ThumbnailSize must be positive")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return errors.New("config: JPEGQuality must be between 1 and 100")
	}
	if c.MinOutputBytes < 0 {
		return errors.New("config: MinOutputBytes must not be negative")
	}
	if c.DownscaleThreshold <= 0 {
		return errors.New("config: DownscaleThreshold must be positive")
	}
	if c.Tools.Exiftool == "" || c.Tools.Dcraw == "" || c.Tools.DcrawEmu == "" {
		return errors.New("config: tool names must not be empty")
	}
	return nil
}

func envInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logging.LogWarning("ignoring %s=%q: %v", name, v, err)
		return
	}
	*dst = n
}

func envBool(name string) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
