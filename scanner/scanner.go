package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"rawfinder/codec"
	"rawfinder/database"
	"rawfinder/formats"
	"rawfinder/imagehash"
	"rawfinder/imageprocessor"
	"rawfinder/logging"
	"rawfinder/types"
)

// ScanAndStoreFolder hashes every image under options.FolderPath and stores
// the fingerprints in db. Files are decoded one at a time. A canceled ctx
// stops the walk and ScanAndStoreFolder returns the counts so far with
// ctx's error.
func ScanAndStoreFolder(ctx context.Context, db *sql.DB, d *imageprocessor.Decoder, options ScanOptions) (Summary, error) {
	stats := CountFiles(options.FolderPath)
	if options.ShowProgress {
		PrintStartupInfo(stats, options)
	}
	if options.DebugMode {
		logging.DebugLog("Starting image scan on folder: %s", options.FolderPath)
		logging.DebugLog("Force rewrite: %v, Source prefix: %s", options.ForceRewrite, options.SourcePrefix)
	}

	tracker := NewProgressTracker(stats, options.ShowProgress)
	defer tracker.Stop()

	startTime := time.Now()
	err := filepath.WalkDir(options.FolderPath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			logging.LogError("Error accessing path %s: %v", path, err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() || !formats.IsImageFile(path) {
			return nil
		}
		tracker.Record(processAndStoreImage(ctx, db, d, path, options))
		return nil
	})
	tracker.Stop()

	summary := tracker.Summary(time.Since(startTime))
	if options.ShowProgress {
		PrintCompletionStats(summary, options)
	}
	return summary, err
}

// CountFiles counts the indexable files under root
func CountFiles(root string) FileStats {
	var stats FileStats
	filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() || !formats.IsImageFile(path) {
			return nil
		}
		stats.TotalFiles++
		if formats.IsRawFormat(path) {
			stats.RawFiles++
		} else if formats.IsTiffFormat(path) {
			stats.TifFiles++
		}
		return nil
	})
	return stats
}

// processAndStoreImage processes a single image and stores it in the database
func processAndStoreImage(ctx context.Context, db *sql.DB, d *imageprocessor.Decoder, path string, options ScanOptions) ProcessImageResult {
	result := ProcessImageResult{
		Path:  path,
		IsRaw: formats.IsRawFormat(path),
		IsTif: formats.IsTiffFormat(path),
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		result.Error = fmt.Errorf("cannot stat file %s: %v", path, err)
		return result
	}

	if !options.ForceRewrite {
		if skip := checkAndSkipIfUnchanged(db, path, fileInfo, options); skip != nil {
			skip.IsRaw, skip.IsTif = result.IsRaw, result.IsTif
			return *skip
		}
	}

	hashes, err := HashImage(ctx, d, path)
	if err != nil {
		result.Error = fmt.Errorf("failed to hash image %s: %w", path, err)
		return result
	}

	format := formats.Extension(path)
	if options.DebugMode && result.IsRaw {
		logging.DebugLog("%s image hashes - %s - avgHash: %s, blockHash: %s",
			format, path, hashes.Average, hashes.BlockMedian)
	}

	imageInfo := types.ImageInfo{
		Path:            path,
		SourcePrefix:    options.SourcePrefix,
		Format:          format,
		Width:           hashes.Width,
		Height:          hashes.Height,
		ModifiedAt:      fileInfo.ModTime().Format(time.RFC3339),
		Size:            fileInfo.Size(),
		AverageHash:     hashes.Average,
		BlockMedianHash: hashes.BlockMedian,
		IsRawFormat:     result.IsRaw,
	}
	// Unchanged rows were skipped above; a stored row reaching here is stale.
	if err := database.StoreImageInfo(db, imageInfo, true); err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	return result
}

// HashImage computes both fingerprints of the file at path. RAW files go
// through the decode chain, other rasters are decoded directly.
func HashImage(ctx context.Context, d *imageprocessor.Decoder, path string) (ImageHashes, error) {
	var hashes ImageHashes
	size := d.Config().ThumbnailSize

	thumb, err := LoadThumbnail(ctx, d, path, size)
	if err != nil {
		return hashes, err
	}
	if !formats.IsRawFormat(path) {
		if c, _, err := codec.DecodeConfig(path); err == nil {
			hashes.Width, hashes.Height = c.Width, c.Height
		}
	}

	hashes.Average, err = imagehash.AverageHash(imageprocessor.Downsample(thumb, imagehash.AverageSize, imagehash.AverageSize))
	if err != nil {
		return hashes, err
	}
	hashes.BlockMedian, err = imagehash.BlockMedianHash(imageprocessor.Downsample(thumb, imagehash.BlockMedianSize, imagehash.BlockMedianSize))
	if err != nil {
		return hashes, err
	}
	return hashes, nil
}

// LoadThumbnail returns the size x size grayscale thumbnail hashes are
// computed from.
func LoadThumbnail(ctx context.Context, d *imageprocessor.Decoder, path string, size int) (*image.Gray, error) {
	if formats.IsRawFormat(path) {
		return d.GrayscaleThumbnail(ctx, path, size)
	}
	return d.LoadGrayscale(path, size)
}
