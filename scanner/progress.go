package scanner

import (
	"fmt"
	"time"

	"rawfinder/logging"
	"rawfinder/metrics"
)

// NewProgressTracker creates a tracker for a scan of the given size. When
// display is set a progress line is redrawn twice a second until Stop.
func NewProgressTracker(stats FileStats, display bool) *ProgressTracker {
	tracker := &ProgressTracker{
		done:  make(chan struct{}),
		stats: stats,
	}
	if display {
		tracker.ticker = time.NewTicker(500 * time.Millisecond)
		go tracker.displayProgress()
	}
	return tracker
}

func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.mu.Lock()
			if p.errors > 0 {
				fmt.Printf("\rProgress: %d/%d (Errors: %d, RAW: %d/%d, TIF: %d/%d)",
					p.processed, p.stats.TotalFiles, p.errors, p.rawProcessed, p.stats.RawFiles, p.tifProcessed, p.stats.TifFiles)
			} else {
				fmt.Printf("\rProgress: %d/%d (RAW: %d/%d, TIF: %d/%d)",
					p.processed, p.stats.TotalFiles, p.rawProcessed, p.stats.RawFiles, p.tifProcessed, p.stats.TifFiles)
			}
			p.mu.Unlock()
		}
	}
}

// Record accounts for one processed file
func (p *ProgressTracker) Record(result ProcessImageResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	if result.IsRaw {
		p.rawProcessed++
	}
	if result.IsTif {
		p.tifProcessed++
	}

	switch {
	case !result.Success:
		p.errors++
		if result.IsRaw {
			p.rawErrors++
		}
		if result.IsTif {
			p.tifErrors++
		}
		metrics.FilesIndexedTotal.WithLabelValues("failed").Inc()
		msg := ""
		if result.Error != nil {
			msg = result.Error.Error()
		}
		logging.LogImageProcessed(result.Path, false, msg)
	case result.Skipped:
		p.skipped++
		metrics.FilesIndexedTotal.WithLabelValues("skipped").Inc()
	default:
		metrics.FilesIndexedTotal.WithLabelValues("indexed").Inc()
		logging.LogImageProcessed(result.Path, true, "")
	}
}

// Stop ends the progress display. It is safe to call more than once.
func (p *ProgressTracker) Stop() {
	p.stopOnce.Do(func() {
		if p.ticker != nil {
			p.ticker.Stop()
		}
		close(p.done)
	})
}

// Summary returns a snapshot of the counts so far
func (p *ProgressTracker) Summary(elapsed time.Duration) Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Summary{
		Processed: p.processed,
		Skipped:   p.skipped,
		Errors:    p.errors,
		RawFiles:  p.rawProcessed,
		RawErrors: p.rawErrors,
		Elapsed:   elapsed,
	}
}

// PrintStartupInfo displays information about the scan before starting
func PrintStartupInfo(stats FileStats, options ScanOptions) {
	fmt.Printf("Starting image indexing...\nTotal image files to process: %d (including %d RAW files and %d TIF files)\n",
		stats.TotalFiles, stats.RawFiles, stats.TifFiles)
	fmt.Printf("Force rewrite mode: %v\n", options.ForceRewrite)

	if options.SourcePrefix != "" {
		fmt.Printf("Source prefix: %s\n", options.SourcePrefix)
	}

	if options.DebugMode {
		fmt.Printf("Debug mode: enabled\n")
		logging.DebugLog("Found %d image files to process (%d RAW files, %d TIF files)",
			stats.TotalFiles, stats.RawFiles, stats.TifFiles)
	}
}

// PrintCompletionStats displays statistics after scan completion
func PrintCompletionStats(s Summary, options ScanOptions) {
	if options.DebugMode {
		logging.DebugLog("Scan completed in %v. Processed: %d, Skipped: %d, Errors: %d, RAW files: %d, RAW errors: %d",
			s.Elapsed, s.Processed, s.Skipped, s.Errors, s.RawFiles, s.RawErrors)
	}

	fmt.Println("\nIndexing complete.")
	fmt.Printf("Processed %d images in %v (%d unchanged).\n", s.Processed, s.Elapsed.Round(time.Second), s.Skipped)

	if s.RawFiles > 0 {
		fmt.Printf("Successfully processed %d/%d RAW image files.\n", s.RawFiles-s.RawErrors, s.RawFiles)
	}

	if s.Errors > 0 {
		fmt.Printf("Encountered %d errors during indexing.\n", s.Errors)
		fmt.Println("Check the log file for details.")
	}
}
