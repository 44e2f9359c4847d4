package scanner

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"rawfinder/database"
	"rawfinder/logging"
)

// checkAndSkipIfUnchanged returns a result when path is already indexed and
// has not been modified since, and nil when it needs processing.
func checkAndSkipIfUnchanged(db *sql.DB, path string, info os.FileInfo, options ScanOptions) *ProcessImageResult {
	exists, storedModTime, err := database.CheckImageExists(db, path, options.SourcePrefix)
	if err != nil {
		return &ProcessImageResult{Path: path, Error: err}
	}
	if !exists {
		return nil
	}

	storedTime, err := time.Parse(time.RFC3339, storedModTime)
	if err != nil {
		return &ProcessImageResult{
			Path:  path,
			Error: fmt.Errorf("cannot parse stored time for %s: %v", path, err),
		}
	}

	// Stored times have second resolution
	if !info.ModTime().Truncate(time.Second).After(storedTime) {
		if options.DebugMode {
			logging.DebugLog("Skipping unchanged image: %s", path)
		}
		return &ProcessImageResult{Path: path, Success: true, Skipped: true}
	}
	return nil
}
