package database

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/corona10/goimagehash"

	"rawfinder/imagehash"
	"rawfinder/logging"
	"rawfinder/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase opens dbPath and creates or upgrades the images table
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		source_prefix TEXT NOT NULL DEFAULT '',
		format TEXT,
		width INTEGER,
		height INTEGER,
		created_at TEXT,
		modified_at TEXT,
		size INTEGER,
		average_hash TEXT,
		block_median_hash TEXT,
		is_raw INTEGER NOT NULL DEFAULT 0,
		UNIQUE(path, source_prefix)
	);
	CREATE INDEX IF NOT EXISTS idx_path ON images(path);
	CREATE INDEX IF NOT EXISTS idx_average_hash ON images(average_hash);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, err
	}

	// Databases written by older builds lack these columns
	for _, col := range []struct{ name, ddl string }{
		{"block_median_hash", "ALTER TABLE images ADD COLUMN block_median_hash TEXT;"},
		{"is_raw", "ALTER TABLE images ADD COLUMN is_raw INTEGER NOT NULL DEFAULT 0;"},
	} {
		if err := ensureColumn(db, col.name, col.ddl); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func ensureColumn(db *sql.DB, name, ddl string) error {
	var present bool
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('images') WHERE name = ?", name).Scan(&present)
	if err != nil {
		return fmt.Errorf("error checking for %s column: %v", name, err)
	}
	if present {
		return nil
	}
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("error adding %s column: %v", name, err)
	}
	logging.DebugLog("Added '%s' column to existing database schema", name)
	return nil
}

// OpenDatabase opens an existing database connection
func OpenDatabase(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", dbPath)
}

// CheckImageExists reports whether path is indexed under sourcePrefix and
// returns its stored modification time.
func CheckImageExists(db *sql.DB, path string, sourcePrefix string) (bool, string, error) {
	var storedModTime string
	err := db.QueryRow("SELECT modified_at FROM images WHERE path = ? AND source_prefix = ?", path, sourcePrefix).Scan(&storedModTime)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("database error for %s: %v", path, err)
	}
	return true, storedModTime, nil
}

// StoreImageInfo inserts an image record. Existing rows are replaced only
// when forceRewrite is set.
func StoreImageInfo(db *sql.DB, info types.ImageInfo, forceRewrite bool) error {
	now := time.Now().Format(time.RFC3339)

	verb := "INSERT OR IGNORE"
	if forceRewrite {
		verb = "INSERT OR REPLACE"
	}
	stmt, err := db.Prepare(verb + ` INTO images (
			path, source_prefix, format, width, height, created_at, modified_at, size,
			average_hash, block_median_hash, is_raw
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cannot prepare statement for %s: %v", info.Path, err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		info.Path,
		info.SourcePrefix,
		info.Format,
		info.Width,
		info.Height,
		now,
		info.ModifiedAt,
		info.Size,
		info.AverageHash,
		info.BlockMedianHash,
		info.IsRawFormat,
	)
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %v", info.Path, err)
	}
	return nil
}

// QueryPotentialMatches returns every stored fingerprint, optionally
// restricted to one source prefix.
func QueryPotentialMatches(db *sql.DB, sourcePrefix string) (*sql.Rows, error) {
	query := `SELECT path, source_prefix, average_hash, block_median_hash FROM images`
	var args []interface{}
	if sourcePrefix != "" {
		query += ` WHERE source_prefix = ?`
		args = append(args, sourcePrefix)
	}
	return db.Query(query, args...)
}

// FindByHash returns indexed images whose average hash and block-median
// hash are both within maxDistance of the query, closest first.
func FindByHash(db *sql.DB, averageHash, blockMedianHash string, maxDistance int, sourcePrefix string) ([]types.ImageMatch, error) {
	qa, err := imagehash.Fingerprint(averageHash, goimagehash.AHash)
	if err != nil {
		return nil, fmt.Errorf("query average hash: %v", err)
	}
	qb, err := imagehash.Fingerprint(blockMedianHash, goimagehash.PHash)
	if err != nil {
		return nil, fmt.Errorf("query block-median hash: %v", err)
	}

	rows, err := QueryPotentialMatches(db, sourcePrefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []types.ImageMatch
	for rows.Next() {
		var path, prefix string
		var avg, block sql.NullString
		if err := rows.Scan(&path, &prefix, &avg, &block); err != nil {
			return nil, err
		}

		ca, err := imagehash.Fingerprint(avg.String, goimagehash.AHash)
		if err != nil {
			logging.DebugLog("Skipping %s: bad stored average hash: %v", path, err)
			continue
		}
		cb, err := imagehash.Fingerprint(block.String, goimagehash.PHash)
		if err != nil {
			logging.DebugLog("Skipping %s: bad stored block-median hash: %v", path, err)
			continue
		}

		da, err := qa.Distance(ca)
		if err != nil {
			return nil, err
		}
		dm, err := qb.Distance(cb)
		if err != nil {
			return nil, err
		}
		if da > maxDistance || dm > maxDistance {
			continue
		}
		matches = append(matches, types.ImageMatch{
			Path:                path,
			SourcePrefix:        prefix,
			AverageDistance:     da,
			BlockMedianDistance: dm,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance() < matches[j].Distance()
	})
	return matches, nil
}

// ScanStats contains statistics from a scan operation
type ScanStats struct {
	TotalImages  int
	RawImages    int
	UniqueHashes int
}

// GetScanStats retrieves statistics about scanned images
func GetScanStats(db *sql.DB, sourcePrefix string) (*ScanStats, error) {
	var stats ScanStats

	where := ""
	var args []interface{}
	if sourcePrefix != "" {
		where = " WHERE source_prefix = ?"
		args = append(args, sourcePrefix)
	}

	err := db.QueryRow("SELECT COUNT(*), COALESCE(SUM(is_raw), 0) FROM images"+where, args...).
		Scan(&stats.TotalImages, &stats.RawImages)
	if err != nil {
		return nil, fmt.Errorf("failed to get total images: %v", err)
	}

	err = db.QueryRow("SELECT COUNT(DISTINCT average_hash) FROM images"+where, args...).Scan(&stats.UniqueHashes)
	if err != nil {
		return nil, fmt.Errorf("failed to get unique hashes: %v", err)
	}

	return &stats, nil
}
