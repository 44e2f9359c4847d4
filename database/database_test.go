package database

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"rawfinder/imagehash"
	"rawfinder/types"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDatabase(filepath.Join(t.TempDir(), "images.db"))
	if err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// flip returns bits with the first n positions inverted.
func flip(bits string, n int) string {
	b := []byte(bits)
	for i := 0; i < n; i++ {
		if b[i] == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}

func TestStoreAndCheck(t *testing.T) {
	db := openTestDB(t)

	info := types.ImageInfo{
		Path:            "/photos/DSC_0001.NEF",
		SourcePrefix:    "card1",
		Format:          "nef",
		Width:           512,
		Height:          512,
		ModifiedAt:      "2024-05-01T10:00:00Z",
		Size:            123456,
		AverageHash:     strings.Repeat("01", 32),
		BlockMedianHash: strings.Repeat("10", 32),
		IsRawFormat:     true,
	}
	if err := StoreImageInfo(db, info, false); err != nil {
		t.Fatal(err)
	}

	exists, mod, err := CheckImageExists(db, info.Path, "card1")
	if err != nil || !exists || mod != info.ModifiedAt {
		t.Fatalf("CheckImageExists = %v %q %v", exists, mod, err)
	}
	exists, _, err = CheckImageExists(db, info.Path, "card2")
	if err != nil || exists {
		t.Fatalf("other prefix: exists=%v err=%v", exists, err)
	}

	// Without force the original row is kept.
	updated := info
	updated.ModifiedAt = "2025-01-01T00:00:00Z"
	StoreImageInfo(db, updated, false)
	if _, mod, _ := CheckImageExists(db, info.Path, "card1"); mod != info.ModifiedAt {
		t.Errorf("row replaced without force: %s", mod)
	}
	StoreImageInfo(db, updated, true)
	if _, mod, _ := CheckImageExists(db, info.Path, "card1"); mod != updated.ModifiedAt {
		t.Errorf("row not replaced with force: %s", mod)
	}

	stats, err := GetScanStats(db, "")
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalImages != 1 || stats.RawImages != 1 || stats.UniqueHashes != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestFindByHash(t *testing.T) {
	db := openTestDB(t)
	avg := imagehash.FromUint64(0xF0F0F0F0_0F0F0F0F)
	block := imagehash.FromUint64(0x12345678_9ABCDEF0)

	rows := []struct {
		path   string
		prefix string
		flips  int
	}{
		{"exact.jpg", "a", 0},
		{"near.arw", "a", 3},
		{"far.cr2", "a", 20},
		{"other-prefix.jpg", "b", 1},
	}
	for _, r := range rows {
		err := StoreImageInfo(db, types.ImageInfo{
			Path:            r.path,
			SourcePrefix:    r.prefix,
			AverageHash:     flip(avg, r.flips),
			BlockMedianHash: flip(block, r.flips),
		}, false)
		if err != nil {
			t.Fatal(err)
		}
	}
	// Rows without hashes are ignored.
	db.Exec(`INSERT INTO images (path, source_prefix) VALUES ('nohash.png', 'a')`)

	matches, err := FindByHash(db, avg, block, 10, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches: %+v", len(matches), matches)
	}
	if matches[0].Path != "exact.jpg" || matches[0].Distance() != 0 {
		t.Errorf("first match %+v", matches[0])
	}
	if matches[1].Path != "near.arw" || matches[1].AverageDistance != 3 || matches[1].BlockMedianDistance != 3 {
		t.Errorf("second match %+v", matches[1])
	}

	all, err := FindByHash(db, avg, block, 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("unfiltered search got %d matches", len(all))
	}

	if _, err := FindByHash(db, "xyz", block, 10, ""); err == nil {
		t.Error("malformed query hash accepted")
	}
}

func TestInitDatabaseUpgradesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	old, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = old.Exec(`CREATE TABLE images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		source_prefix TEXT NOT NULL DEFAULT '',
		format TEXT, width INTEGER, height INTEGER,
		created_at TEXT, modified_at TEXT, size INTEGER,
		average_hash TEXT,
		UNIQUE(path, source_prefix))`)
	old.Close()
	if err != nil {
		t.Fatal(err)
	}

	db, err := InitDatabase(path)
	if err != nil {
		t.Fatalf("InitDatabase on old schema: %v", err)
	}
	defer db.Close()
	if err := StoreImageInfo(db, types.ImageInfo{Path: "x.jpg", IsRawFormat: true}, false); err != nil {
		t.Fatalf("store after upgrade: %v", err)
	}
}
