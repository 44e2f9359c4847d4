package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"rawfinder/codec"
	"rawfinder/config"
	"rawfinder/database"
	"rawfinder/formats"
	"rawfinder/imagehash"
	"rawfinder/imageprocessor"
	"rawfinder/logging"
	"rawfinder/metrics"
	"rawfinder/rawerr"
	"rawfinder/rawtools"
	"rawfinder/scanner"
	"rawfinder/signalhandler"
	"rawfinder/utils"
)

func main() {
	ctx, stop := signalhandler.Context(context.Background())
	defer stop()

	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	args := utils.ParseArguments()
	command, hasCommand := args["command"]
	if !hasCommand || missingRequired(command, args) {
		utils.PrintUsage()
		os.Exit(1)
	}

	cfg := loadConfig(args)
	logging.InitFromEnv()
	if cfg.DebugMode {
		logPath := cfg.LogPath
		if logPath == "" {
			logPath = "rawfinder.log"
		}
		if err := logging.SetupLogger(logPath); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else {
			fmt.Printf("Debug mode enabled. Logging to: %s\n", logPath)
		}
	}
	defer logging.CloseLogger()

	if addr := args["metrics-addr"]; addr != "" {
		srv := serveMetrics(addr)
		defer srv.Close()
	}

	dbPath := utils.GetDefaultDatabasePath()
	if customDB, ok := args["database"]; ok && customDB != "" {
		dbPath = customDB
	} else if customDB, ok := args["db"]; ok && customDB != "" {
		dbPath = customDB
	}

	decoder := imageprocessor.NewDecoder(cfg)

	var err error
	switch command {
	case "convert":
		err = handleConvertCommand(ctx, decoder, args)
	case "thumbnail":
		err = handleThumbnailCommand(ctx, decoder, args)
	case "hash":
		err = handleHashCommand(ctx, decoder, args)
	case "classify":
		handleClassifyCommand(decoder, args)
	case "scan":
		err = handleScanCommand(ctx, decoder, args, dbPath)
	case "search":
		err = handleSearchCommand(ctx, decoder, args, dbPath)
	}

	if err != nil {
		logging.LogError("%s failed: %v", command, err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		logging.CloseLogger()
		os.Exit(exitCode(err))
	}
}

func missingRequired(command string, args map[string]string) bool {
	switch command {
	case "convert":
		return args["input"] == "" || args["output"] == ""
	case "thumbnail", "hash", "classify":
		return args["input"] == ""
	case "scan":
		return args["folder"] == ""
	case "search":
		return args["image"] == ""
	}
	return true
}

// loadConfig layers command-line flags over the environment.
func loadConfig(args map[string]string) config.Config {
	cfg := config.FromEnv()
	if _, ok := args["debug"]; ok {
		cfg.DebugMode = true
	}
	if path := args["logfile"]; path != "" {
		cfg.LogPath = path
	}
	if v := args["timeout"]; v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TimeoutBudget = d
		} else {
			fmt.Printf("Warning: invalid timeout %q, using %v\n", v, cfg.TimeoutBudget)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.LogWarning("Metrics server on %s stopped: %v", addr, err)
		}
	}()
	logging.LogInfo("Serving metrics on %s/metrics", addr)
	return srv
}

// exitCode maps the failure kinds a script is likely to branch on.
func exitCode(err error) int {
	switch rawerr.KindOf(err) {
	case rawerr.KindChainTimeout:
		return 3
	case rawerr.KindChainExhausted, rawerr.KindDecodeSupport:
		return 2
	}
	return 1
}

func handleConvertCommand(ctx context.Context, d *imageprocessor.Decoder, args map[string]string) error {
	start := time.Now()
	if err := d.Convert(ctx, args["input"], args["output"]); err != nil {
		return err
	}
	fmt.Printf("Converted %s to %s in %v\n", args["input"], args["output"], time.Since(start).Round(time.Millisecond))
	return nil
}

func handleThumbnailCommand(ctx context.Context, d *imageprocessor.Decoder, args map[string]string) error {
	input := args["input"]
	g, err := scanner.LoadThumbnail(ctx, d, input, d.Config().ThumbnailSize)
	if err != nil {
		return err
	}
	b := g.Bounds()

	if out := args["output"]; out != "" {
		if err := codec.Default().Encode(g, out, d.Config().JPEGQuality); err != nil {
			return err
		}
		fmt.Printf("Wrote %dx%d grayscale thumbnail to %s\n", b.Dx(), b.Dy(), out)
		return nil
	}
	fmt.Printf("Grayscale thumbnail of %s: %dx%d\n", input, b.Dx(), b.Dy())
	return nil
}

func handleHashCommand(ctx context.Context, d *imageprocessor.Decoder, args map[string]string) error {
	hashes, err := scanner.HashImage(ctx, d, args["input"])
	if err != nil {
		return err
	}
	avg, _ := imagehash.ToUint64(hashes.Average)
	block, _ := imagehash.ToUint64(hashes.BlockMedian)
	fmt.Printf("Average hash:      %s (%016x)\n", hashes.Average, avg)
	fmt.Printf("Block-median hash: %s (%016x)\n", hashes.BlockMedian, block)
	return nil
}

func handleClassifyCommand(d *imageprocessor.Decoder, args map[string]string) {
	input := args["input"]
	family := formats.Classify(input)
	fmt.Printf("File:   %s\n", input)
	fmt.Printf("Format: %s\n", family)
	fmt.Printf("RAW:    %v\n", family.IsRaw())
	if vendor := family.Vendor(); vendor != "" {
		fmt.Printf("Vendor: %s\n", vendor)
	}
	if !family.IsRaw() {
		return
	}

	tools := d.Config().Tools
	fmt.Printf("Tools:\n")
	for _, tool := range []string{tools.Exiftool, tools.Dcraw, tools.DcrawEmu} {
		fmt.Printf("  %-12s %s\n", filepath.Base(tool), map[bool]string{true: "available", false: "not found"}[rawtools.Available(tool)])
	}
	var names []string
	for _, s := range d.Strategies(input) {
		names = append(names, s.Name)
	}
	fmt.Printf("Strategies: %s\n", strings.Join(names, ", "))
}

func handleScanCommand(ctx context.Context, d *imageprocessor.Decoder, args map[string]string, dbPath string) error {
	folderPath := args["folder"]
	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("cannot access folder path %s: %w", folderPath, err)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	_, forceRewrite := args["force"]
	sourcePrefix := args["prefix"]

	var db *sql.DB
	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		db, err = database.InitDatabase(dbPath)
		if err == nil {
			break
		}
		if i == maxRetries-1 {
			return fmt.Errorf("error initializing database after %d attempts: %w", maxRetries, err)
		}
		log.Printf("Error initializing database (attempt %d/%d): %v - retrying...", i+1, maxRetries, err)
		time.Sleep(time.Second * time.Duration(i+1))
	}
	defer db.Close()

	options := scanner.ScanOptions{
		FolderPath:   folderPath,
		SourcePrefix: sourcePrefix,
		ForceRewrite: forceRewrite,
		DebugMode:    d.Config().DebugMode,
		ShowProgress: true,
	}
	if _, err := scanner.ScanAndStoreFolder(ctx, db, d, options); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nScan interrupted.")
		}
		return err
	}

	fmt.Printf("Database: %s\n", dbPath)
	stats, err := database.GetScanStats(db, sourcePrefix)
	if err == nil && stats != nil {
		fmt.Printf("\nSummary:\n")
		fmt.Printf("- Total images indexed: %d\n", stats.TotalImages)
		fmt.Printf("- RAW images indexed: %d\n", stats.RawImages)
		fmt.Printf("- Unique average hashes: %d\n", stats.UniqueHashes)
	}
	return nil
}

func handleSearchCommand(ctx context.Context, d *imageprocessor.Decoder, args map[string]string, dbPath string) error {
	queryPath := args["image"]

	threshold := utils.DefaultMaxDistance
	if s, ok := args["threshold"]; ok {
		parsed, err := utils.ParseThreshold(s)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		threshold = parsed
	}
	sourcePrefix := args["prefix"]

	if _, err := os.Stat(queryPath); err != nil {
		return fmt.Errorf("query image: %w", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("database does not exist: %s, run scan first", dbPath)
	}

	startTime := time.Now()
	db, err := database.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	fmt.Println("Searching for similar images...")
	if sourcePrefix != "" {
		fmt.Printf("Filtering by source prefix: %s\n", sourcePrefix)
	}

	hashes, err := scanner.HashImage(ctx, d, queryPath)
	if err != nil {
		return err
	}
	matches, err := database.FindByHash(db, hashes.Average, hashes.BlockMedian, threshold, sourcePrefix)
	if err != nil {
		return fmt.Errorf("error finding similar images: %w", err)
	}

	fmt.Println("\nTop Matches:")
	const limit = 5
	if len(matches) == 0 {
		fmt.Println("No matches found.")
	}
	for i := 0; i < limit && i < len(matches); i++ {
		m := matches[i]
		fmt.Printf("%d. Image: %s\n", i+1, m.Path)
		if m.SourcePrefix != "" {
			fmt.Printf("   Source: %s\n", m.SourcePrefix)
		}
		fmt.Printf("   Distance: %d (average %d, block-median %d)\n", m.Distance(), m.AverageDistance, m.BlockMedianDistance)
	}

	fmt.Printf("\nTotal search time: %v\n", time.Since(startTime))
	return nil
}
