package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rawfinder/imagehash"
)

// DefaultMaxDistance is the Hamming distance search uses when --threshold
// is not given.
const DefaultMaxDistance = 10

// Commands lists the subcommands ParseArgs recognizes.
var Commands = []string{"convert", "thumbnail", "hash", "classify", "scan", "search"}

// ParseArguments parses os.Args into a map of flags and values
func ParseArguments() map[string]string {
	return ParseArgs(os.Args[1:])
}

// ParseArgs converts command-line arguments into a map of flags and values.
// The first argument naming a known command is stored under "command".
func ParseArgs(argv []string) map[string]string {
	args := make(map[string]string)

	commandIndex := -1
	for i, a := range argv {
		if isCommand(a) {
			args["command"] = a
			commandIndex = i
			break
		}
	}

	for i := 0; i < len(argv); i++ {
		if i == commandIndex {
			continue
		}

		arg := argv[i]

		// --key=value
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			args[strings.TrimPrefix(parts[0], "--")] = parts[1]
			continue
		}

		// --key value, or a bare boolean --key
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")
			if i+1 >= len(argv) || strings.HasPrefix(argv[i+1], "--") || i+1 == commandIndex {
				args[flagName] = "true"
			} else {
				args[flagName] = argv[i+1]
				i++
			}
		}
	}

	return args
}

func isCommand(s string) bool {
	for _, c := range Commands {
		if s == c {
			return true
		}
	}
	return false
}

// GetDefaultDatabasePath returns the default path for the database file
func GetDefaultDatabasePath() string {
	exePath, err := os.Executable()
	if err != nil {
		return "images.db"
	}
	return filepath.Join(filepath.Dir(exePath), "images.db")
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	name := filepath.Base(os.Args[0])
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s convert --input=RAW --output=FILE.jpg [--timeout=DURATION]\n", name)
	fmt.Printf("  %s thumbnail --input=RAW [--output=FILE.png]\n", name)
	fmt.Printf("  %s hash --input=FILE\n", name)
	fmt.Printf("  %s classify --input=FILE\n", name)
	fmt.Printf("  %s scan --folder=PATH [--database=PATH] [--prefix=NAME] [--force]\n", name)
	fmt.Printf("  %s search --image=PATH [--database=PATH] [--threshold=BITS] [--prefix=NAME]\n", name)
	fmt.Printf("\nParameters:\n")
	fmt.Printf("  --input        : Source image for convert, thumbnail, hash and classify\n")
	fmt.Printf("  --output       : Destination file\n")
	fmt.Printf("  --folder       : Path to folder containing images to scan\n")
	fmt.Printf("  --image        : Path to query image for search\n")
	fmt.Printf("  --database     : Path to database file (default: %s)\n", GetDefaultDatabasePath())
	fmt.Printf("  --prefix       : Source prefix for scanning/filtering results\n")
	fmt.Printf("  --force        : Force rewrite existing entries during scan\n")
	fmt.Printf("  --threshold    : Maximum Hamming distance for search matches (0-%d, default: %d)\n", imagehash.Bits, DefaultMaxDistance)
	fmt.Printf("  --timeout      : Decode chain time budget (default: 4s)\n")
	fmt.Printf("  --metrics-addr : Serve Prometheus metrics on this address while running\n")
	fmt.Printf("  --debug        : Enable debug mode (logs detailed information)\n")
	fmt.Printf("  --logfile      : Specify custom log file path (default: rawfinder.log)\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s convert --input=DSCF0001.RAF --output=preview.jpg\n", name)
	fmt.Printf("  %s scan --folder=/path/to/images --prefix=ExternalDrive1 --debug\n", name)
	fmt.Printf("  %s search --image=/path/to/query.jpg --threshold=8\n", name)
}

// ParseThreshold parses the maximum Hamming distance for search matches
func ParseThreshold(thresholdStr string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(thresholdStr))
	if err != nil || parsed < 0 || parsed > imagehash.Bits {
		return DefaultMaxDistance, fmt.Errorf("invalid threshold value '%s', using default (%d)", thresholdStr, DefaultMaxDistance)
	}
	return parsed, nil
}
