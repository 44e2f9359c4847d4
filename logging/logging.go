package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log message
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	debugLogger *log.Logger
	logFile     *os.File
	mu          sync.Mutex
	isSetup     bool
	level       = LevelInfo
)

// ParseLevel maps a level name to a Level. Unknown names yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// SetLevel sets the minimum level that is emitted
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// InitFromEnv sets the level from DEBUG or LOG_LEVEL
func InitFromEnv() {
	switch strings.ToLower(os.Getenv("DEBUG")) {
	case "1", "true", "yes", "on":
		SetLevel(LevelDebug)
		return
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		SetLevel(ParseLevel(v))
	}
}

// Enabled reports whether messages at l are emitted
func Enabled(l Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return l >= level
}

// SetupLogger directs log output to the specified file and enables debug output
func SetupLogger(logFilePath string) error {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return nil
	}

	var err error
	logFile, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	debugLogger = log.New(logFile, "", log.LstdFlags)
	debugLogger.Printf("--- rawfinder log started at %s ---\n", time.Now().Format(time.RFC3339))

	level = LevelDebug
	isSetup = true
	return nil
}

// CloseLogger closes the log file
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		debugLogger.Printf("--- rawfinder log closed at %s ---\n", time.Now().Format(time.RFC3339))
		logFile.Close()
		logFile = nil
		debugLogger = nil
		isSetup = false
	}
}

func output(l Level, prefix, format string, args []interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if l < level {
		return
	}
	if debugLogger != nil {
		debugLogger.Printf(prefix+format, args...)
		return
	}
	log.Printf(prefix+format, args...)
}

// DebugLog logs a message if debug output is enabled
func DebugLog(format string, args ...interface{}) {
	output(LevelDebug, "", format, args)
}

// LogInfo logs an information message
func LogInfo(format string, args ...interface{}) {
	output(LevelInfo, "INFO: ", format, args)
}

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) {
	output(LevelWarn, "WARNING: ", format, args)
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	output(LevelError, "ERROR: ", format, args)
}

// LogImageProcessed logs the outcome of indexing one file
func LogImageProcessed(path string, success bool, errMsg string) {
	if success {
		output(LevelDebug, "", "PROCESSED: %s", []interface{}{path})
		return
	}
	output(LevelWarn, "", "FAILED: %s - Error: %s", []interface{}{path, errMsg})
}
