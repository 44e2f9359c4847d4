package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rawfinder.log")
	if err := SetupLogger(path); err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	defer SetLevel(LevelInfo)

	DebugLog("strategy %s failed", "dcraw-thumbnail")
	LogWarning("slow decode")
	LogImageProcessed("/a.raf", false, "chain exhausted")
	CloseLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{"strategy dcraw-thumbnail failed", "WARNING: slow decode", "FAILED: /a.raf"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestEnabled(t *testing.T) {
	SetLevel(LevelWarn)
	defer SetLevel(LevelInfo)

	if Enabled(LevelDebug) || Enabled(LevelInfo) {
		t.Error("debug and info should be suppressed at warn")
	}
	if !Enabled(LevelError) {
		t.Error("error should be enabled at warn")
	}
}
