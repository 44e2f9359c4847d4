package signalhandler

import (
	"context"
	"runtime"
	"testing"
	"time"
)

func TestGetOptimalProcs(t *testing.T) {
	got := GetOptimalProcs()
	if got < 1 || got > runtime.NumCPU() {
		t.Errorf("GetOptimalProcs() = %d with %d CPUs", got, runtime.NumCPU())
	}
}

func TestContextCanceledByParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := Context(parent)
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not canceled with its parent")
	}
}
