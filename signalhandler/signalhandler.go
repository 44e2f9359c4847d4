package signalhandler

import (
	"context"
	"os/signal"
	"runtime"
	"syscall"
)

// Context returns a context that is canceled on the first SIGINT or
// SIGTERM, so in-flight tool invocations and scans can stop and clean up
// their temporary files. A second signal terminates the process as usual.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		// Restore default handling once the first signal has been seen
		stop()
	}()
	return ctx, stop
}

// GetOptimalProcs returns the GOMAXPROCS setting for this machine, leaving
// a quarter of the CPUs to the external decoders the chain spawns.
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
