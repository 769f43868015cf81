package graceful

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
)

// Context creates a context that is canceled when an OS interrupt signal is received.
// This allows for a clean shutdown of the application. The returned cancel
// function also stops the signal watcher.
func Context(ctx context.Context, logger log.Interface) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.WithField("signal", sig.String()).Warn("received termination signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
