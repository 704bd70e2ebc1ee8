package serviceutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context cancelled by the first SIGINT or SIGTERM.
// A second signal exits right away.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		slog.Info("shutting down", "signal", sig.String())
		cancel()
		<-sigs
		os.Exit(1)
	}()

	return ctx
}

// Fatal logs err and exits with status 1.
func Fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}
