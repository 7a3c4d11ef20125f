package application

import (
	"context"
	"log/slog"
	"time"
)

const defaultDispatchTimeout = 10 * time.Second

// DispatchDetached runs fn on its own goroutine with a context that outlives
// the caller's request. Errors and panics are logged and never surface to the
// caller.
func DispatchDetached(
	ctx context.Context,
	logger *slog.Logger,
	module string,
	event string,
	timeout time.Duration,
	fn func(context.Context) error,
) {
	logger = ResolveLogger(logger)
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		runCtx, cancel := context.WithTimeout(detached, timeout)
		defer cancel()
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("detached dispatch panicked",
					"event", event+"_panicked",
					"module", module,
					"layer", "application",
					"panic", recovered,
				)
			}
		}()
		if err := fn(runCtx); err != nil {
			logger.Warn("detached dispatch failed",
				"event", event+"_failed",
				"module", module,
				"layer", "application",
				"error", err.Error(),
			)
		}
	}()
}
