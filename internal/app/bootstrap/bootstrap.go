// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.
package bootstrap

import (
	"context"
	"errors"
	"strings"
	"time"

	"sheepyard/internal/platform/config"
	"sheepyard/internal/platform/httpserver"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

type APIApp struct {
	rt        *runtime
	server    *httpserver.Server
	deadlines *cron.Cron
}

type WorkerApp struct {
	rt        *runtime
	deadlines *cron.Cron
}

// BuildAPI wires the HTTP process. When the deadline scheduler is enabled the
// api process also ticks it, which is the single-binary deployment.
func BuildAPI(ctx context.Context, cfg config.Config) (*APIApp, error) {
	rt, err := buildRuntime(ctx, cfg, "api")
	if err != nil {
		return nil, err
	}
	app := &APIApp{
		rt: rt,
		server: httpserver.New(rt.polls, rt.mentions, httpserver.Options{
			Addr:    normalizeAddr(cfg.HTTPPort),
			Metrics: rt.metrics.Handler(),
			Logger:  rt.logger,
		}),
	}
	if cfg.EnableDeadlineScheduler {
		app.deadlines = newDeadlineCron(ctx, rt.polls.Deadlines, cfg.DeadlineTickInterval, rt.logger)
	}
	return app, nil
}

// BuildWorker wires the background process. It needs shared storage, so an
// empty postgres dsn is rejected.
func BuildWorker(ctx context.Context, cfg config.Config) (*WorkerApp, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	rt, err := buildRuntime(ctx, cfg, "worker")
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		rt:        rt,
		deadlines: newDeadlineCron(ctx, rt.polls.Deadlines, cfg.DeadlineTickInterval, rt.logger),
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.rt.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", moduleName,
		"layer", "platform",
		"deadline_scheduler", a.deadlines != nil,
		"kafka", a.rt.bus.External(),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		a.rt.polls.Hub.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		return a.rt.polls.LiveEvents.Start(groupCtx)
	})
	group.Go(a.server.Start)
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	if a.deadlines != nil {
		a.deadlines.Start()
		defer stopCron(a.deadlines)
	}
	return group.Wait()
}

func (a *APIApp) Close() error {
	return a.rt.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.rt.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", moduleName,
		"layer", "platform",
		"tick_interval", w.rt.cfg.DeadlineTickInterval.String(),
	)
	w.deadlines.Start()
	<-ctx.Done()
	stopCron(w.deadlines)
	w.rt.logger.Info("worker app stopped",
		"event", "bootstrap_worker_stopped",
		"module", moduleName,
		"layer", "platform",
	)
	return nil
}

func (w *WorkerApp) Close() error {
	return w.rt.Close()
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
