package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"sheepyard/contexts/scheduling/event-polls/application/workers"

	"github.com/robfig/cron/v3"
)

const deadlineRunTimeout = 50 * time.Second

// cronLogger routes cron's own diagnostics into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, append([]any{"module", moduleName, "layer", "worker"}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]any{"module", moduleName, "layer", "worker", "error", err.Error()}, keysAndValues...)...)
}

// newDeadlineCron runs scheduler.RunOnce every interval. An overrunning tick
// makes the next one skip instead of stacking.
func newDeadlineCron(ctx context.Context, scheduler workers.DeadlineScheduler, interval time.Duration, logger *slog.Logger) *cron.Cron {
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{logger: logger}),
		cron.SkipIfStillRunning(cronLogger{logger: logger}),
	))
	timeout := deadlineRunTimeout
	if interval > 0 && interval < timeout {
		timeout = interval
	}
	c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := scheduler.RunOnce(runCtx); err != nil {
			logger.Error("deadline tick failed",
				"event", "bootstrap_deadline_tick_failed",
				"module", moduleName,
				"layer", "worker",
				"error", err.Error(),
			)
		}
	}))
	return c
}

func stopCron(c *cron.Cron) {
	if c == nil {
		return
	}
	<-c.Stop().Done()
}
