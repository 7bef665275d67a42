package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Watch refreshes the list now and then on schedule until ctx is done,
// calling onChange with the new entries whenever the list changed. Refresh
// errors are logged and the next run proceeds. schedule accepts standard
// five-field cron expressions and descriptors such as "@every 1m".
func (c *Controller) Watch(ctx context.Context, schedule string, onChange func([]Entry)) error {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	run := func() {
		changed, err := c.Refresh(ctx)
		if err != nil {
			slog.Warn("refresh failed", "error", err)
			return
		}
		if changed && onChange != nil {
			onChange(c.Entries())
		}
	}

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	scheduler.Schedule(sched, cron.FuncJob(run))

	run()
	scheduler.Start()
	slog.Info("watching calendar", "schedule", schedule)

	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}
