package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"ilipanel/internal/config"
	"ilipanel/internal/ili9486"
	appLog "ilipanel/internal/log"
	"ilipanel/internal/web"
)

// newScheduler registers the agenda refresh and the backlight schedule.
// job may be nil when the agenda is disabled.
func newScheduler(ctx context.Context, cfg *config.Config, loc *time.Location, panel *web.Panel, job *agendaJob) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(loc))

	if job != nil {
		if _, err := c.AddFunc(cfg.RefreshCron, func() {
			if err := job.Run(ctx); err != nil {
				appLog.Error("scheduled agenda refresh failed", err)
			}
		}); err != nil {
			return nil, fmt.Errorf("refresh %q: %w", cfg.RefreshCron, err)
		}
	}

	for i, e := range cfg.BacklightSchedule {
		level := uint8(e.Level)
		if _, err := c.AddFunc(e.Cron, func() {
			err := panel.Do(func(d *ili9486.Dev) error {
				return d.SetBacklight(level)
			})
			if err != nil {
				appLog.Error("scheduled backlight change failed", err, "level", level)
				return
			}
			appLog.Debug("backlight scheduled change", "level", level)
		}); err != nil {
			return nil, fmt.Errorf("backlight_schedule[%d] %q: %w", i, e.Cron, err)
		}
	}
	return c, nil
}
