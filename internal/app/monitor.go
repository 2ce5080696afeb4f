package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ibeckermayer/tweetscope/internal/metrics"
	"github.com/ibeckermayer/tweetscope/internal/report"
	"github.com/ibeckermayer/tweetscope/internal/scheduler"
	"github.com/ibeckermayer/tweetscope/internal/store"
	"github.com/ibeckermayer/tweetscope/internal/types"
)

const (
	// DefaultWindow covers reports, alert mails and auto-exports
	DefaultWindow = 24 * time.Hour

	monitorJob = "monitor"

	// perHandleBudget is each handle's share of a derived cycle timeout
	perHandleBudget = 2 * time.Minute
)

// Accounts returns the de-duplicated handles of the named categories, in order.
// No names selects every category.
func (a *App) Accounts(categories []string) ([]string, error) {
	if len(categories) == 0 {
		categories = a.cfg.CategoryNames()
	}

	seen := make(map[string]bool)
	var handles []string
	for _, name := range categories {
		list, ok := a.cfg.Categories[name]
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		for _, h := range list {
			h = strings.TrimPrefix(strings.TrimSpace(h), "@")
			key := strings.ToLower(h)
			if h == "" || seen[key] {
				continue
			}
			seen[key] = true
			handles = append(handles, h)
		}
	}
	return handles, nil
}

// Monitor runs a cycle over the accounts of the selected categories right away
// and then on every tick, until ctx is cancelled. Ticks follow monitor_schedule
// when set and monitoring_interval otherwise. A cycle that is still running when
// the next tick fires skips that tick. A failed cycle does not stop monitoring.
func (a *App) Monitor(ctx context.Context, categories []string) error {
	handles, err := a.Accounts(categories)
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		return fmt.Errorf("no accounts to monitor")
	}

	timeout := a.CycleTimeout(len(handles))
	sched := scheduler.New(ctx, timeout)
	job := func(ctx context.Context) error {
		err := a.Cycle(ctx, handles)
		logNextRun(sched)
		return err
	}

	if schedule := a.cfg.MonitorSchedule; schedule != "" {
		slog.Info("[app] Monitoring", "accounts", len(handles), "schedule", schedule, "timeout", timeout)
		err = sched.AddJob(monitorJob, schedule, job)
	} else {
		interval := a.cfg.MonitoringInterval.Duration
		slog.Info("[app] Monitoring", "accounts", len(handles), "interval", interval, "timeout", timeout)
		err = sched.AddInterval(monitorJob, interval, job)
	}
	if err != nil {
		return err
	}

	if err := sched.RunNow(monitorJob, job); err != nil && ctx.Err() == nil {
		slog.Error("[app] Monitoring cycle failed", "error", err)
	}

	sched.Start()
	logNextRun(sched)
	<-ctx.Done()
	<-sched.Stop().Done()
	slog.Info("[app] Monitoring stopped")
	return nil
}

// CycleTimeout bounds one monitoring cycle over n handles. monitor_timeout wins
// when set; otherwise it grows with n and never drops below the scheduler default.
func (a *App) CycleTimeout(n int) time.Duration {
	if d := a.cfg.MonitorTimeout.Duration; d > 0 {
		return d
	}
	per := perHandleBudget + a.cfg.RateLimitDelay.Duration
	return max(scheduler.DefaultJobTimeout, time.Duration(n)*per)
}

func logNextRun(sched *scheduler.Scheduler) {
	for _, j := range sched.ListJobs() {
		if j.Name == monitorJob && !j.NextRun.IsZero() {
			slog.Info("[app] Next monitoring cycle", "at", j.NextRun.Format(time.DateTime))
		}
	}
}

// Cycle scrapes each handle once, then runs the auto-export and alert steps.
// Cancellation is honoured between handles. Failures are contained to their handle.
func (a *App) Cycle(ctx context.Context, handles []string) error {
	start := a.now()
	var done, failed int
	for i, h := range handles {
		if ctx.Err() != nil {
			slog.Warn("[app] Cycle interrupted", "skipped_handles", len(handles)-i, "error", ctx.Err())
			a.metrics.Cycles.WithLabelValues(metrics.OutcomeFailed).Inc()
			return ctx.Err()
		}
		sum := a.ScrapeAccount(ctx, h, a.cfg.MonitorTweetsPerAccount)
		if sum.Failed() {
			failed++
		} else {
			done++
		}
	}

	if done == 0 && failed > 0 {
		a.metrics.Cycles.WithLabelValues(metrics.OutcomeFailed).Inc()
		return errAllFailed
	}

	if a.cfg.Export.Auto {
		if err := a.autoExport(ctx); err != nil {
			slog.Error("[app] Auto-export failed", "error", err)
		}
	}
	if a.notifier != nil && a.cfg.Alerts.EnableEmail {
		if err := a.mailAlerts(ctx); err != nil {
			slog.Error("[app] Alert mail failed", "error", err)
		}
	}

	a.metrics.Cycles.WithLabelValues(metrics.OutcomeDone).Inc()
	slog.Info("[app] Cycle complete",
		"succeeded", done,
		"failed", failed,
		"elapsed", a.now().Sub(start).Round(time.Millisecond))
	return nil
}

func (a *App) autoExport(ctx context.Context) error {
	at := a.now()
	f := types.Filter{Since: at.Add(-DefaultWindow), Limit: -1}
	for _, format := range a.cfg.Export.Formats {
		path := store.ExportPath(a.cfg.Export.Directory, format, at)
		n, err := a.store.Export(ctx, format, path, f)
		if err != nil {
			return fmt.Errorf("export %s: %w", format, err)
		}
		slog.Info("[app] Exported records", "format", format, "count", n, "path", path)
	}
	return nil
}

func (a *App) mailAlerts(ctx context.Context) error {
	r, err := a.Report(ctx, DefaultWindow)
	if err != nil {
		return err
	}
	sent, err := a.notifier.SendAlerts(r, a.cfg.Email.ToAddrs)
	if err != nil {
		return err
	}
	if sent {
		slog.Info("[app] Alert mail sent", "alerts", len(r.Alerts), "recipients", len(a.cfg.Email.ToAddrs))
	}
	return nil
}

// Report builds an intelligence report over the records created inside window
func (a *App) Report(ctx context.Context, window time.Duration) (*report.Report, error) {
	now := a.now()
	recs, err := a.store.Query(ctx, types.Filter{Since: now.Add(-window), Limit: -1})
	if err != nil {
		return nil, err
	}
	trending, err := a.store.Trending(ctx, window)
	if err != nil {
		return nil, err
	}
	return report.Build(recs, trending, report.Options{
		Window:                  window,
		HighEngagementThreshold: a.cfg.Alerts.HighEngagementThreshold,
		SentimentThreshold:      a.cfg.Alerts.SentimentThreshold,
		Keywords:                a.cfg.Keywords,
	}, now), nil
}

// Export writes the records matching f to destination in format
func (a *App) Export(ctx context.Context, format, destination string, f types.Filter) (int, error) {
	return a.store.Export(ctx, format, destination, f)
}
