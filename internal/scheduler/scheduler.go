package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultJobTimeout bounds a single job run
const DefaultJobTimeout = 30 * time.Minute

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks. A job whose previous run is still in
// progress skips its tick.
type Scheduler struct {
	cron       *cron.Cron
	ctx        context.Context
	jobTimeout time.Duration

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// New creates a scheduler whose jobs run under ctx
func New(ctx context.Context, jobTimeout time.Duration) *Scheduler {
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	return &Scheduler{
		cron:       c,
		ctx:        ctx,
		jobTimeout: jobTimeout,
		jobs:       make(map[string]cron.EntryID),
	}
}

// AddJob runs job on a standard five-field cron schedule or a descriptor
// such as "@hourly" or "@every 5m". Adding a name again replaces its entry.
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	s.add(name, sched, job)
	slog.Info("[scheduler] Added job", "job", name, "schedule", schedule)
	return nil
}

// AddInterval runs job every interval, rounded to whole seconds
func (s *Scheduler) AddInterval(name string, interval time.Duration, job Job) error {
	if interval < time.Second {
		return fmt.Errorf("failed to schedule job %s: interval %s is below one second", name, interval)
	}
	s.add(name, cron.Every(interval), job)
	slog.Info("[scheduler] Added job", "job", name, "every", interval)
	return nil
}

func (s *Scheduler) add(name string, sched cron.Schedule, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[name]; ok {
		s.cron.Remove(old)
	}
	s.jobs[name] = s.cron.Schedule(sched, cron.FuncJob(func() {
		if err := s.run(s.ctx, name, job); err != nil {
			slog.Error("[scheduler] Job failed", "job", name, "error", err)
		}
	}))
}

// run executes job once under the job timeout
func (s *Scheduler) run(ctx context.Context, name string, job Job) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	slog.Info("[scheduler] Starting job", "job", name)
	start := time.Now()

	if err := job(ctx); err != nil {
		return err
	}
	slog.Info("[scheduler] Job completed", "job", name, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	slog.Info("[scheduler] Starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	slog.Info("[scheduler] Stopping scheduler")
	return s.cron.Stop()
}

// RunNow immediately executes a job outside the schedule
func (s *Scheduler) RunNow(name string, job Job) error {
	slog.Info("[scheduler] Running job now", "job", name)
	return s.run(s.ctx, name, job)
}

// ListJobs reports the next and previous run of each job. Run times are zero
// until the scheduler has started.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(entries))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}

	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// cronLogger routes cron's own messages to slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("[scheduler] cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("[scheduler] cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
