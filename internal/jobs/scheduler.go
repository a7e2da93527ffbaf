package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = time.Minute

// Sweeper expires overdue transfers.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Cleaner drops idle per-client state.
type Cleaner interface {
	Cleanup() int
}

// Scheduler runs periodic maintenance on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger.With("system", "scheduler")}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// AddExpirySweep schedules sweeper on spec. An empty spec disables it.
func (s *Scheduler) AddExpirySweep(spec string, sweeper Sweeper) error {
	if spec == "" {
		s.logger.Info("expiry sweep disabled")
		return nil
	}
	if _, err := s.cron.AddJob(spec, &ExpiryJob{sweeper: sweeper, logger: s.logger}); err != nil {
		return fmt.Errorf("scheduling expiry sweep %q: %w", spec, err)
	}
	return nil
}

// AddCleanup schedules cleaner every interval.
func (s *Scheduler) AddCleanup(name string, interval time.Duration, cleaner Cleaner) {
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		if n := cleaner.Cleanup(); n > 0 {
			s.logger.Debug("cleanup finished", "job", name, "dropped", n)
		}
	}))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// ExpiryJob moves overdue ACTIVE transfers to EXPIRED.
type ExpiryJob struct {
	sweeper Sweeper
	logger  *slog.Logger
}

func NewExpiryJob(sweeper Sweeper, logger *slog.Logger) *ExpiryJob {
	return &ExpiryJob{sweeper: sweeper, logger: logger}
}

func (j *ExpiryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	start := time.Now()
	n, err := j.sweeper.SweepExpired(ctx)
	if err != nil {
		j.logger.Error("expiry sweep failed", "error", err)
		return
	}
	j.logger.Debug("expiry sweep finished", "expired", n, "duration", time.Since(start))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
