package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VCongNam/CinemaGo-sub001/internal/metrics"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const (
	jobExpirePending  = "expire_pending"
	jobCloseShowtimes = "close_showtimes"

	defaultInterval = time.Minute
)

// Sweeper is the subset of the booking service driven by background jobs.
type Sweeper interface {
	ExpirePending(ctx context.Context) (int, error)
	CloseElapsedShowtimes(ctx context.Context) (int, error)
}

// Options sets job intervals. Zero values default to one minute.
type Options struct {
	SweepInterval time.Duration
	CloseInterval time.Duration
}

// Scheduler owns the expiration sweeper and the showtime closer.
type Scheduler struct {
	sweeper   Sweeper
	logger    *zap.Logger
	scheduler gocron.Scheduler
	baseCtx   context.Context
	cancel    context.CancelFunc
}

// RunResult reports how many rows one pass changed.
type RunResult struct {
	Expired int
	Closed  int
}

// New builds a scheduler with both jobs registered in singleton mode.
func New(sweeper Sweeper, logger *zap.Logger, options Options) (*Scheduler, error) {
	if sweeper == nil {
		return nil, errors.New("scheduler: sweeper is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.SweepInterval <= 0 {
		options.SweepInterval = defaultInterval
	}
	if options.CloseInterval <= 0 {
		options.CloseInterval = defaultInterval
	}
	gocronScheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("scheduler init: %w", err)
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	scheduler := &Scheduler{
		sweeper:   sweeper,
		logger:    logger,
		scheduler: gocronScheduler,
		baseCtx:   baseCtx,
		cancel:    cancel,
	}
	jobs := []struct {
		name     string
		interval time.Duration
		run      func(context.Context) (int, error)
	}{
		{name: jobExpirePending, interval: options.SweepInterval, run: sweeper.ExpirePending},
		{name: jobCloseShowtimes, interval: options.CloseInterval, run: sweeper.CloseElapsedShowtimes},
	}
	for _, job := range jobs {
		job := job
		_, err := gocronScheduler.NewJob(
			gocron.DurationJob(job.interval),
			gocron.NewTask(func() {
				_, _ = scheduler.runJob(scheduler.baseCtx, job.name, job.run)
			}),
			gocron.WithName(job.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			_ = gocronScheduler.Shutdown()
			return nil, fmt.Errorf("scheduler job %s: %w", job.name, err)
		}
	}
	return scheduler, nil
}

// Start begins running jobs on their intervals.
func (scheduler *Scheduler) Start() {
	scheduler.logger.Info("scheduler starting")
	scheduler.scheduler.Start()
}

// Shutdown cancels in-flight jobs and waits for them to return.
func (scheduler *Scheduler) Shutdown() error {
	scheduler.cancel()
	if err := scheduler.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	return nil
}

// RunOnce runs both jobs immediately in order. Both run even when the first fails.
func (scheduler *Scheduler) RunOnce(ctx context.Context) (RunResult, error) {
	expired, expireErr := scheduler.runJob(ctx, jobExpirePending, scheduler.sweeper.ExpirePending)
	closed, closeErr := scheduler.runJob(ctx, jobCloseShowtimes, scheduler.sweeper.CloseElapsedShowtimes)
	return RunResult{Expired: expired, Closed: closed}, errors.Join(expireErr, closeErr)
}

func (scheduler *Scheduler) runJob(ctx context.Context, name string, run func(context.Context) (int, error)) (int, error) {
	count, err := run(ctx)
	if err != nil {
		scheduler.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	metrics.AddSwept(name, count)
	if count > 0 {
		scheduler.logger.Info("scheduled job finished", zap.String("job", name), zap.Int("count", count))
	}
	return count, nil
}
