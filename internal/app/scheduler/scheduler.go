package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jose-valero/guild-warden/internal/infra/metrics"
)

// Job es una tarea periódica. Los ticks de un mismo job nunca se solapan.
type Job struct {
	Name    string
	Every   time.Duration
	Timeout time.Duration // 0 = Every
	Run     func(ctx context.Context) error
}

type Scheduler struct {
	jobs []Job
	log  *slog.Logger
}

func New(log *slog.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, log: log.With("component", "scheduler")}
}

// Run arranca todos los jobs (primer tick inmediato) y bloquea hasta que ctx termine.
func (s *Scheduler) Run(ctx context.Context) error {
	for _, j := range s.jobs {
		if j.Every <= 0 || j.Run == nil {
			return fmt.Errorf("job %q: interval and run func are required", j.Name)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, j := range s.jobs {
		g.Go(func() error {
			s.loop(ctx, j)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	s.log.Info("job started", "job", j.Name, "every", j.Every)
	t := time.NewTicker(j.Every)
	defer t.Stop()

	for {
		s.tick(ctx, j)
		select {
		case <-ctx.Done():
			s.log.Info("job stopped", "job", j.Name)
			return
		case <-t.C:
		}
	}
}

// tick corre una vez el job; un panic o error se registra y el loop sigue.
func (s *Scheduler) tick(ctx context.Context, j Job) {
	if ctx.Err() != nil {
		return
	}
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = j.Every
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.TickDuration.WithLabelValues(j.Name).Observe(time.Since(start).Seconds())
		if rec := recover(); rec != nil {
			metrics.TickFailures.WithLabelValues(j.Name).Inc()
			s.log.Error("job panicked", "job", j.Name, "panic", rec)
		}
	}()

	if err := j.Run(ctx); err != nil {
		metrics.TickFailures.WithLabelValues(j.Name).Inc()
		s.log.Warn("job tick failed", "job", j.Name, "err", err)
	}
}
