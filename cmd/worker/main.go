package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomkat-cr/vitexbrain/internal/domain"
	"github.com/tomkat-cr/vitexbrain/internal/generation"
	"github.com/tomkat-cr/vitexbrain/internal/infra"
	"github.com/tomkat-cr/vitexbrain/internal/store"
)

const (
	defaultScanInterval = 2 * time.Minute
	defaultConcurrency  = 4
)

// resumer is the part of the service the worker drives.
type resumer interface {
	InProgress(ctx context.Context) ([]*domain.Conversation, error)
	Resume(ctx context.Context, id string) generation.Outcome
}

type resumeWorker struct {
	ctx      context.Context
	svc      resumer
	logger   infra.Logger
	interval time.Duration
	// jobTimeout bounds a single Resume call.
	jobTimeout  time.Duration
	concurrency int
}

func main() {
	var (
		onceFlag        bool
		intervalFlag    time.Duration
		concurrencyFlag int
	)
	flag.BoolVar(&onceFlag, "once", false, "resume pending video jobs once and exit")
	flag.DurationVar(&intervalFlag, "interval", defaultScanInterval, "time between scans for pending video jobs")
	flag.IntVar(&concurrencyFlag, "concurrency", defaultConcurrency, "video jobs polled at the same time")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to open conversation store")
	}
	defer st.Close()

	worker := &resumeWorker{
		ctx:         ctx,
		svc:         generation.NewFromConfig(cfg, st, &logger),
		logger:      logger,
		interval:    intervalFlag,
		jobTimeout:  cfg.MaxGenerationWait(),
		concurrency: concurrencyFlag,
	}

	if onceFlag {
		worker.scan()
		return
	}
	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *resumeWorker) Run() error {
	w.logger.Info().Dur("interval", w.interval).Msg("worker: started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.scan()
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-ticker.C:
		}
	}
}

// scan resumes every pending video record, oldest first and at most
// concurrency at a time, and reports how many finished.
func (w *resumeWorker) scan() int {
	pending, err := w.svc.InProgress(w.ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("worker: failed to list pending jobs")
		return 0
	}
	var finished atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(max(w.concurrency, 1))
	for _, c := range pending {
		if w.ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if w.resume(c) {
				finished.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	n := int(finished.Load())
	if len(pending) > 0 {
		w.logger.Info().Int("pending", len(pending)).Int("finished", n).Msg("worker: scan done")
	}
	return n
}

func (w *resumeWorker) resume(c *domain.Conversation) bool {
	ctx, cancel := context.WithTimeout(w.ctx, w.jobTimeout)
	defer cancel()

	jobID := ""
	if c.ProviderState != nil {
		jobID = c.ProviderState.JobID
	}
	w.logger.Info().Str("conversation_id", c.ID).Str("job_id", jobID).Msg("worker: resuming job")
	out := w.svc.Resume(ctx, c.ID)
	if out.Result.IsError {
		w.logger.Warn().
			Str("conversation_id", c.ID).
			Str("kind", string(out.Result.Kind())).
			Str("error", out.Result.ErrorMessage).
			Msg("worker: job not finished")
		return false
	}
	return true
}
