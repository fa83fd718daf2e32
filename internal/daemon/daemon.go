package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"alttag/internal/config"
	"alttag/internal/logging"
	"alttag/internal/processor"
	"alttag/internal/queue"
	"alttag/internal/services"
)

// Daemon runs scheduled caption batches and enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	queue     *queue.Store
	processor *processor.Processor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Schedule     string
	QueueDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, queueStore *queue.Store, proc *processor.Processor, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || queueStore == nil || proc == nil {
		return nil, errors.New("daemon requires config, queue store, and processor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "alttagd.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logger,
		queue:     queueStore,
		processor: proc,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and schedules periodic batch runs.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another alttagd instance is already running")
	}

	schedule := d.cfg.Workflow.Schedule
	runner := cron.New()
	if _, err := runner.AddFunc(schedule, d.runBatch); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	d.mu.Lock()
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.cron = runner
	d.mu.Unlock()

	runner.Start()
	d.running.Store(true)
	d.logger.Info("alttagd started",
		logging.String("schedule", schedule),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the schedule and releases the instance lock. Safe to call
// multiple times.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	runner := d.cron
	cancel := d.cancel
	d.cron = nil
	d.cancel = nil
	d.ctx = nil
	d.mu.Unlock()

	// Wait for an in-flight batch before releasing the lock. The mutex
	// must not be held here: runBatch takes it to read the context, so a
	// batch starting just before Stop would block against it forever.
	if runner != nil {
		<-runner.Stop().Done()
	}
	if cancel != nil {
		cancel()
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("alttagd stopped")
}

// RunOnce triggers an immediate batch outside the schedule.
func (d *Daemon) RunOnce(ctx context.Context) (int, error) {
	return d.processor.ProcessBatch(ctx, d.cfg.Processing.BatchSize)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Schedule:     d.cfg.Workflow.Schedule,
		QueueDBPath:  d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
}

func (d *Daemon) runBatch() {
	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()
	if ctx == nil {
		return
	}
	ctx = services.WithBatchID(ctx, "")

	start := time.Now()
	processed, err := d.processor.ProcessBatch(ctx, d.cfg.Processing.BatchSize)
	if err != nil {
		d.logger.Error("scheduled batch failed", logging.Error(err))
		return
	}
	if processed > 0 {
		d.logger.Info("scheduled batch complete",
			logging.Int("processed", processed),
			logging.Duration("elapsed", time.Since(start)))
	}
}
