package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ProcessFunc executes a claimed job. Returning nil completes the job;
// returning an error records a failed attempt and triggers the retry policy.
type ProcessFunc func(ctx context.Context, job *Job) error

// Worker pulls jobs from a Storage and processes them with a bounded number
// of parallel slots. A shared rate limiter spaces out job starts across all
// slots so bursts of due jobs do not fire at once.
type Worker struct {
	storage  Storage
	process  ProcessFunc
	workerID uuid.UUID
	sem      chan struct{}
	throttle *rate.Limiter
	wg       sync.WaitGroup
	mu       sync.Mutex
	stopMu   sync.Mutex
	stopping atomic.Bool

	pullInterval time.Duration
	lockTimeout  time.Duration
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWorker creates a worker over the given storage.
func NewWorker(storage Storage, process ProcessFunc, opts ...WorkerOption) (*Worker, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if process == nil {
		return nil, ErrProcessorNil
	}

	options := &workerOptions{
		pullInterval: time.Second,
		lockTimeout:  2 * time.Minute,
		concurrency:  5,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	throttle := rate.NewLimiter(rate.Inf, 1)
	if options.minSendInterval > 0 {
		throttle = rate.NewLimiter(rate.Every(options.minSendInterval), 1)
	}

	return &Worker{
		storage:      storage,
		process:      process,
		workerID:     uuid.New(),
		sem:          make(chan struct{}, options.concurrency),
		throttle:     throttle,
		pullInterval: options.pullInterval,
		lockTimeout:  options.lockTimeout,
		logger:       options.logger,
	}, nil
}

// Start begins processing jobs in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return errors.New("queue: worker already started")
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	go w.run()

	w.logger.Info("worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Int("concurrency", cap(w.sem)),
		slog.Duration("pull_interval", w.pullInterval))

	return nil
}

// Stop shuts the worker down, letting in-flight jobs run to completion.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return errors.New("queue: worker not started")
	}

	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, draining active jobs",
		slog.String("worker_id", w.workerID.String()))

	w.wg.Wait()

	w.logger.Info("worker stopped", slog.String("worker_id", w.workerID.String()))
	return nil
}

// Run returns a function suitable for errgroup: it starts the worker, blocks
// until the context is canceled, then drains.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return w.Stop()
	}
}

func (w *Worker) run() {
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				// Synchronize with Stop so we never Add after Wait begins.
				w.stopMu.Lock()
				if w.stopping.Load() {
					w.stopMu.Unlock()
					<-w.sem
					return
				}
				w.wg.Add(1)
				w.stopMu.Unlock()

				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }()

					if err := w.pullAndProcess(); err != nil {
						w.logger.Error("failed to process job",
							slog.String("worker_id", w.workerID.String()),
							slog.String("error", err.Error()))
					}
				}()
			default:
				// All slots busy, skip this tick.
			}
		}
	}
}

func (w *Worker) pullAndProcess() error {
	job, err := w.storage.ClaimJob(w.ctx, w.lockTimeout)
	if err != nil {
		if errors.Is(err, ErrNoJobToClaim) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to claim job: %w", err)
	}

	if err := w.throttle.Wait(w.ctx); err != nil {
		// Shutting down mid-claim: hand the job back untouched so the next
		// run starts with its full attempt budget.
		if relErr := w.storage.ReleaseJob(context.Background(), job.ID); relErr != nil {
			return fmt.Errorf("failed to release job %s on shutdown: %w", job.ID, relErr)
		}
		return nil
	}

	w.logger.Debug("claimed job",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID),
		slog.Int("attempts", job.Attempts))

	return w.processJob(job)
}

func (w *Worker) processJob(job *Job) (retErr error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in processor: %v", r)
			w.logger.Error("processor panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("job_id", job.ID),
				slog.Any("panic", r))
			retErr = w.handleFailure(job, retErr, time.Since(start))
		}
	}()

	// Detached from the worker context so graceful shutdown lets in-flight
	// jobs finish. The lease duration bounds the execution instead.
	ctx, cancel := context.WithTimeout(context.Background(), w.lockTimeout)
	defer cancel()

	err := w.process(ctx, job)
	duration := time.Since(start)

	if err != nil {
		return w.handleFailure(job, err, duration)
	}
	return w.handleSuccess(job, duration)
}

func (w *Worker) handleFailure(job *Job, execErr error, duration time.Duration) error {
	retrying, err := w.storage.FailJob(context.Background(), job.ID, execErr.Error())
	if err != nil {
		return fmt.Errorf("failed to record failure of job %s: %w", job.ID, err)
	}

	if retrying {
		w.logger.Warn("job failed, will retry",
			slog.String("worker_id", w.workerID.String()),
			slog.String("job_id", job.ID),
			slog.Int("attempts", job.Attempts+1),
			slog.Int("max_attempts", job.MaxAttempts),
			slog.Duration("duration", duration),
			slog.String("error", execErr.Error()))
		return nil
	}

	w.logger.Error("job failed permanently",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID),
		slog.Int("attempts", job.Attempts+1),
		slog.Duration("duration", duration),
		slog.String("error", execErr.Error()))
	return nil
}

func (w *Worker) handleSuccess(job *Job, duration time.Duration) error {
	if err := w.storage.CompleteJob(context.Background(), job.ID); err != nil {
		return fmt.Errorf("failed to mark job %s completed: %w", job.ID, err)
	}

	w.logger.Info("job completed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID),
		slog.Duration("duration", duration))
	return nil
}
