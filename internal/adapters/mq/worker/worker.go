// Package worker runs queued ranking jobs and records their outcome.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/fitbert/internal/domain/model"
	"github.com/okian/fitbert/pkg/logger"
	"github.com/okian/fitbert/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Processor executes the engine operations a job can ask for.
type Processor interface {
	Rank(ctx context.Context, sentence string, options []string) (model.Result, error)
	Fitb(ctx context.Context, sentence string, options []string) (string, error)
}

// Updater persists job state transitions.
type Updater interface {
	Update(ctx context.Context, id string, fn func(*model.Job)) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	updater   Updater
	name      string

	shutdown chan struct{}
	done     chan struct{}
	onDone   func()

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(queue Queue, processor Processor, updater Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		updater:   updater,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run implements Worker.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "job failed", logger.String("job_id", job.ID), logger.Error(err))
			}
			if w.onDone != nil {
				w.onDone()
			}
		}
	}
}

// Shutdown implements Worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job model.Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.updater.Update(ctx, job.ID, func(j *model.Job) { j.Status = model.JobRunning }); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		return fmt.Errorf("mark job %s running: %w", job.ID, err)
	}

	var (
		result *model.Result
		filled string
		err    error
	)
	switch job.Mode {
	case model.JobModeFitb:
		filled, err = w.processor.Fitb(ctx, job.Request.Sentence, job.Request.Options)
	case model.JobModeRank:
		var res model.Result
		res, err = w.processor.Rank(ctx, job.Request.Sentence, job.Request.Options)
		if err == nil {
			result = &res
		}
	default:
		err = fmt.Errorf("unknown job mode %q", job.Mode)
	}

	status := model.JobDone
	if err != nil {
		status = model.JobFailed
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "processing_error")
	}
	metrics.RecordJobFinished(string(status))

	updateErr := w.updater.Update(ctx, job.ID, func(j *model.Job) {
		j.Status = status
		j.Result = result
		j.Filled = filled
		if err != nil {
			j.Err = err.Error()
		}
	})
	if updateErr != nil {
		metrics.RecordErrorByComponent("worker", "store_error")
		return fmt.Errorf("store job %s: %w", job.ID, updateErr)
	}
	return err
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown chan struct{}

	processed         atomic.Int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. Non-positive counts default
// to runtime.NumCPU().
func NewPool(workerCount int, queue Queue, processor Processor, updater Updater) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             queue,
		shutdown:          make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			processor,
			updater,
			WithName("worker-"+strconv.Itoa(i)),
			withOnDone(pool.recordProcessed),
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0.0)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of jobs handled since the last metrics tick.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	now := time.Now()
	if elapsed := now.Sub(p.lastProcessedTime).Seconds(); elapsed > 0 {
		metrics.UpdateWorkerMessagesPerSecond(float64(p.processed.Swap(0)) / elapsed)
	}
	p.lastProcessedTime = now
}

func (p *Pool) recordProcessed() {
	p.processed.Add(1)
}

// Shutdown closes the queue, lets workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
