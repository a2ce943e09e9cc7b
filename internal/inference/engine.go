package inference

import (
	"context"
	"log/slog"
	"sync"

	"github.com/skypro1111/hindi-asr-service/internal/features"
)

// DefaultWorkers is the default inference worker pool size. It is tuned to
// available compute, not to request volume: two workers keep an accelerator
// busy without oversubscribing the CPU providers' thread pools.
const DefaultWorkers = 2

// Engine owns the single model session for the process and isolates its
// blocking numeric calls behind a fixed-size worker pool, so request
// handlers can wait on a result without tying up each other.
type Engine struct {
	session Session
	logger  *slog.Logger
	jobs    chan *inferJob

	workers   int
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type inferJob struct {
	features []float32
	shape    [3]int64
	length   int64
	result   chan inferResult
}

type inferResult struct {
	logits *Logits
	err    error
}

// NewEngine starts a worker pool of the given size around an open session.
// The pool size is independent of request concurrency.
func NewEngine(session Session, workers int, logger *slog.Logger) *Engine {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	e := &Engine{
		session: session,
		logger:  logger,
		jobs:    make(chan *inferJob),
		workers: workers,
	}

	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}

	logger.Info("Inference engine started", slog.Int("workers", workers))

	return e
}

// Infer submits the feature tensor to the worker pool and waits for the
// logits. The caller blocks only on its own result; concurrent callers with
// distinct inputs receive their own outputs with no cross-talk. If ctx is
// done before a worker picks the job up, the job is abandoned; once a
// worker has started, it completes its unit of work regardless and an
// unclaimed result is simply discarded.
func (e *Engine) Infer(ctx context.Context, t *features.Tensor) (*Logits, error) {
	job := &inferJob{
		features: t.Data,
		shape:    t.Shape(),
		length:   int64(t.Steps),
		result:   make(chan inferResult, 1),
	}

	select {
	case e.jobs <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-job.result:
		return res.logits, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Workers returns the worker pool size.
func (e *Engine) Workers() int {
	return e.workers
}

func (e *Engine) worker(id int) {
	defer e.wg.Done()

	for job := range e.jobs {
		logits, err := e.session.Run(job.features, job.shape, job.length)
		if err != nil {
			e.logger.Error("Inference call failed",
				slog.Int("worker", id),
				slog.String("error", err.Error()),
			)
		}
		// Buffered channel: delivery never blocks, even when the caller
		// has already given up.
		job.result <- inferResult{logits: logits, err: err}
	}
}

// Close drains the worker pool and releases the session.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.jobs)
		e.wg.Wait()
		err = e.session.Close()
		e.logger.Info("Inference engine stopped")
	})
	return err
}
