package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// WorkerPool runs tasks from a Source on a fixed number of goroutines.
type WorkerPool struct {
	taskQueue   Source
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *slog.Logger

	// errorHandler, when set, receives every failed or panicking task.
	errorHandler func(task Task, err error)
}

type WorkerPoolConfig struct {
	// WorkerCount is the number of goroutines; values below 1 mean 1.
	WorkerCount int
}

// NewWorkerPool creates a new worker pool with the specified configuration.
// Workers stop when parent is cancelled, when Stop is called, or when the
// queue channel is closed and drained.
func NewWorkerPool(parent context.Context, taskQueue Source, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("worker count below one, running a single worker",
			"requested", config.WorkerCount)
	}

	ctx, cancel := context.WithCancel(parent)

	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetErrorHandler allows setting a custom error handler for task execution failures.
// It must be called before Start.
func (p *WorkerPool) SetErrorHandler(handler func(task Task, err error)) {
	p.errorHandler = handler
}

// Start launches the worker goroutines.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Debug("worker pool started", "worker_count", p.workerCount)
}

// Wait blocks until every worker has exited, which happens once the queue
// is closed and drained or the pool is stopped.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
	p.cancel()
}

// Stop cancels in-flight work and waits for the workers to exit.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Debug("worker pool stopped")
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskQueue.GetChannel():
			if !ok {
				return
			}
			p.process(id, task)
		}
	}
}

// process runs one task, converting panics into errors.
func (p *WorkerPool) process(workerID int, task Task) {
	logger := p.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		return task.Execute(p.ctx)
	}()

	if err == nil {
		logger.Debug("task completed")
		return
	}

	logger.Warn("task execution failed", "error", err)
	if p.errorHandler != nil {
		p.errorHandler(task, err)
	}
}
