// Package worker provides the bounded pool the build pipeline runs document
// transforms on. The pool has a fixed worker count and a buffered queue;
// submitting to a full queue blocks, which is the backpressure boundary for
// large content trees.
package worker

import (
	"context"
	"errors"
	"sync"

	bferrors "git.home.luguber.info/inful/blogforge/internal/errors"
)

// ErrPoolClosed is returned by Submit after Wait or Close has been called.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a unit of work executed on a pool worker.
type Task func(ctx context.Context) error

// Pool runs tasks on a fixed number of workers. The first task error cancels
// the pool context so remaining in-flight tasks can stop early, and is
// returned from Wait.
type Pool struct {
	queue  chan Task
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	firstErr error
}

// NewPool creates and starts a pool with the given worker count and queue
// capacity. The pool context is derived from ctx.
func NewPool(ctx context.Context, workers, queueSize int) (*Pool, error) {
	if workers <= 0 {
		return nil, bferrors.ValidationError("worker count must be positive")
	}
	if queueSize <= 0 {
		return nil, bferrors.ValidationError("queue size must be positive")
	}

	poolCtx, cancel := context.WithCancel(ctx)
	p := &Pool{
		queue:  make(chan Task, queueSize),
		cancel: cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(poolCtx)
	}
	return p, nil
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for task := range p.queue {
		if ctx.Err() != nil {
			// Drain without executing once canceled.
			continue
		}
		if err := task(ctx); err != nil {
			p.recordErr(err)
		}
	}
}

func (p *Pool) recordErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.firstErr == nil {
		p.firstErr = err
		p.cancel()
	}
}

// Submit enqueues a task, blocking while the queue is full. It fails fast when
// the pool is closed, a previous task already failed, or ctx is done.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return bferrors.ValidationError("task must not be nil")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	if p.firstErr != nil {
		err := p.firstErr
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()

	select {
	case p.queue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait closes the queue, waits for all workers to drain it, and returns the
// first task error, if any. Submit fails with ErrPoolClosed afterwards.
func (p *Pool) Wait() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.firstErr
}
