package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ikkim/gomarketplace-cart/internal/app/model"
	"github.com/ikkim/gomarketplace-cart/internal/app/repository"
	"github.com/ikkim/gomarketplace-cart/pkg/logger"
)

// ErrPersistFailed wraps every background write failure.
var ErrPersistFailed = errors.New("persist cart failed")

// PersistTask is the second phase of a cart mutation: the background write of
// the full cart. Callers may wait on it or ignore it.
type PersistTask struct {
	version    uint64
	done       chan struct{}
	err        error
	superseded bool
}

func newPersistTask(version uint64) *PersistTask {
	return &PersistTask{version: version, done: make(chan struct{})}
}

// Version is the cart version this task writes. Versions grow by one per mutation.
func (t *PersistTask) Version() uint64 {
	return t.version
}

// Done is closed once the write finished, failed or was skipped.
func (t *PersistTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task completes or ctx ends. It returns the write error,
// or ctx.Err() if ctx ended first (the write keeps running).
func (t *PersistTask) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err reports the write result. Only meaningful after Done is closed.
func (t *PersistTask) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Superseded reports whether the write was skipped because a newer version had
// already been attempted. A skipped task carries that attempt's error. Only
// meaningful after Done is closed.
func (t *PersistTask) Superseded() bool {
	select {
	case <-t.done:
		return t.superseded
	default:
		return false
	}
}

// persister runs cart writes in the background. Writes are serialized and a
// version older than one already attempted is never written.
type persister struct {
	repo    repository.CartRepository
	timeout time.Duration

	mu        sync.Mutex
	attempted uint64
	written   uint64
	lastErr   error

	pendingMu sync.Mutex
	pending   map[*PersistTask]struct{}
}

func newPersister(repo repository.CartRepository, timeout time.Duration) *persister {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &persister{
		repo:    repo,
		timeout: timeout,
		pending: make(map[*PersistTask]struct{}),
	}
}

func (p *persister) schedule(version uint64, items []model.CartItem) *PersistTask {
	task := newPersistTask(version)
	p.pendingMu.Lock()
	p.pending[task] = struct{}{}
	p.pendingMu.Unlock()

	go func() {
		defer func() {
			p.pendingMu.Lock()
			delete(p.pending, task)
			p.pendingMu.Unlock()
		}()
		p.run(task, items)
	}()
	return task
}

func (p *persister) run(task *PersistTask, items []model.CartItem) {
	defer close(task.done)

	p.mu.Lock()
	defer p.mu.Unlock()

	if task.version <= p.attempted {
		task.superseded = true
		// nil unless the newer attempt failed
		task.err = p.lastErr
		logger.Debug("Skipping stale cart write", map[string]interface{}{
			"version":   task.version,
			"attempted": p.attempted,
		})
		return
	}
	p.attempted = task.version

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.repo.Save(ctx, items); err != nil {
		task.err = fmt.Errorf("%w: version %d: %w", ErrPersistFailed, task.version, err)
		p.lastErr = task.err
		logger.Error("Failed to persist cart", err, map[string]interface{}{
			"version": task.version,
			"count":   len(items),
		})
		return
	}
	p.written = task.version
	p.lastErr = nil
}

// state returns the last written version and the error of the last attempt.
func (p *persister) state() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written, p.lastErr
}

// flush waits for every write scheduled before the call to finish.
func (p *persister) flush(ctx context.Context) error {
	p.pendingMu.Lock()
	tasks := make([]*PersistTask, 0, len(p.pending))
	for task := range p.pending {
		tasks = append(tasks, task)
	}
	p.pendingMu.Unlock()

	for _, task := range tasks {
		select {
		case <-task.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *persister) inFlight() int {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return len(p.pending)
}
