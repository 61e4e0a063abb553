// Package pooler holds a bounded set of reusable resources, such as
// connections shared by concurrent workers.
package pooler

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Get once the pool is closed.
var ErrClosed = errors.New("pool is closed")

type Config[T any] struct {
	// MaxItems is the maximum number of items checked out or idle at once.
	// Must be greater than zero.
	MaxItems int
	// MaxIdle is the maximum number of items kept for reuse. Must be
	// between zero and MaxItems.
	MaxIdle int
	// NewFunc creates an item.
	NewFunc func() (T, error)
	// CloseFunc releases an item that is not kept.
	CloseFunc func(T) error
}

// Stats describes the items of a pool.
type Stats struct {
	Total  int
	Idle   int
	InUse  int
	Closed bool
}

// Pool is a generic, thread-safe pool for any resource type T.
//
// Every checked out item holds one of MaxItems slots; Get waits for a
// slot when all of them are taken. When an item is Put back and MaxIdle
// items are already idle, it is closed instead of kept.
type Pool[T any] struct {
	cfg   Config[T]
	slots chan struct{}

	mu     sync.Mutex
	closed bool
	total  int
	idle   []T
}

// NewPool creates a Pool from config.
func NewPool[T any](config Config[T]) (*Pool[T], error) {
	if config.MaxItems <= 0 {
		return nil, errors.New("maxItems must be greater than zero")
	}
	if config.MaxIdle < 0 {
		return nil, errors.New("maxIdle cannot be negative")
	}
	if config.MaxIdle > config.MaxItems {
		return nil, errors.New("maxIdle cannot exceed maxItems")
	}
	if config.NewFunc == nil {
		return nil, errors.New("newFunc must not be nil")
	}
	if config.CloseFunc == nil {
		return nil, errors.New("closeFunc must not be nil")
	}

	return &Pool[T]{
		cfg:   config,
		slots: make(chan struct{}, config.MaxItems),
		idle:  make([]T, 0, config.MaxIdle),
	}, nil
}

// Get checks out an item, reusing an idle one when possible. It waits
// while MaxItems items are checked out, until one is Put back or ctx is
// done.
func (p *Pool[T]) Get(ctx context.Context) (T, error) {
	var zero T

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		<-p.slots
		return zero, ErrClosed
	}

	if n := len(p.idle); n > 0 {
		item := p.idle[n-1]
		p.idle = p.idle[:n-1]
		return item, nil
	}

	item, err := p.cfg.NewFunc()
	if err != nil {
		<-p.slots
		return zero, err
	}
	p.total++
	return item, nil
}

// Put returns an item taken with Get. The item is closed when the pool is
// closed or already holds MaxIdle idle items.
func (p *Pool[T]) Put(item T) error {
	p.mu.Lock()
	defer func() {
		p.mu.Unlock()
		<-p.slots
	}()

	if !p.closed && len(p.idle) < p.cfg.MaxIdle {
		p.idle = append(p.idle, item)
		return nil
	}

	p.total--
	return p.cfg.CloseFunc(item)
}

// With checks out an item, runs fn with it and puts it back.
func (p *Pool[T]) With(ctx context.Context, fn func(T) error) error {
	item, err := p.Get(ctx)
	if err != nil {
		return err
	}

	fnErr := fn(item)
	if err := p.Put(item); err != nil {
		return errors.Join(fnErr, err)
	}
	return fnErr
}

// Stats returns the current item counts.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Total:  p.total,
		Idle:   len(p.idle),
		InUse:  p.total - len(p.idle),
		Closed: p.closed,
	}
}

// Close closes the pool and its idle items. Later calls to Get fail with
// ErrClosed; items still checked out are closed when they are Put back.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for _, item := range p.idle {
		if err := p.cfg.CloseFunc(item); err != nil {
			errs = append(errs, err)
		}
	}
	p.total -= len(p.idle)
	p.idle = nil
	return errors.Join(errs...)
}
