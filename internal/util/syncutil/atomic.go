package syncutil

import (
	"sync/atomic"
	"time"
)

// Atomic holds a T that goroutines can load and store safely. The zero
// Atomic holds the zero T.
type Atomic[T any] struct {
	ptr atomic.Pointer[T]
}

// NewAtomic creates a new Atomic instance initialized with the given value.
func NewAtomic[T any](initial T) *Atomic[T] {
	a := &Atomic[T]{}
	a.Store(initial)
	return a
}

// Load returns the current value.
func (a *Atomic[T]) Load() T {
	if p := a.ptr.Load(); p != nil {
		return *p
	}
	var zero T
	return zero
}

// Store sets the value.
func (a *Atomic[T]) Store(value T) {
	a.ptr.Store(&value)
}

// Swap sets the value and returns the previous one.
func (a *Atomic[T]) Swap(value T) T {
	if old := a.ptr.Swap(&value); old != nil {
		return *old
	}
	var zero T
	return zero
}

// Update replaces the value with fn applied to it. fn may run more than
// once when other goroutines write at the same time.
func (a *Atomic[T]) Update(fn func(T) T) T {
	for {
		old := a.ptr.Load()
		var current T
		if old != nil {
			current = *old
		}
		next := fn(current)
		if a.ptr.CompareAndSwap(old, &next) {
			return next
		}
	}
}

// AtomicTime is an Atomic time.Time.
type AtomicTime = Atomic[time.Time]

// NewAtomicTime creates a new AtomicTime with an initial value.
func NewAtomicTime(initial time.Time) *AtomicTime {
	return NewAtomic(initial)
}

// AtomicString is an Atomic string.
type AtomicString = Atomic[string]

// NewAtomicString creates a new AtomicString with an initial value.
func NewAtomicString(initial string) *AtomicString {
	return NewAtomic(initial)
}
