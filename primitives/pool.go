package primitives

import "sync"

// Pool is a typed wrapper over sync.Pool for the fabric's pool-allocated
// messages: each MessageClass gets one Pool, Get returns a ready-to-use
// (but not zeroed beyond New's own zero value) instance, and Release
// returns it for reuse. Ownership is at-most-once: a caller that has
// called Release must not touch the value again.
type Pool[T any] struct {
	inner sync.Pool
}

// NewPool creates a Pool whose New function is newItem.
func NewPool[T any](newItem func() T) *Pool[T] {
	p := &Pool[T]{}
	p.inner.New = func() any { return newItem() }

	return p
}

// Get returns an item from the pool, allocating a new one if none is free.
func (p *Pool[T]) Get() T {
	return p.inner.Get().(T)
}

// Release returns item to the pool for future reuse.
func (p *Pool[T]) Release(item T) {
	p.inner.Put(item)
}
