package memory

import (
	"sync"
	"sync/atomic"
)

// Resetter is implemented by pooled objects that must be cleared before
// they are handed out again.
type Resetter interface {
	Reset()
}

// Pool is a typed object pool backed by sync.Pool.
type Pool[T any] struct {
	p           *sync.Pool
	outstanding atomic.Int64
}

func NewPool[T any](ctor func() *T) *Pool[T] {
	return &Pool[T]{
		p: &sync.Pool{
			New: func() any { return ctor() },
		},
	}
}

func (p *Pool[T]) Get() *T {
	p.outstanding.Add(1)
	return p.p.Get().(*T)
}

// Put returns v to the pool. v must not be used afterwards.
func (p *Pool[T]) Put(v *T) {
	if r, ok := any(v).(Resetter); ok {
		r.Reset()
	}
	p.outstanding.Add(-1)
	p.p.Put(v)
}

// Outstanding is the number of objects handed out and not yet returned.
func (p *Pool[T]) Outstanding() int64 {
	return p.outstanding.Load()
}
