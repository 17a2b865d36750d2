package pool

import "sync"

// Pool keeps up to size released values for reuse. Values released while
// the pool is full are dropped.
type Pool[T any] struct {
	mu    sync.Mutex
	free  []T
	newFn func() T
}

func New[T any](size int, newFn func() T) *Pool[T] {
	if size < 1 {
		panic("assertion error: size < 1")
	}
	return &Pool[T]{free: make([]T, 0, size), newFn: newFn}
}

// Get returns a released value or a new one.
func (p *Pool[T]) Get() T {
	p.mu.Lock()
	l := len(p.free)
	if l == 0 {
		p.mu.Unlock()
		return p.newFn()
	}
	v := p.free[l-1]
	var zero T
	p.free[l-1] = zero
	p.free = p.free[:l-1]
	p.mu.Unlock()
	return v
}

func (p *Pool[T]) Put(v T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) < cap(p.free) {
		p.free = append(p.free, v)
	}
}

func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
