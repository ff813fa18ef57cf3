// Package registry provides a small concurrent name-to-value registry built
// on haxmap. It backs the process-global analyzer catalog without callers
// having to manage locking themselves.
package registry

import "github.com/alphadose/haxmap"

// Registry is a concurrent map keyed by name. All methods are safe for
// concurrent use.
type Registry[T any] interface {
	Get(name string) (T, bool)
	Add(name string, value T)
	GetOrAdd(name string, value func() T) (T, bool)
	Del(name string)
	// ForEach visits every entry until fn returns false. Iteration order is
	// unspecified.
	ForEach(fn func(name string, value T) bool)
}

type registry[T any] struct {
	values *haxmap.Map[string, T]
}

func New[T any]() Registry[T] {
	return &registry[T]{
		values: haxmap.New[string, T](),
	}
}

func (r *registry[T]) Get(name string) (T, bool) {
	return r.values.Get(name)
}

func (r *registry[T]) Add(name string, value T) {
	r.values.Set(name, value)
}

func (r *registry[T]) GetOrAdd(name string, valueFn func() T) (T, bool) {
	return r.values.GetOrCompute(name, valueFn)
}

func (r *registry[T]) Del(name string) {
	r.values.Del(name)
}

func (r *registry[T]) ForEach(fn func(name string, value T) bool) {
	r.values.ForEach(fn)
}
