package restfire

import (
	"context"
	"sync"
	"sync/atomic"
)

// Empty is the value of futures that only report success or failure.
type Empty struct{}

// Future is the pending outcome of an asynchronous operation.
// It settles exactly once, with either a value or an error.
type Future[T any] struct {
	dispatcher *dispatcher

	settled atomic.Bool
	done    chan struct{}

	// =================================
	// mutex protect following fields
	// =================================
	mut       sync.Mutex
	value     T
	err       error
	callbacks []func(value T, err error)
	// =================================
}

func newFuture[T any](d *dispatcher) *Future[T] {
	return &Future[T]{
		dispatcher: d,
		done:       make(chan struct{}),
	}
}

func (f *Future[T]) resolve(value T) bool {
	return f.settle(value, nil)
}

func (f *Future[T]) reject(err error) bool {
	var empty T
	return f.settle(empty, err)
}

// settle returns false if the future was already settled, the new outcome is dropped then.
func (f *Future[T]) settle(value T, err error) bool {
	if !f.settled.CompareAndSwap(false, true) {
		return false
	}

	f.mut.Lock()
	f.value = value
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mut.Unlock()

	for _, cb := range callbacks {
		f.runCallback(cb, value, err)
	}
	return true
}

func (f *Future[T]) runCallback(cb func(value T, err error), value T, err error) {
	if f.dispatcher != nil && f.dispatcher.enqueue(func() { cb(value, err) }) {
		return
	}
	go cb(value, err)
}

// Done is closed once the future is settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the future is settled.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	f.mut.Lock()
	defer f.mut.Unlock()
	return f.value, f.err
}

// Wait is Result bounded by ctx.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var empty T
		return empty, ctx.Err()
	}
}

// OnComplete registers a callback called once with the outcome.
// Callbacks run on the database's handler goroutine, one at a time.
func (f *Future[T]) OnComplete(callback func(value T, err error)) {
	f.mut.Lock()
	select {
	case <-f.done:
		value, err := f.value, f.err
		f.mut.Unlock()
		f.runCallback(callback, value, err)
		return
	default:
	}
	f.callbacks = append(f.callbacks, callback)
	f.mut.Unlock()
}

func rejectedFuture[T any](d *dispatcher, err error) *Future[T] {
	f := newFuture[T](d)
	f.reject(err)
	return f
}
