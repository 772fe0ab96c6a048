package restfire

import (
	"sync"
)

// dispatcher runs completion callbacks serially on a single goroutine,
// in the order the operations settled.
type dispatcher struct {
	// =================================
	// mutex protect following fields
	// =================================
	mut sync.Mutex

	handleQueue    []func()
	handleCond     *sync.Cond
	handleShutdown bool
	// =================================

	wg sync.WaitGroup
}

func newDispatcher() *dispatcher {
	d := &dispatcher{}
	d.handleCond = sync.NewCond(&d.mut)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.runHandler()
	}()

	return d
}

// enqueue returns false after shutdown, the callback is not run in that case.
func (d *dispatcher) enqueue(callback func()) bool {
	d.mut.Lock()
	defer d.mut.Unlock()

	if d.handleShutdown {
		return false
	}

	d.handleQueue = append(d.handleQueue, callback)
	d.handleCond.Signal()
	return true
}

func (d *dispatcher) getHandleEvents() ([]func(), bool) {
	d.mut.Lock()
	defer d.mut.Unlock()

	for {
		if len(d.handleQueue) > 0 {
			events := d.handleQueue
			d.handleQueue = nil
			return events, true
		}

		if d.handleShutdown {
			return nil, false
		}

		d.handleCond.Wait()
	}
}

func (d *dispatcher) runHandler() {
	for {
		events, ok := d.getHandleEvents()
		if !ok {
			return
		}

		for _, callback := range events {
			callback()
		}
	}
}

// shutdown waits for the already queued callbacks to finish.
// It must not be called from a callback.
func (d *dispatcher) shutdown() {
	d.mut.Lock()
	d.handleShutdown = true
	d.handleCond.Signal()
	d.mut.Unlock()

	d.wg.Wait()
}
