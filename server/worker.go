package server

import (
	"fmt"

	"github.com/yaprak-lang/yaprak/vm"
)

// request is a unit of work run on the worker goroutine.
type request struct {
	fn   func(*vm.Registry) any
	done chan result
}

type result struct {
	value any
	err   error
}

// Worker runs document analysis one request at a time on a dedicated
// goroutine, so diagnostics for rapid edits are produced in order and a
// panic while compiling a broken buffer cannot take the server down.
type Worker struct {
	registry *vm.Registry
	requests chan request
	quit     chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(reg *vm.Registry) *Worker {
	w := &Worker{
		registry: reg,
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (w *Worker) execute(fn func(*vm.Registry) any) (res result) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("analysis panicked: %v", r)
			res.err = fmt.Errorf("%v", r)
		}
	}()
	res.value = fn(w.registry)
	return res
}

// Do submits fn and blocks until it completes. Returns the result and any
// error, including a recovered panic.
func (w *Worker) Do(fn func(*vm.Registry) any) (any, error) {
	select {
	case <-w.quit:
		return nil, errStopped
	default:
	}

	req := request{
		fn:   fn,
		done: make(chan result, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, errStopped
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, errStopped
	}
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	close(w.quit)
}

// Registry returns the native registry used for analysis.
func (w *Worker) Registry() *vm.Registry {
	return w.registry
}
