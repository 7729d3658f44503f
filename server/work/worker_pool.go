package work

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const QUEUE_SIZE = 100

// WorkerPool runs queued jobs on a fixed number of workers.
// Jobs only live in memory, so anything still queued is lost on shutdown.
type WorkerPool struct {
	mu       sync.Mutex
	handlers map[string]Handler
	pending  map[string]bool
	workers  []*worker
	queue    chan *job
	started  bool
	stopped  chan struct{}
}

func NewWorkerPool(concurrency int) *WorkerPool {
	if concurrency < 1 {
		concurrency = 1
	}

	wp := &WorkerPool{
		handlers: make(map[string]Handler),
		pending:  make(map[string]bool),
		queue:    make(chan *job, QUEUE_SIZE),
		stopped:  make(chan struct{}),
	}

	for i := 0; i < concurrency; i++ {
		wp.workers = append(wp.workers, newWorker(wp))
	}

	return wp
}

// registerHandler binds a name to a job handler for all workers in pool
func (wp *WorkerPool) registerHandler(name string, handler Handler) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if _, ok := wp.handlers[name]; ok {
		return errors.Wrap(ErrDuplicateHandler, name)
	}
	wp.handlers[name] = handler

	return nil
}

func (wp *WorkerPool) handler(name string) (Handler, bool) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	handler, ok := wp.handlers[name]
	return handler, ok
}

// enqueue adds a job to the queue, to be executed once a worker is available
func (wp *WorkerPool) enqueue(params JobParams) error {
	if strings.TrimSpace(params.Name) == "" || strings.TrimSpace(params.Handler) == "" {
		return errors.New("both a name & handler is required for a job")
	}

	if _, ok := wp.handler(params.Handler); !ok {
		return errors.Wrap(ErrUnknownHandler, params.Handler)
	}

	wp.mu.Lock()
	if params.Unique && wp.pending[params.Name] {
		wp.mu.Unlock()
		return ErrDuplicateJob
	}
	if params.Unique {
		wp.pending[params.Name] = true
	}
	wp.mu.Unlock()

	select {
	case wp.queue <- &job{JobParams: params}:
		return nil
	default:
		wp.release(&job{JobParams: params})
		return errors.Errorf("queue is full, dropping job %v", params.Name)
	}
}

func (wp *WorkerPool) requeueAfter(currentJob *job, delay time.Duration) {
	wp.mu.Lock()
	stopped := wp.stopped
	wp.mu.Unlock()

	go func() {
		select {
		case <-time.After(delay):
		case <-stopped:
			wp.release(currentJob)
			return
		}

		select {
		case wp.queue <- currentJob:
		case <-stopped:
			wp.release(currentJob)
		}
	}()
}

// release marks a unique job as no longer pending
func (wp *WorkerPool) release(currentJob *job) {
	if !currentJob.Unique {
		return
	}

	wp.mu.Lock()
	delete(wp.pending, currentJob.Name)
	wp.mu.Unlock()
}

// start starts all workers in pool i.e the workers can start processing jobs
func (wp *WorkerPool) start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}
	wp.started = true
	wp.stopped = make(chan struct{})

	for _, w := range wp.workers {
		w.start()
	}
}

// stop stops all workers in pool i.e jobs will stop being processed
func (wp *WorkerPool) stop() {
	wp.mu.Lock()
	if !wp.started {
		wp.mu.Unlock()
		return
	}
	wp.started = false
	close(wp.stopped)
	workers := wp.workers
	wp.mu.Unlock()

	wg := sync.WaitGroup{}
	for _, w := range workers {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			w.stop()
		}(w)
	}
	wg.Wait()

	// Workers can't be restarted once stopped, so prepare fresh ones
	wp.mu.Lock()
	for i := range wp.workers {
		wp.workers[i] = newWorker(wp)
	}
	wp.mu.Unlock()
}
