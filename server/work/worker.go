package work

import (
	"fmt"
	"time"

	"github.com/Daskott/safecircle/colors"
	"github.com/Daskott/safecircle/server/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const MAX_FAILS = 4

var (
	ErrDuplicateHandler = errors.New("handler with provided name already mapped")
	ErrUnknownHandler   = errors.New("no handler mapped to provided name")
	ErrDuplicateJob     = errors.New("job with provided name already in queue")

	// Wait between retries of a failed job, indexed by the number of fails so far
	RetryBackoffs = []time.Duration{0, time.Second, 10 * time.Second, 30 * time.Second}

	logg = logger.NewLogger()
)

type JobParams struct {
	Name    string
	Handler string

	// Unique jobs are dropped while another job with the same name is queued or in progress
	Unique bool
	Args   map[string]interface{}
}

type Handler func(map[string]interface{}) error

type job struct {
	JobParams
	fails int
}

type worker struct {
	id       string
	pool     *WorkerPool
	stopChan chan struct{}
	doneChan chan struct{}
}

func newWorker(pool *WorkerPool) *worker {
	return &worker{
		id:       uuid.NewString()[:8],
		pool:     pool,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

func (w *worker) start() {
	go w.loop()
}

// stop waits for the job in progress (if any) to complete
func (w *worker) stop() {
	close(w.stopChan)
	<-w.doneChan
}

func (w *worker) loop() {
	defer close(w.doneChan)

	w.logInfof("starting")
	for {
		select {
		case <-w.stopChan:
			w.logInfof("stopping")
			return
		case currentJob := <-w.pool.queue:
			w.processJob(currentJob)
		}
	}
}

func (w *worker) processJob(currentJob *job) {
	handler, ok := w.pool.handler(currentJob.Handler)
	if !ok {
		w.logError(errors.Wrapf(ErrUnknownHandler, "job %v", currentJob.Name))
		w.pool.release(currentJob)
		return
	}

	err := runHandler(handler, currentJob.Args)
	if err != nil {
		w.logError(errors.Wrapf(err, "job %v", currentJob.Name))
		w.determineFailedJobFate(currentJob)
		return
	}

	w.pool.release(currentJob)
	w.logInfof("job %v completed successfully", currentJob.Name)
}

// determineFailedJobFate retries 'currentJob' after a backoff, unless it
// has already failed MAX_FAILS times in which case it's dropped
func (w *worker) determineFailedJobFate(currentJob *job) {
	currentJob.fails++

	if currentJob.fails >= MAX_FAILS {
		w.pool.release(currentJob)
		w.logInfof("job %v is dead after %v fails", currentJob.Name, currentJob.fails)
		return
	}

	backoff := RetryBackoffs[len(RetryBackoffs)-1]
	if currentJob.fails < len(RetryBackoffs) {
		backoff = RetryBackoffs[currentJob.fails]
	}

	w.logInfof("job %v failed %v time(s), retrying in %v", currentJob.Name, currentJob.fails, backoff)
	w.pool.requeueAfter(currentJob, backoff)
}

func runHandler(handler Handler, args map[string]interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("handler panicked: %v", r)
		}
	}()

	return handler(args)
}

func (w *worker) logInfof(template string, args ...interface{}) {
	prefix := colors.Yellow(fmt.Sprintf("[worker %v] ", w.id))
	logg.Infof(prefix+template, args...)
}

func (w *worker) logError(err error) {
	prefix := colors.Red(fmt.Sprintf("[worker %v] ", w.id))
	logg.Error(prefix, err)
}
