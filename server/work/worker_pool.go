package work

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const QUEUE_SIZE = 64

var (
	ErrDuplicateHandler = errors.New("handler with provided name already mapped")
	ErrDuplicateJob     = errors.New("job with the given name already exists in queue")
	ErrUnknownHandler   = errors.New("no handler mapped to provided name")
	ErrQueueFull        = errors.New("job queue is full")
)

type WorkerPool struct {
	handlers    map[string]Handler
	queue       chan JobParams
	workers     []*worker
	concurrency int
	started     bool

	// names of jobs that are enqueued or in-progress
	pending map[string]bool
	mu      sync.Mutex
}

func NewWorkerPool(concurrency int) *WorkerPool {
	wp := &WorkerPool{
		handlers:    make(map[string]Handler),
		queue:       make(chan JobParams, QUEUE_SIZE),
		concurrency: concurrency,
		pending:     make(map[string]bool),
	}

	for i := 0; i < concurrency; i++ {
		wp.workers = append(wp.workers, newWorker(wp))
	}

	return wp
}

// RegisterHandler binds a name to a job handler for all workers in pool
func (wp *WorkerPool) RegisterHandler(name string, handler Handler) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if _, ok := wp.handlers[name]; ok {
		return ErrDuplicateHandler
	}

	wp.handlers[name] = handler
	return nil
}

// Enqueue adds a job to the queue(to be executed). Only one job with a
// given name can be enqueued or in-progress at a time.
func (wp *WorkerPool) Enqueue(job JobParams) error {
	if strings.TrimSpace(job.Name) == "" || strings.TrimSpace(job.Handler) == "" {
		return fmt.Errorf("both a name & handler is required for a job")
	}

	wp.mu.Lock()
	defer wp.mu.Unlock()

	if _, ok := wp.handlers[job.Handler]; !ok {
		return errors.Wrap(ErrUnknownHandler, job.Handler)
	}

	if wp.pending[job.Name] {
		return ErrDuplicateJob
	}

	select {
	case wp.queue <- job:
		wp.pending[job.Name] = true
		return nil
	default:
		return ErrQueueFull
	}
}

// Start starts all workers in pool i.e the workers can start processing jobs
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}
	wp.started = true

	for _, worker := range wp.workers {
		worker.start()
	}
}

// Stop stops all workers in pool i.e jobs will stop being processed
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if !wp.started {
		wp.mu.Unlock()
		return
	}
	wp.started = false
	wp.mu.Unlock()

	wg := sync.WaitGroup{}
	for _, w := range wp.workers {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			w.stop()
		}(w)
	}
	wg.Wait()
}

func (wp *WorkerPool) handler(name string) Handler {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.handlers[name]
}

// requeue puts a failed job back on the queue for another attempt. The job
// keeps its pending slot.
func (wp *WorkerPool) requeue(job JobParams) bool {
	select {
	case wp.queue <- job:
		return true
	default:
		return false
	}
}

func (wp *WorkerPool) done(job JobParams) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	delete(wp.pending, job.Name)
}
