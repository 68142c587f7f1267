package work

import (
	"fmt"

	"github.com/Daskott/phonebook/colors"
	"github.com/Daskott/phonebook/server/logger"
	"github.com/google/uuid"
)

// MAX_FAILS is the number of attempts after which a failing job is dropped
const MAX_FAILS = 4

var logg = logger.NewLogger()

type JobParams struct {
	Name    string
	Handler string
	Args    map[string]interface{}

	fails int
}

type Handler func(map[string]interface{}) error

type worker struct {
	id       string
	pool     *WorkerPool
	stopChan chan struct{}
	doneChan chan struct{}
}

func newWorker(pool *WorkerPool) *worker {
	return &worker{
		id:   uuid.NewString()[:8],
		pool: pool,
	}
}

// start starts the worker loop that pulls jobs from the queue & process them
func (w *worker) start() {
	w.stopChan = make(chan struct{})
	w.doneChan = make(chan struct{})
	go w.loop()
}

// stop blocks until the job in progress, if any, has finished
func (w *worker) stop() {
	close(w.stopChan)
	<-w.doneChan
}

func (w *worker) loop() {
	defer close(w.doneChan)

	w.logInfof("Starting worker")
	for {
		select {
		case <-w.stopChan:
			w.logInfof("Stopping worker")
			return
		case job := <-w.pool.queue:
			w.processJob(job)
		}
	}
}

func (w *worker) processJob(job JobParams) {
	handler := w.pool.handler(job.Handler)

	err := handler(job.Args)
	if err == nil {
		w.pool.done(job)
		w.logInfof("job %v completed", job.Name)
		return
	}

	job.fails++
	w.logError(fmt.Errorf("job %v failed (attempt %v/%v): %v", job.Name, job.fails, MAX_FAILS, err))

	if job.fails >= MAX_FAILS || !w.pool.requeue(job) {
		w.pool.done(job)
		w.logError(fmt.Errorf("job %v is dead", job.Name))
	}
}

func (w *worker) logInfof(template string, args ...interface{}) {
	prefix := colors.Yellow(fmt.Sprintf("[worker %v] ", w.id))
	logg.Infof(prefix+template, args...)
}

func (w *worker) logError(err error) {
	prefix := colors.Red(fmt.Sprintf("[worker %v] ", w.id))
	logg.Error(prefix, err)
}
