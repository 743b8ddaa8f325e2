package qlearn

import (
	"time"

	"github.com/pkg/errors"
	"github.com/theapemachine/errnie"
)

// Worker evaluates jobs handed to it by the pool's dispatcher.
type Worker struct {
	pool *Q
	jobs chan Job
}

func (w *Worker) run() {
	for {
		// Offer ourselves to the dispatcher.
		select {
		case w.pool.workers <- w.jobs:
		case <-w.pool.ctx.Done():
			return
		}

		select {
		case job := <-w.jobs:
			value, err := w.processJob(job)
			job.result <- Result{ID: job.ID, Value: value, Error: err, CreatedAt: time.Now()}
		case <-w.pool.ctx.Done():
			return
		}
	}
}

func (w *Worker) processJob(job Job) (value float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("job %s panicked: %v", job.ID, r)
		}
		w.pool.metrics.recordJobExecution(job.StartTime, err == nil)
	}()

	value, err = job.Fn(w.pool.ctx)
	if err != nil {
		errnie.Info("processJob - job %s failed: %v", job.ID, err)
	}
	return value, err
}
