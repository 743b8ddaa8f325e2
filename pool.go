package qlearn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/theapemachine/errnie"
)

/*
Q is the worker pool that evaluates circuits. Gradient estimation needs
two circuit runs per trainable parameter per sample, and those runs are
independent, so they fan out over the pool and fan back in by position.
*/
type Q struct {
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	workers    chan chan Job
	jobs       chan Job
	scaler     *Scaler
	metrics    *Metrics
	workerMu   sync.Mutex
	workerList []*Worker
	config     *PoolConfig
}

// NewQ creates a pool with minWorkers running and room to grow to maxWorkers.
func NewQ(ctx context.Context, minWorkers, maxWorkers int, config *PoolConfig) *Q {
	if minWorkers < 1 {
		minWorkers = 1
	}
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}

	ctx, cancel := context.WithCancel(ctx)
	q := &Q{
		ctx:        ctx,
		cancel:     cancel,
		workerList: make([]*Worker, 0, maxWorkers),
		jobs:       make(chan Job, maxWorkers*10),
		workers:    make(chan chan Job, maxWorkers),
		metrics:    NewMetrics(),
		config:     config,
	}

	for i := 0; i < minWorkers; i++ {
		q.startWorker()
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.manage()
	}()

	q.scaler = NewScaler(q, minWorkers, maxWorkers, &ScalerConfig{
		TargetLoad:       2.0,
		ScaleUpThreshold: 4.0,
		Cooldown:         100 * time.Millisecond,
	})

	return q
}

func (q *Q) manage() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			select {
			case <-q.ctx.Done():
				job.result <- Result{ID: job.ID, Error: q.ctx.Err(), CreatedAt: time.Now()}
				return
			case workerChan := <-q.workers:
				select {
				case workerChan <- job:
				case <-q.ctx.Done():
					job.result <- Result{ID: job.ID, Error: q.ctx.Err(), CreatedAt: time.Now()}
					return
				}
			case <-time.After(q.getSchedulingTimeout()):
				errnie.Info("manage - no available workers for job %s", job.ID)
				q.metrics.recordSchedulingFailure()
				job.result <- Result{
					ID:        job.ID,
					Error:     errors.Errorf("no available workers for job %s", job.ID),
					CreatedAt: time.Now(),
				}
			}
		}
	}
}

// Schedule queues fn and returns a channel that receives exactly one Result.
func (q *Q) Schedule(id string, fn func(ctx context.Context) (float64, error)) chan Result {
	if q.ctx.Err() != nil {
		return failed(id, ErrPoolClosed)
	}

	job := Job{
		ID:        id,
		Fn:        fn,
		StartTime: time.Now(),
		result:    make(chan Result, 1),
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.getSchedulingTimeout())
	defer cancel()

	select {
	case q.jobs <- job:
		q.metrics.setQueueSize(len(q.jobs))
		return job.result
	case <-ctx.Done():
		q.metrics.recordSchedulingFailure()
		return failed(id, errors.Wrap(ctx.Err(), "job scheduling timeout"))
	}
}

/*
Map runs every fn on the pool and returns their values in input order.
Each fn sees a context that ends with either ctx or the pool, so jobs still
queued after a cancellation return without doing their work. A cancelled
ctx always wins over results that are already waiting.
*/
func (q *Q) Map(ctx context.Context, fns []func(ctx context.Context) (float64, error)) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(q.ctx, cancel)
	defer stop()

	batch := uuid.NewString()
	chans := make([]chan Result, len(fns))
	for i, fn := range fns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chans[i] = q.Schedule(fmt.Sprintf("%s-%d", batch, i), func(context.Context) (float64, error) {
			if err := jobCtx.Err(); err != nil {
				return 0, err
			}
			return fn(jobCtx)
		})
	}

	out := make([]float64, len(fns))
	var firstErr error
	for i, ch := range chans {
		var res Result
		select {
		case res = <-ch:
		case <-ctx.Done():
		case <-q.ctx.Done():
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if q.ctx.Err() != nil {
			return nil, ErrPoolClosed
		}
		if res.Error != nil && firstErr == nil {
			firstErr = errors.Wrapf(res.Error, "job %s", res.ID)
		}
		out[i] = res.Value
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (q *Q) Metrics() *Metrics {
	return q.metrics
}

func (q *Q) startWorker() {
	worker := &Worker{
		pool: q,
		jobs: make(chan Job),
	}
	q.workerMu.Lock()
	q.workerList = append(q.workerList, worker)
	q.workerMu.Unlock()

	count := q.metrics.addWorker()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		worker.run()
	}()
	errnie.Info("startWorker - total workers: %d", count)
}

func (q *Q) getSchedulingTimeout() time.Duration {
	if q.config != nil && q.config.SchedulingTimeout > 0 {
		return q.config.SchedulingTimeout
	}
	return 5 * time.Second
}

// Close stops the pool and waits for every worker to return.
func (q *Q) Close() {
	if q == nil {
		return
	}

	q.cancel()
	if q.scaler != nil {
		q.scaler.Stop()
	}
	q.wg.Wait()

	q.workerMu.Lock()
	q.workerList = nil
	q.workerMu.Unlock()

	errnie.Info("Close - pool closed after %d jobs", q.metrics.Snapshot().JobCount)
}
