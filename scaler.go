package qlearn

import (
	"math"
	"time"

	"github.com/theapemachine/errnie"
)

// ScalerConfig controls when the pool grows.
type ScalerConfig struct {
	TargetLoad       float64
	ScaleUpThreshold float64
	Cooldown         time.Duration
}

/*
Scaler grows the pool toward maxWorkers while the queue is deep. Workers
are never retired: a training run keeps the queue busy until it ends and
the pool is closed with it.
*/
type Scaler struct {
	pool             *Q
	minWorkers       int
	maxWorkers       int
	targetLoad       float64
	scaleUpThreshold float64
	cooldown         time.Duration
	done             chan struct{}
}

func NewScaler(q *Q, minWorkers, maxWorkers int, config *ScalerConfig) *Scaler {
	s := &Scaler{
		pool:             q,
		minWorkers:       minWorkers,
		maxWorkers:       maxWorkers,
		targetLoad:       config.TargetLoad,
		scaleUpThreshold: config.ScaleUpThreshold,
		cooldown:         config.Cooldown,
		done:             make(chan struct{}),
	}

	if maxWorkers > minWorkers {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			s.run()
		}()
	}
	return s
}

func (s *Scaler) run() {
	ticker := time.NewTicker(s.cooldown)
	defer ticker.Stop()

	for {
		select {
		case <-s.pool.ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.evaluate()
		}
	}
}

func (s *Scaler) evaluate() {
	queued := len(s.pool.jobs)
	snap := s.pool.metrics.Snapshot()
	if snap.WorkerCount == 0 {
		return
	}

	currentLoad := float64(queued) / float64(snap.WorkerCount)
	if currentLoad <= s.scaleUpThreshold || snap.WorkerCount >= s.maxWorkers {
		return
	}

	needed := int(math.Ceil(float64(queued) / s.targetLoad))
	toAdd := min(needed-snap.WorkerCount, s.maxWorkers-snap.WorkerCount)
	for i := 0; i < toAdd; i++ {
		s.pool.startWorker()
	}

	s.pool.metrics.mu.Lock()
	s.pool.metrics.LastScale = time.Now()
	s.pool.metrics.mu.Unlock()
	errnie.Info("evaluate - load %.2f, added %d workers", currentLoad, toAdd)
}

// Stop halts scaling; it is safe to call more than once.
func (s *Scaler) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
