package qlearn

import (
	"context"
	"time"
)

// Job is one circuit evaluation handed to the pool.
type Job struct {
	ID        string
	Fn        func(ctx context.Context) (float64, error)
	StartTime time.Time

	result chan Result
}

// Result carries a job's value back to whoever scheduled it.
type Result struct {
	ID        string
	Value     float64
	Error     error
	CreatedAt time.Time
}

func failed(id string, err error) chan Result {
	ch := make(chan Result, 1)
	ch <- Result{ID: id, Error: err, CreatedAt: time.Now()}
	close(ch)
	return ch
}
