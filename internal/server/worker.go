package server

import (
	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"
)

// taskChanSize bounds how many accepted connections may be queued for a
// worker before Accept blocks.
const taskChanSize = 100

// WorkerFunction processes one queued task. A returned error is logged by the
// worker, which then goes on to the next task.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool runs a fixed number of goroutines, each pulling tasks off a
// shared channel and running them through a single WorkerFunction.
type WorkerPool struct {
	n     int
	tasks chan any
	log   zerolog.Logger
}

// NewWorkerPool constructs a pool of size workers.
func NewWorkerPool(size int, logger zerolog.Logger) WorkerPool {
	return WorkerPool{
		tasks: make(chan any, taskChanSize),
		n:     size,
		log:   logger,
	}
}

// AddTask enqueues task for a worker to pick up.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

// Setup starts pool.n worker goroutines under t, each running work against
// tasks pulled from the pool's queue until t is dying.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	pool.log.Info().Int("workers", pool.n).Msg("starting worker pool")
	for i := 0; i < pool.n; i++ {
		t.Go(func() error {
			return pool.worker(t, work)
		})
	}
}

// worker repeatedly pulls a task and runs work against it until t is dying.
// Unlike a single-task worker, it loops for the lifetime of the tomb so the
// pool keeps exactly pool.n live goroutines rather than spawning one per
// task.
func (pool *WorkerPool) worker(t *tomb.Tomb, work WorkerFunction) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-pool.tasks:
			if err := work(t, task); err != nil {
				pool.log.Error().Err(err).Msg("worker task failed")
			}
		}
	}
}
