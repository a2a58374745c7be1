package worker

import (
	"context"
	"fmt"
	"sync"

	"finalshot/src/logutil"
)

// Job is one unit of capture work. It runs on a worker goroutine.
type Job func(ctx context.Context) error

// ResultCallback is invoked when a job finishes (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(name string, err error)

// Pool is a fixed-size worker pool with an unbuffered hand-off: a job is
// accepted only when a worker is idle and waiting, so nothing ever queues
// behind a running capture.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
}

type job struct {
	ctx  context.Context
	name string
	run  Job
	cb   ResultCallback
}

// New creates a worker pool. Size defaults to 1 when size<=0.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{jobs: make(chan job)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				err := execute(j)
				if j.cb != nil {
					j.cb(j.name, err)
				}
			}
		}()
	}
}

func execute(j job) (err error) {
	log := logutil.WithComponent("worker")
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("job", j.name).Msg("capture job panicked")
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
		}
	}()
	log.Debug().Str("job", j.name).Msg("starting job")
	err = j.run(j.ctx)
	log.Debug().Str("job", j.name).AnErr("err", err).Msg("job completed")
	return err
}

// Submit hands a job to an idle worker. Returns false if every worker is busy.
func (p *Pool) Submit(ctx context.Context, name string, run Job, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, name: name, run: run, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
