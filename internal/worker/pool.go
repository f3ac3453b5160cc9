package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs submitted jobs on a fixed number of workers.
// Results are drained as they arrive, so Submit never waits on Wait.
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	collected  []Result
	wg         sync.WaitGroup
	collector  sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	mu          sync.Mutex
	closed      bool
	queueClosed bool
}

// NewPool creates a pool whose jobs run under ctx
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	p.collector.Add(1)
	go func() {
		defer p.collector.Done()
		for r := range p.results {
			p.collected = append(p.collected, r)
		}
	}()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

// Submit queues a job. It reports false once the pool is cancelled, shut down or waited on.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Wait closes the queue, waits for running jobs and returns every result
func (p *Pool) Wait() []Result {
	p.markClosed(true)
	p.wg.Wait()
	p.closeResults()
	p.collector.Wait()
	p.cancelFunc()
	return p.collected
}

// Shutdown cancels outstanding jobs and waits for workers to exit
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.markClosed(false)
	p.wg.Wait()
	p.closeResults()
	p.collector.Wait()
}

// markClosed stops further submissions. The queue is only closed under mu
// so a concurrent Submit never sends on a closed channel.
func (p *Pool) markClosed(closeQueue bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if closeQueue && !p.queueClosed {
		close(p.jobQueue)
		p.queueClosed = true
	}
	p.closed = true
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
