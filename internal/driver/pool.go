package driver

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

var ErrPoolClosed = errors.New("driver: pool closed")

// Pool is a fixed set of workers fed from a bounded queue. It is created
// once per process and closed at exit.
type Pool struct {
	queue   chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	workers int
	hub     *sentry.Hub
	log     zerolog.Logger
}

// NewPool starts workers goroutines, or one per CPU when workers <= 0.
func NewPool(workers int, log zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		queue:   make(chan func(), workers),
		workers: workers,
		hub:     sentry.CurrentHub().Clone(),
		log:     log,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p
}

func (p *Pool) Workers() int { return p.workers }

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for f := range p.queue {
		p.call(id, f)
	}
}

// call runs f, keeping the worker alive if f panics.
func (p *Pool) call(id int, f func()) {
	defer func() {
		if err := recover(); err != nil {
			p.hub.Recover(err)
			p.log.Error().Int("worker", id).Str("panic", fmt.Sprint(err)).Msg("recovered panic in worker")
		}
	}()
	f()
}

// Submit queues f, blocking while the queue is full.
func (p *Pool) Submit(f func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.queue <- f
	return nil
}

// Close stops accepting work and waits for queued work to finish. It is safe
// to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
