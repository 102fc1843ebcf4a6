// Package worker runs delivery jobs in-process on a fixed number of goroutines.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
)

// ErrPoolClosed is returned by Submit after Close has been called
var ErrPoolClosed = errors.New("worker pool is closed")

// Handler processes one delivery job
type Handler func(ctx context.Context, job models.DeliveryJob) error

// Pool is a bounded worker pool. Submit blocks once the buffer is full,
// which pushes back on the dispatcher instead of growing goroutines.
type Pool struct {
	jobs    chan models.DeliveryJob
	handler Handler
	logger  logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines reading from a buffer of queueSize jobs
func NewPool(workers, queueSize int, handler Handler, logger logrus.FieldLogger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:    make(chan models.DeliveryJob, queueSize),
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run(i)
	}

	logger.WithFields(logrus.Fields{
		"workers":    workers,
		"queue_size": queueSize,
	}).Info("worker pool started")

	return p
}

func (p *Pool) run(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		err := p.handler(p.ctx, job)
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"worker":      id,
				"campaign_id": job.CampaignID,
				"customer_id": job.CustomerID,
			}).WithError(err).Error("delivery job failed")
		}
	}
}

// Submit enqueues a job, blocking while the buffer is full
func (p *Pool) Submit(ctx context.Context, job models.DeliveryJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// Close stops accepting jobs and waits for queued jobs to finish.
// If ctx expires first, in-flight handlers are cancelled.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("worker pool drained")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
