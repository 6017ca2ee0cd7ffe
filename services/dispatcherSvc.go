package services

import (
	"sync"
	"time"

	"github.com/amine-amaach/uafacade/services/models"
	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxConcurrentRequests bounds outstanding transport requests per session.
	DefaultMaxConcurrentRequests = 16
	DefaultRequestTimeout        = 30 * time.Second
)

// Dispatcher runs asynchronous operations on a bounded worker pool.
type Dispatcher struct {
	mu     sync.RWMutex
	pool   *workerpool.WorkerPool
	closed bool
	log    *logrus.Logger
}

func NewDispatcher(maxWorkers int, log *logrus.Logger) *Dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxConcurrentRequests
	}
	log.WithField("Max Workers", maxWorkers).Debugln("Starting dispatcher 🔔")
	return &Dispatcher{
		pool: workerpool.New(maxWorkers),
		log:  log,
	}
}

func (d *Dispatcher) submit(task func()) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return models.ErrSessionClosed
	}
	d.pool.Submit(task)
	return nil
}

// Pending is the number of queued tasks not yet picked up by a worker.
func (d *Dispatcher) Pending() int {
	return d.pool.WaitingQueueSize()
}

// Close waits for queued tasks to finish and rejects new ones.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	d.pool.StopWait()
	d.log.Debugln("Dispatcher stopped ✅")
}
