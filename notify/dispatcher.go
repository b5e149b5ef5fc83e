package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// deliveryTimeout bounds one message's delivery, independent of the request that queued it
const deliveryTimeout = 2 * time.Minute

// AsyncDispatcher hands messages to a fixed pool of workers through a bounded queue.
// Messages are dropped with an error log when the queue is full.
type AsyncDispatcher struct {
	deliverer Deliverer
	queue     chan Message
	workers   int
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewAsyncDispatcher returns a dispatcher with workers goroutines and a queue of buffer messages
func NewAsyncDispatcher(d Deliverer, workers, buffer int) *AsyncDispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &AsyncDispatcher{
		deliverer: d,
		queue:     make(chan Message, buffer),
		workers:   workers,
	}
}

// Start launches the workers
func (a *AsyncDispatcher) Start() {
	a.once.Do(func() {
		for i := 0; i < a.workers; i++ {
			a.wg.Add(1)
			go a.work()
		}
	})
}

// Dispatch queues msg without blocking
func (a *AsyncDispatcher) Dispatch(_ context.Context, msg Message) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		zap.S().Errorw("dispatcher closed, dropping notification", "type", msg.Type)
		return
	}
	select {
	case a.queue <- msg:
	default:
		droppedTotal.Inc()
		zap.S().Errorw("notification queue full, dropping notification", "type", msg.Type, "title", msg.Title)
	}
}

func (a *AsyncDispatcher) work() {
	defer a.wg.Done()
	for msg := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := a.deliverer.Deliver(ctx, msg); err != nil {
			zap.S().Errorw("notification delivery failed", "type", msg.Type, "error", err)
		}
		cancel()
	}
}

// Close stops accepting messages and waits for queued ones to be delivered or ctx to end
func (a *AsyncDispatcher) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
