package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Cheertaboi/storefront-checkout-service/internal/metrics"
)

const defaultSendTimeout = 10 * time.Second

// Dispatcher fans notifications out to a fixed pool of workers over a bounded
// queue. Send never blocks: when the queue is full the notification is dropped
// and counted.
type Dispatcher struct {
	notifier Notifier
	log      *slog.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Notification
	wg     sync.WaitGroup
}

func NewDispatcher(n Notifier, workers, queueSize int, log *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		notifier: n,
		log:      log,
		metrics:  m,
		timeout:  defaultSendTimeout,
		queue:    make(chan Notification, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(idx int) {
			defer d.wg.Done()
			d.work(idx)
		}(i)
	}
	return d
}

func (d *Dispatcher) Send(n Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(n, "dispatcher closed")
		return
	}
	select {
	case d.queue <- n:
	default:
		d.drop(n, "queue full")
	}
}

func (d *Dispatcher) drop(n Notification, reason string) {
	d.log.Warn("notification dropped", "type", n.Type, "user_id", n.UserID, "reason", reason)
	d.metrics.Notifications.WithLabelValues(string(n.Type), "dropped").Inc()
}

func (d *Dispatcher) work(idx int) {
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.notifier.Notify(ctx, n)
		cancel()
		if err != nil {
			d.log.Error("notification failed", "worker", idx, "type", n.Type, "user_id", n.UserID, "error", err)
			d.metrics.Notifications.WithLabelValues(string(n.Type), "failed").Inc()
			continue
		}
		d.metrics.Notifications.WithLabelValues(string(n.Type), "sent").Inc()
	}
}

// Close stops accepting notifications and waits until the queued ones have
// been handed to the notifier.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}
