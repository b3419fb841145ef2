package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull    = errors.New("notification queue full")
	ErrQueueStopped = errors.New("notification queue stopped")
)

// Queue hands messages to a background worker so a slow or failing sink
// never holds up a case transition. Delivery errors are logged.
type Queue struct {
	next    Notifier
	timeout time.Duration
	ch      chan Message
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	// mu orders sends against Stop: once stopped is set under the write
	// lock, no send can land after the worker's final drain.
	mu      sync.RWMutex
	stopped bool
}

func NewQueue(next Notifier, size int) *Queue {
	if size <= 0 {
		size = 1
	}
	q := &Queue{
		next:    next,
		timeout: 5 * time.Second,
		ch:      make(chan Message, size),
		done:    make(chan struct{}),
	}
	q.wg.Add(1)
	go q.loop()
	return q
}

// Notify enqueues msg without blocking.
func (q *Queue) Notify(_ context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return ErrQueueStopped
	}

	select {
	case q.ch <- msg:
		return nil
	default:
		slog.Error("notification dropped", "error", ErrQueueFull,
			"case_id", msg.CaseID.String(), "case_kind", string(msg.CaseKind), "user_id", msg.Recipient.String())
		return ErrQueueFull
	}
}

func (q *Queue) loop() {
	defer q.wg.Done()
	for {
		select {
		case msg := <-q.ch:
			q.deliver(msg)
		case <-q.done:
			for {
				select {
				case msg := <-q.ch:
					q.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.next.Notify(ctx, msg); err != nil {
		slog.Error("notification delivery failed", "error", err,
			"case_id", msg.CaseID.String(), "case_kind", string(msg.CaseKind), "user_id", msg.Recipient.String())
	}
}

// Stop delivers what is already queued and waits for the worker to exit.
func (q *Queue) Stop() {
	q.once.Do(func() {
		q.mu.Lock()
		q.stopped = true
		close(q.done)
		q.mu.Unlock()
	})
	q.wg.Wait()
}
