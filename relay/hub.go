package relay

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultNotificationCapacity is the ring size used when none is configured.
const DefaultNotificationCapacity = 1024

// Subscription is a receive handle for pool notifications.
type Subscription interface {
	// Recv blocks until the next notification. It returns *LaggedError when
	// entries were skipped, ErrSubscriptionClosed after Close, ErrPoolClosed
	// once the hub shut down and drained, or ctx.Err().
	Recv(ctx context.Context) (Notification, error)
	// Close releases the subscription. Pending and future Recv calls return
	// ErrSubscriptionClosed.
	Close()
}

// Hub fans notifications out to any number of receivers. Every receiver sees
// each notification published after it subscribed, in publish order. The hub
// retains the last capacity notifications; a receiver further behind than that
// observes a LaggedError and resumes at the oldest retained entry.
type Hub struct {
	mu        sync.Mutex
	buf       []Notification
	head      uint64 // sequence of the next publish
	wake      chan struct{}
	closed    bool
	receivers int
}

// NewHub creates a hub retaining capacity notifications.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultNotificationCapacity
	}
	return &Hub{
		buf:  make([]Notification, capacity),
		wake: make(chan struct{}),
	}
}

// Publish appends n and wakes waiting receivers. It returns the number of
// live receivers. Publishing on a closed hub is a no-op returning 0.
func (h *Hub) Publish(n Notification) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0
	}

	h.buf[h.head%uint64(len(h.buf))] = n
	h.head++
	close(h.wake)
	h.wake = make(chan struct{})

	return h.receivers
}

// Subscribe returns a receiver positioned after everything already published.
func (h *Hub) Subscribe() *Receiver {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.receivers++
	return &Receiver{
		hub:  h,
		next: h.head,
		done: make(chan struct{}),
	}
}

// ReceiverCount returns the number of open receivers.
func (h *Hub) ReceiverCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.receivers
}

// Close shuts the hub down. Receivers drain what is buffered for them and
// then get ErrPoolClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	close(h.wake)

	logrus.WithFields(logrus.Fields{
		"function":  "Hub.Close",
		"receivers": h.receivers,
	}).Debug("Notification hub closed")
}

// Receiver is one independent subscription to a Hub. A Receiver must be
// consumed by one goroutine at a time.
type Receiver struct {
	hub       *Hub
	next      uint64
	done      chan struct{}
	closeOnce sync.Once
}

// Recv implements Subscription.
func (r *Receiver) Recv(ctx context.Context) (Notification, error) {
	h := r.hub
	for {
		select {
		case <-r.done:
			return Notification{}, ErrSubscriptionClosed
		default:
		}

		h.mu.Lock()
		size := uint64(len(h.buf))
		var oldest uint64
		if h.head > size {
			oldest = h.head - size
		}

		if r.next < oldest {
			skipped := oldest - r.next
			r.next = oldest
			h.mu.Unlock()
			return Notification{}, &LaggedError{Skipped: skipped}
		}
		if r.next < h.head {
			n := h.buf[r.next%size]
			r.next++
			h.mu.Unlock()
			return n, nil
		}
		if h.closed {
			h.mu.Unlock()
			return Notification{}, ErrPoolClosed
		}
		wake := h.wake
		h.mu.Unlock()

		select {
		case <-wake:
		case <-r.done:
			return Notification{}, ErrSubscriptionClosed
		case <-ctx.Done():
			return Notification{}, ctx.Err()
		}
	}
}

// Close implements Subscription.
func (r *Receiver) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
		r.hub.mu.Lock()
		r.hub.receivers--
		r.hub.mu.Unlock()
	})
}
