package notify

import (
	"context"
	"errors"
)

// ErrQueueFull is returned by ChannelQueue when its buffer is exhausted.
var ErrQueueFull = errors.New("notification queue full")

// Queue carries rendered notifications from the core to the delivery worker.
// Enqueue is one-way: nothing acknowledges delivery back to the producer.
type Queue interface {
	Enqueue(ctx context.Context, n Notification) error
	// Dequeue blocks until a notification is available or ctx ends.
	// It returns nil, nil when a poll timed out without a message.
	Dequeue(ctx context.Context) (*Notification, error)
}

// ChannelQueue is an in-process Queue backed by a buffered channel.
type ChannelQueue struct {
	ch chan Notification
}

// NewChannelQueue creates a queue holding at most size pending notifications.
func NewChannelQueue(size int) *ChannelQueue {
	if size <= 0 {
		size = 1
	}
	return &ChannelQueue{ch: make(chan Notification, size)}
}

var _ Queue = (*ChannelQueue)(nil)

// Enqueue never blocks; a full buffer drops the notification.
func (q *ChannelQueue) Enqueue(_ context.Context, n Notification) error {
	select {
	case q.ch <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *ChannelQueue) Dequeue(ctx context.Context) (*Notification, error) {
	select {
	case n := <-q.ch:
		return &n, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports the number of pending notifications.
func (q *ChannelQueue) Len() int {
	return len(q.ch)
}
