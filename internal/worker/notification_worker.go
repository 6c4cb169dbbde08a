package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lethalgem/accountability-app/internal/notify"
	"github.com/lethalgem/accountability-app/internal/observability"
)

const dequeueRetryDelay = time.Second

// NotificationWorker delivers queued notifications. Each message gets a single
// send attempt; a failed send is logged and dropped.
type NotificationWorker struct {
	queue   notify.Queue
	sender  notify.Sender
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewNotificationWorker builds a worker.
func NewNotificationWorker(queue notify.Queue, sender notify.Sender, logger *zap.Logger, metrics *observability.Metrics) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{queue: queue, sender: sender, logger: logger, metrics: metrics}
}

// Run consumes the queue until ctx is cancelled.
func (w *NotificationWorker) Run(ctx context.Context) {
	w.logger.Info("notification worker started")
	defer w.logger.Info("notification worker stopped")

	for {
		n, err := w.queue.Dequeue(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			w.logger.Warn("dequeue notification", zap.Error(err))
			if !sleep(ctx, dequeueRetryDelay) {
				return
			}
			continue
		}
		if n == nil {
			continue
		}
		w.deliver(ctx, *n)
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, n notify.Notification) {
	err := w.sender.Send(ctx, n)
	w.metrics.RecordNotification(string(n.Kind), err == nil)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.logger.Warn("notification delivery failed",
			zap.String("id", n.ID),
			zap.String("kind", string(n.Kind)),
			zap.String("to", n.To),
			zap.Error(err))
		return
	}
	w.logger.Debug("notification delivered", zap.String("id", n.ID), zap.String("kind", string(n.Kind)))
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
