// Package notify delivers registry notifications to observers. Every notifier
// here is synchronous: Notify returns only once delivery succeeded or failed,
// and a failure aborts the mutation that produced the notification.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"idregistry/internal/access/models"
)

// Notifier matches service.Notifier.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Fanout delivers to each notifier in order and stops at the first error.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n models.Notification) error {
	for _, notifier := range f {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// LogNotifier writes each notification as a structured log line.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n models.Notification) error {
	l.logger.InfoContext(ctx, "registry notification",
		"event", n.Event.Name(),
		"registry_id", n.RegistryID,
		"sequence", n.Sequence,
		"caller", n.Caller.String(),
		"notification_id", n.ID.String(),
	)
	return nil
}

// Recorder keeps notifications in memory in delivery order.
type Recorder struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
	return nil
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder) Notifications() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.notifications...)
}

// Names returns the event names recorded so far, in order.
func (r *Recorder) Names() []models.EventName {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]models.EventName, len(r.notifications))
	for i, n := range r.notifications {
		names[i] = n.Event.Name()
	}
	return names
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = nil
}
