package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"postdesk/internal/models"
	"postdesk/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ToastChannel is the Redis channel toasts are mirrored to.
const ToastChannel = "notifications:toast"

// Notifier provides helpers to publish toasts into Redis channels
type Notifier struct {
	rdb    *redis.Client
	origin string
}

// toastMessage is the wire form of a toast. Origin names the publishing Notifier.
type toastMessage struct {
	Origin string `json:"origin"`
	models.Toast
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, origin: uuid.NewString()}
}

// PublishToast sends toast as JSON on ToastChannel. A nil client is a no-op.
func (n *Notifier) PublishToast(ctx context.Context, toast models.Toast) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(toastMessage{Origin: n.origin, Toast: toast})
	if err != nil {
		return fmt.Errorf("marshal toast: %w", err)
	}
	return n.rdb.Publish(ctx, ToastChannel, string(payload)).Err()
}

// StartToastSubscriber subscribes to ToastChannel and calls onToast for each
// decodable message until ctx is cancelled. It returns once the subscription
// is confirmed by the server.
func (n *Notifier) StartToastSubscriber(ctx context.Context, onToast func(models.Toast)) error {
	return n.subscribe(ctx, true, onToast)
}

// MirrorInto shows toasts published by other Notifiers on bus until ctx is
// cancelled. Toasts this Notifier published are skipped.
func (n *Notifier) MirrorInto(ctx context.Context, bus *Bus) error {
	return n.subscribe(ctx, false, func(toast models.Toast) {
		bus.Show(ctx, toast)
	})
}

func (n *Notifier) subscribe(ctx context.Context, includeOwn bool, onToast func(models.Toast)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, ToastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", ToastChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var in toastMessage
				if err := json.Unmarshal([]byte(msg.Payload), &in); err != nil {
					observability.GlobalLogger.Warn("dropping malformed toast",
						slog.String("channel", msg.Channel),
						slog.String("error", err.Error()),
					)
					continue
				}
				if !includeOwn && in.Origin == n.origin {
					continue
				}
				toast := in.Toast
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("PANIC in ToastSubscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onToast(toast)
				}()
			}
		}
	}()

	return nil
}
