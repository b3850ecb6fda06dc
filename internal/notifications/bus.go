// Package notifications holds the single-slot toast bus and its optional
// Redis fan-out.
package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"postdesk/internal/models"
	"postdesk/internal/observability"

	"github.com/google/uuid"
)

// DefaultDuration is how long a toast stays up before it dismisses itself.
const DefaultDuration = 2400 * time.Millisecond

// Scheduler runs fn once after d. The returned stop function cancels it and
// reports whether the call prevented fn from running.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// TimeScheduler schedules on the runtime timer.
type TimeScheduler struct{}

func (TimeScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// Publisher receives every toast the bus shows.
type Publisher interface {
	PublishToast(ctx context.Context, toast models.Toast) error
}

// Bus holds at most one active toast. A new toast replaces the old one and
// restarts the auto-dismiss timer.
type Bus struct {
	duration  time.Duration
	scheduler Scheduler
	newID     func() string
	publisher Publisher

	mu      sync.Mutex
	current *models.Toast
	stop    func() bool
	version uint64

	// pubMu orders deliveries; delivered is the newest slot version handed out.
	pubMu     sync.Mutex
	delivered uint64

	subMu   sync.Mutex
	subs    map[int]func(*models.Toast)
	nextSub int
}

// BusOption customizes a Bus.
type BusOption func(*Bus)

// WithDuration overrides the auto-dismiss delay. Non-positive values are ignored.
func WithDuration(d time.Duration) BusOption {
	return func(b *Bus) {
		if d > 0 {
			b.duration = d
		}
	}
}

// WithScheduler replaces the timer implementation.
func WithScheduler(s Scheduler) BusOption {
	return func(b *Bus) { b.scheduler = s }
}

// WithIDs replaces the toast id generator.
func WithIDs(newID func() string) BusOption {
	return func(b *Bus) { b.newID = newID }
}

// WithPublisher mirrors every toast to p.
func WithPublisher(p Publisher) BusOption {
	return func(b *Bus) { b.publisher = p }
}

// NewBus returns an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		duration:  DefaultDuration,
		scheduler: TimeScheduler{},
		newID:     uuid.NewString,
		subs:      make(map[int]func(*models.Toast)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Notify shows a toast. Unknown tones fall back to success.
func (b *Bus) Notify(message string, tone models.Tone) models.Toast {
	return b.NotifyContext(context.Background(), message, tone)
}

// NotifyContext is Notify with a context for the fan-out publish.
func (b *Bus) NotifyContext(ctx context.Context, message string, tone models.Tone) models.Toast {
	if !tone.Valid() {
		tone = models.ToneSuccess
	}
	toast := models.Toast{ID: b.newID(), Message: message, Tone: tone}
	b.show(ctx, toast)

	if b.publisher != nil {
		if err := b.publisher.PublishToast(ctx, toast); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "toast fan-out failed",
				slog.String("toast_id", toast.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return toast
}

// Show puts a toast raised elsewhere into the slot, keeping its id. It is
// not published again.
func (b *Bus) Show(ctx context.Context, toast models.Toast) {
	if !toast.Tone.Valid() {
		toast.Tone = models.ToneSuccess
	}
	b.show(ctx, toast)
}

func (b *Bus) show(ctx context.Context, toast models.Toast) {
	b.mu.Lock()
	if b.stop != nil {
		b.stop()
	}
	shown := toast
	b.current = &shown
	b.stop = b.scheduler.AfterFunc(b.duration, func() { b.DismissToken(toast.ID) })
	b.version++
	version := b.version
	b.mu.Unlock()

	observability.ToastsTotal.WithLabelValues(string(toast.Tone)).Inc()
	observability.GlobalLogger.DebugContext(ctx, "toast shown",
		slog.String("toast_id", toast.ID),
		slog.String("tone", string(toast.Tone)),
		slog.String("correlation_id", observability.ExtractCorrelationID(ctx)),
	)
	b.broadcast(version, &toast)
}

// Dismiss clears the active toast, whichever it is.
func (b *Bus) Dismiss() {
	b.mu.Lock()
	if b.current == nil {
		b.mu.Unlock()
		return
	}
	version := b.clearLocked()
	b.mu.Unlock()
	b.broadcast(version, nil)
}

// DismissToken clears the active toast only if its id is still id. Timers
// go through here so a stale one cannot remove a newer toast.
func (b *Bus) DismissToken(id string) bool {
	b.mu.Lock()
	if b.current == nil || b.current.ID != id {
		b.mu.Unlock()
		return false
	}
	version := b.clearLocked()
	b.mu.Unlock()
	b.broadcast(version, nil)
	return true
}

func (b *Bus) clearLocked() uint64 {
	if b.stop != nil {
		b.stop()
		b.stop = nil
	}
	b.current = nil
	b.version++
	return b.version
}

// Current returns a copy of the active toast, or nil.
func (b *Bus) Current() *models.Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil
	}
	t := *b.current
	return &t
}

// Subscribe registers fn for changes of the slot; nil means cleared. A change
// older than one already delivered is skipped. fn must not call back into the bus.
func (b *Bus) Subscribe(fn func(*models.Toast)) (unsubscribe func()) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	return func() {
		b.subMu.Lock()
		delete(b.subs, id)
		b.subMu.Unlock()
	}
}

func (b *Bus) broadcast(version uint64, toast *models.Toast) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	if version <= b.delivered {
		return
	}
	b.delivered = version

	b.subMu.Lock()
	fns := make([]func(*models.Toast), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.subMu.Unlock()

	for _, fn := range fns {
		if toast == nil {
			fn(nil)
			continue
		}
		t := *toast
		fn(&t)
	}
}
