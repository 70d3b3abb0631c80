package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/yudistirasd/baileys-api/internal/constants"
	"github.com/yudistirasd/baileys-api/pkg/wa/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Status marks an outcome event as a success or a failure report.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Event is one notification on the process-wide sink: either a state change
// that succeeded (Payload set) or an error report (Message set), always
// tagged with the session that produced it.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Kind       types.EventKind `json:"event"`
	SessionID  string          `json:"sessionId"`
	Payload    interface{}     `json:"payload,omitempty"`
	Status     Status          `json:"status"`
	Message    string          `json:"message,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// OK builds a success outcome event.
func OK(kind types.EventKind, sessionID string, payload interface{}) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		SessionID:  sessionID,
		Payload:    payload,
		Status:     StatusOK,
		OccurredAt: time.Now().UTC(),
	}
}

// Errorf builds an error outcome event. The template is the fixed
// per-operation prefix; err supplies the human-readable cause.
func Errorf(kind types.EventKind, sessionID, template string, err error) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		SessionID:  sessionID,
		Status:     StatusError,
		Message:    fmt.Sprintf("%s: %v", template, err),
		OccurredAt: time.Now().UTC(),
	}
}

// HandlerFunc consumes events delivered synchronously by the bus.
type HandlerFunc func(Event)

type subscriber struct {
	id    uuid.UUID
	kinds map[types.EventKind]struct{} // empty matches every kind
	fn    HandlerFunc

	// mu orders channel sends against close: Publish holds no bus lock
	// while delivering, so an unsubscribe may run concurrently.
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (s *subscriber) matches(kind types.EventKind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// send delivers without blocking. Returns false only when the event was
// dropped because the buffer is full; delivery to an already-closed
// subscriber is a silent no-op.
func (s *subscriber) send(evt Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- evt:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ch == nil {
		return
	}
	s.closed = true
	close(s.ch)
}

// Bus is the process-wide event sink. Channel subscribers get buffered
// asynchronous delivery and are dropped-to when slow; func subscribers run
// synchronously in the publisher's goroutine.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*subscriber
	logger *logrus.Logger
	closed bool
}

func NewBus(logger *logrus.Logger) *Bus {
	if logger == nil {
		logger = logrus.New()
	}
	return &Bus{
		subs:   make(map[uuid.UUID]*subscriber),
		logger: logger,
	}
}

// Publish fans the event out to every matching subscriber. Never blocks:
// a full subscriber channel drops the event with a warning.
func (b *Bus) Publish(evt Event) {
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	if evt.Status == "" {
		evt.Status = StatusOK
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	matched := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.matches(evt.Kind) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		if sub.fn != nil {
			sub.fn(evt)
			continue
		}
		if !sub.send(evt) {
			b.logger.WithFields(logrus.Fields{
				"subscriber": sub.id,
				"event":      evt.Kind,
				"session":    evt.SessionID,
			}).Warn("Dropping event for slow subscriber")
		}
	}
}

// Subscribe registers a channel subscriber for the given kinds (all kinds
// when none given). The returned function removes the subscription and
// closes the channel.
func (b *Bus) Subscribe(kinds ...types.EventKind) (<-chan Event, func()) {
	sub := &subscriber{
		id:    uuid.New(),
		kinds: kindSet(kinds),
		ch:    make(chan Event, constants.DefaultSubscriberBuffer),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	return sub.ch, func() { b.remove(sub.id) }
}

// SubscribeFunc registers a synchronous callback subscriber.
func (b *Bus) SubscribeFunc(fn HandlerFunc, kinds ...types.EventKind) func() {
	sub := &subscriber{
		id:    uuid.New(),
		kinds: kindSet(kinds),
		fn:    fn,
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	return func() { b.remove(sub.id) }
}

func (b *Bus) remove(id uuid.UUID) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		sub.close()
	}
}

// Close removes all subscribers and closes their channels. Publishing after
// Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uuid.UUID]*subscriber)
	b.closed = true
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

// SubscriberCount reports the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func kindSet(kinds []types.EventKind) map[types.EventKind]struct{} {
	set := make(map[types.EventKind]struct{}, len(kinds))
	for _, kind := range kinds {
		set[kind] = struct{}{}
	}
	return set
}
