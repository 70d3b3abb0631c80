package wa

import (
	"context"
	"sync"

	"github.com/yudistirasd/baileys-api/pkg/wa/types"
)

type handlerKey struct {
	kind  types.EventKind
	owner string
}

// Feed is an in-process implementation of types.EventFeed. Protocol-client
// adapters embed it and call Dispatch as events arrive; registrations are
// keyed by (kind, owner) so unrelated components never clobber each other.
type Feed struct {
	mu       sync.RWMutex
	handlers map[handlerKey]types.HandlerFunc
}

func NewFeed() *Feed {
	return &Feed{
		handlers: make(map[handlerKey]types.HandlerFunc),
	}
}

func (f *Feed) On(kind types.EventKind, owner string, fn types.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[handlerKey{kind: kind, owner: owner}] = fn
}

func (f *Feed) Off(kind types.EventKind, owner string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, handlerKey{kind: kind, owner: owner})
}

// Dispatch delivers one event to every handler registered for its kind, in
// the caller's goroutine. Delivery order across handlers is unspecified;
// delivery order across Dispatch calls follows the caller.
func (f *Feed) Dispatch(ctx context.Context, kind types.EventKind, payload interface{}) {
	f.mu.RLock()
	fns := make([]types.HandlerFunc, 0, 1)
	for key, fn := range f.handlers {
		if key.kind == kind {
			fns = append(fns, fn)
		}
	}
	f.mu.RUnlock()

	for _, fn := range fns {
		fn(ctx, payload)
	}
}

// HandlerCount returns the number of registered handlers, for tests and
// diagnostics.
func (f *Feed) HandlerCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.handlers)
}
