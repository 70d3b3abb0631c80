package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yudistirasd/baileys-api/internal/events"
	"github.com/yudistirasd/baileys-api/internal/reconciler"
	"github.com/yudistirasd/baileys-api/pkg/wa/types"

	"github.com/sirupsen/logrus"
)

// Session pairs a live protocol-client handle with its per-session
// reconciler. Sessions never share reconciler instances.
type Session struct {
	ID         string
	Client     types.Client
	Reconciler *reconciler.Reconciler
}

// Registry maps session ids to live sessions. Adding a session wires a
// reconciler onto the client's event feed; removing it unsubscribes first.
type Registry struct {
	store  reconciler.Store
	bus    *events.Bus
	logger *logrus.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(store reconciler.Store, bus *events.Bus, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		store:    store,
		bus:      bus,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Add registers a session and starts reconciling its event feed.
func (r *Registry) Add(sessionID string, client types.Client) (*Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("empty session id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[sessionID]; exists {
		return nil, fmt.Errorf("session already registered: %s", sessionID)
	}

	session := &Session{
		ID:         sessionID,
		Client:     client,
		Reconciler: reconciler.New(sessionID, r.store, r.bus, r.logger),
	}
	session.Reconciler.Listen(client)
	r.sessions[sessionID] = session

	r.logger.WithField("session", sessionID).Info("Session registered")
	return session, nil
}

// Get returns the session handle, or nil when unknown.
func (r *Registry) Get(sessionID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[sessionID]
}

// Exists reports whether the session is registered.
func (r *Registry) Exists(sessionID string) bool {
	return r.Get(sessionID) != nil
}

// Delete unsubscribes the session's reconciler, logs the client out and
// removes the session. Unknown ids are a no-op.
func (r *Registry) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	session, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}

	session.Reconciler.Unlisten(session.Client)
	if err := session.Client.Logout(ctx); err != nil {
		r.logger.WithField("session", sessionID).WithError(err).Warn("Failed to log session out")
	}

	r.logger.WithField("session", sessionID).Info("Session removed")
	return nil
}

// IDs returns the registered session ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
