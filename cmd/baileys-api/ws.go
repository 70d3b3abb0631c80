package main

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const wsWriteTimeout = 10 * time.Second

// handleWS streams outcome events to the client as JSON frames. A
// `session` query parameter narrows the stream to one session.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sessionFilter := r.URL.Query().Get("session")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ctx := r.Context()
	events, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	// Reads are only needed to notice the peer going away.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case <-readerDone:
			return
		case evt, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "event bus closed")
				return
			}
			if sessionFilter != "" && evt.SessionID != sessionFilter {
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, conn, evt)
			cancel()
			if err != nil {
				s.logger.WithError(err).Debug("Websocket write failed, dropping subscriber")
				return
			}
		}
	}
}
