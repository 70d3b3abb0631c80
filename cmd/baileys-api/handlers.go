package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "github.com/yudistirasd/baileys-api/internal/errors"
	"github.com/yudistirasd/baileys-api/internal/models"
	"github.com/yudistirasd/baileys-api/internal/service"
	"github.com/yudistirasd/baileys-api/pkg/wa"
	"github.com/yudistirasd/baileys-api/pkg/wa/types"

	"github.com/gorilla/mux"
)

const maxRequestBody = 10 << 20

// eventDispatcher is the slice of the client handle the ingest endpoint
// needs: pushing a decoded event into the session's feed.
type eventDispatcher interface {
	Dispatch(ctx context.Context, kind types.EventKind, payload interface{})
}

type listResponse struct {
	Data   []*models.Message `json:"data"`
	Cursor int64             `json:"cursor,omitempty"`
}

type errorResponse struct {
	Error string              `json:"error"`
	Code  apperrors.ErrorCode `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.registry.Count(),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": s.registry.IDs(),
	})
}

// handleIngestEvent receives one protocol event from the gateway and
// dispatches it into the session's feed. 202 means accepted for
// reconciliation; the outcome lands on the bus, not in this response.
func (s *Server) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	session := s.registry.Get(sessionID)
	if session == nil {
		writeError(w, apperrors.New(apperrors.ErrCodeSessionNotFound, "session not found: "+sessionID))
		return
	}

	dispatcher, ok := session.Client.(eventDispatcher)
	if !ok {
		writeError(w, apperrors.New(apperrors.ErrCodeInternalError, "session client does not accept external events"))
		return
	}

	var envelope struct {
		Event   types.EventKind `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := decodeBody(r, &envelope); err != nil {
		writeError(w, err)
		return
	}

	payload, err := wa.DecodeEvent(envelope.Event, envelope.Payload)
	if err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "invalid event payload"))
		return
	}

	dispatcher.Dispatch(r.Context(), envelope.Event, payload)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	cursor, err := parseInt64Param(r.URL.Query().Get("cursor"), 0)
	if err != nil {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "cursor must be an integer"))
		return
	}
	limit, err := parseIntParam(r.URL.Query().Get("limit"), 0)
	if err != nil {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "limit must be an integer"))
		return
	}

	msgs, next, err := s.msgService.List(r.Context(), vars["sessionId"], vars["jid"], cursor, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}

	writeJSON(w, http.StatusOK, listResponse{Data: msgs, Cursor: next})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if len(body.Message) == 0 {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "message content is required"))
		return
	}

	msg, err := s.msgService.Send(r.Context(), vars["sessionId"], vars["jid"], body.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleSendBulk(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var items []service.BulkSendItem
	if err := decodeBody(r, &items); err != nil {
		writeError(w, err)
		return
	}
	if len(items) == 0 {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "at least one item is required"))
		return
	}

	// Items without an explicit recipient go to the chat in the path.
	for i := range items {
		if items[i].JID == "" {
			items[i].JID = vars["jid"]
		}
	}

	result, err := s.msgService.SendBulk(r.Context(), vars["sessionId"], items)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var body struct {
		MessageID string `json:"messageId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.MessageID == "" {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "messageId is required"))
		return
	}

	data, err := s.msgService.Download(r.Context(), vars["sessionId"], vars["jid"], body.MessageID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.WithError(err).Warn("Failed to write media response")
	}
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.msgService.DeleteMessage(r.Context(), vars["sessionId"], vars["jid"], vars["messageId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteMessageForMe(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.msgService.DeleteMessageForMe(r.Context(), vars["sessionId"], vars["jid"], vars["messageId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(r *http.Request, out interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody)).Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "invalid request body")
	}
	return nil
}

func parseInt64Param(raw string, fallback int64) (int64, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func parseIntParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	writeJSON(w, statusForCode(code), errorResponse{Error: err.Error(), Code: code})
}

func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeSessionNotFound, apperrors.ErrCodeMessageNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeRecipientGone:
		return http.StatusBadRequest
	case apperrors.ErrCodeInvalidJID, apperrors.ErrCodeInvalidInput:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
