package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yudistirasd/baileys-api/internal/constants"
	apperrors "github.com/yudistirasd/baileys-api/internal/errors"
	"github.com/yudistirasd/baileys-api/internal/models"
	"github.com/yudistirasd/baileys-api/internal/reconciler"
	"github.com/yudistirasd/baileys-api/pkg/wa"
	"github.com/yudistirasd/baileys-api/pkg/wa/types"

	"github.com/sirupsen/logrus"
)

// MessageStore is the storage surface the REST operations read and write
// through. Reconciliation writes go through the reconciler's own surface.
type MessageStore interface {
	ListMessages(ctx context.Context, sessionID, remoteJID string, cursor int64, limit int) ([]*models.Message, int64, error)
	GetMessage(ctx context.Context, sessionID, remoteJID, messageID string) (*models.Message, error)
	UpsertMessage(ctx context.Context, msg *models.Message) (int64, error)
	DeleteMessages(ctx context.Context, sessionID, remoteJID string, ids []string) error
}

// SessionProvider resolves a session id to its live handle.
type SessionProvider interface {
	Get(sessionID string) *Session
}

// BulkSendItem is one entry of a bulk send request. DelayMs is honored
// before the item is dispatched.
type BulkSendItem struct {
	JID     string          `json:"jid"`
	Content json.RawMessage `json:"message"`
	DelayMs int             `json:"delayMs,omitempty"`
}

// BulkSendError reports one failed bulk item by its position.
type BulkSendError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BulkSendResult is the partial-success outcome of a bulk send.
type BulkSendResult struct {
	Results []types.WebMessage `json:"results"`
	Errors  []BulkSendError    `json:"errors"`
}

// MessageService implements the REST-facing message operations: reads go
// straight to the store, outbound actions dispatch through the session's
// protocol-client handle.
type MessageService struct {
	store    MessageStore
	sessions SessionProvider
	logger   *logrus.Logger
}

func NewMessageService(store MessageStore, sessions SessionProvider, logger *logrus.Logger) *MessageService {
	if logger == nil {
		logger = logrus.New()
	}
	return &MessageService{
		store:    store,
		sessions: sessions,
		logger:   logger,
	}
}

// List returns one cursor page of messages for a chat, ordered by the
// surrogate key.
func (s *MessageService) List(ctx context.Context, sessionID, jid string, cursor int64, limit int) ([]*models.Message, int64, error) {
	if _, err := s.session(sessionID); err != nil {
		return nil, 0, err
	}

	normalized, err := wa.ValidateJID(jid)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeInvalidJID, "invalid chat id")
	}

	if limit <= 0 {
		limit = constants.DefaultPageSize
	}
	if limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}

	msgs, next, err := s.store.ListMessages(ctx, sessionID, normalized, cursor, limit)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to list messages")
	}
	return msgs, next, nil
}

// Send validates the recipient and dispatches one message, persisting the
// sent row so reads see it before the event feed echoes it back.
func (s *MessageService) Send(ctx context.Context, sessionID, jid string, content json.RawMessage) (*types.WebMessage, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	normalized, err := wa.ValidateJID(jid)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidJID, "invalid recipient")
	}

	exists, err := session.Client.IsOnWhatsApp(ctx, normalized)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSendFailed, "failed to verify recipient")
	}
	if !exists {
		return nil, apperrors.New(apperrors.ErrCodeRecipientGone, fmt.Sprintf("recipient not found: %s", normalized))
	}

	resp, err := session.Client.SendMessage(ctx, normalized, content)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSendFailed, "failed to send message")
	}

	row, err := reconciler.ToRow(sessionID, &resp.Message)
	if err != nil {
		s.logger.WithField("session", sessionID).WithError(err).Warn("Failed to transform sent message, skipping persist")
		return &resp.Message, nil
	}
	if _, err := s.store.UpsertMessage(ctx, row); err != nil {
		s.logger.WithField("session", sessionID).WithError(err).Warn("Failed to persist sent message")
	}

	return &resp.Message, nil
}

// SendBulk dispatches items strictly in order, honoring per-item delays.
// A failed item is recorded and never aborts its successors.
func (s *MessageService) SendBulk(ctx context.Context, sessionID string, items []BulkSendItem) (*BulkSendResult, error) {
	if _, err := s.session(sessionID); err != nil {
		return nil, err
	}
	if len(items) > constants.MaxBulkSendBatch {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput,
			fmt.Sprintf("bulk batch exceeds %d items", constants.MaxBulkSendBatch))
	}

	result := &BulkSendResult{}
	for i, item := range items {
		if item.DelayMs > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(time.Duration(item.DelayMs) * time.Millisecond):
			}
		}

		msg, err := s.Send(ctx, sessionID, item.JID, item.Content)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"session": sessionID,
				"index":   i,
			}).WithError(err).Error("Bulk send item failed")
			result.Errors = append(result.Errors, BulkSendError{Index: i, Error: err.Error()})
			continue
		}
		result.Results = append(result.Results, *msg)
	}

	return result, nil
}

// Download re-fetches the media attached to a stored message.
func (s *MessageService) Download(ctx context.Context, sessionID, jid, messageID string) ([]byte, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	normalized, err := wa.ValidateJID(jid)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidJID, "invalid chat id")
	}

	row, err := s.store.GetMessage(ctx, sessionID, normalized, messageID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to load message")
	}
	if row == nil {
		return nil, apperrors.New(apperrors.ErrCodeMessageNotFound, fmt.Sprintf("message not found: %s", messageID))
	}

	msg, err := reconciler.ToWire(row)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to decode message")
	}

	data, err := session.Client.DownloadMedia(ctx, msg)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMediaDownload, "failed to download media")
	}
	return data, nil
}

// DeleteMessage revokes a message for everyone in the chat. The local row
// is removed when the resulting protocol update arrives on the event feed.
func (s *MessageService) DeleteMessage(ctx context.Context, sessionID, jid, messageID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}

	normalized, err := wa.ValidateJID(jid)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidJID, "invalid chat id")
	}

	revoke, err := json.Marshal(map[string]interface{}{
		"delete": types.MessageKey{RemoteJID: normalized, FromMe: true, ID: messageID},
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to build revoke request")
	}

	if _, err := session.Client.SendMessage(ctx, normalized, revoke); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSendFailed, "failed to revoke message")
	}
	return nil
}

// DeleteMessageForMe clears a message on this device only. The protocol
// feed does not echo per-device clears, so the local row is removed here.
func (s *MessageService) DeleteMessageForMe(ctx context.Context, sessionID, jid, messageID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}

	normalized, err := wa.ValidateJID(jid)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidJID, "invalid chat id")
	}

	mod := types.ChatModification{
		Clear: []types.MessageKey{{RemoteJID: normalized, FromMe: true, ID: messageID}},
	}
	if err := session.Client.ChatModify(ctx, normalized, mod); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSendFailed, "failed to clear message")
	}

	if err := s.store.DeleteMessages(ctx, sessionID, normalized, []string{messageID}); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to delete local row")
	}
	return nil
}

func (s *MessageService) session(sessionID string) (*Session, error) {
	session := s.sessions.Get(sessionID)
	if session == nil {
		return nil, apperrors.New(apperrors.ErrCodeSessionNotFound, fmt.Sprintf("session not found: %s", sessionID))
	}
	return session, nil
}
