package service

import (
	"context"

	"github.com/yudistirasd/baileys-api/internal/events"
	"github.com/yudistirasd/baileys-api/internal/models"
	"github.com/yudistirasd/baileys-api/pkg/wa/types"

	"github.com/sirupsen/logrus"
)

// ChatStore is the storage surface the chat writer needs.
type ChatStore interface {
	UpsertChat(ctx context.Context, chat *models.Chat) error
}

// ChatWriter materializes chat rows from chats.upsert events on the bus.
// This is the component on the receiving end of the message reconciler's
// synthetic chat-creation requests; the reconciler itself never handles
// chats.upsert, so the feedback edge cannot re-enter it.
type ChatWriter struct {
	store  ChatStore
	logger *logrus.Logger
	unsub  func()
}

func NewChatWriter(store ChatStore, logger *logrus.Logger) *ChatWriter {
	if logger == nil {
		logger = logrus.New()
	}
	return &ChatWriter{store: store, logger: logger}
}

// Start subscribes to chats.upsert events. Idempotent.
func (w *ChatWriter) Start(bus *events.Bus) {
	if w.unsub != nil {
		return
	}
	w.unsub = bus.SubscribeFunc(w.handle, types.EventChatsUpsert)
}

// Stop removes the subscription. Safe without a prior Start.
func (w *ChatWriter) Stop() {
	if w.unsub == nil {
		return
	}
	w.unsub()
	w.unsub = nil
}

func (w *ChatWriter) handle(evt events.Event) {
	if evt.Status != events.StatusOK {
		return
	}
	upsert, ok := evt.Payload.(types.ChatUpsert)
	if !ok {
		w.logger.WithField("event", evt.Kind).Warn("Unexpected payload type, skipping")
		return
	}

	chat := &models.Chat{
		SessionID:             evt.SessionID,
		RemoteJID:             upsert.RemoteJID,
		ConversationTimestamp: upsert.ConversationTimestamp,
		UnreadCount:           upsert.UnreadCount,
	}

	if err := w.store.UpsertChat(context.Background(), chat); err != nil {
		w.logger.WithFields(logrus.Fields{
			"session": evt.SessionID,
			"chat_id": upsert.RemoteJID,
		}).WithError(err).Error("Failed to upsert chat")
	}
}
