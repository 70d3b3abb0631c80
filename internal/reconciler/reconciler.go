package reconciler

import (
	"context"
	"fmt"
	"sync"

	"github.com/yudistirasd/baileys-api/internal/events"
	"github.com/yudistirasd/baileys-api/internal/models"
	"github.com/yudistirasd/baileys-api/pkg/wa"
	"github.com/yudistirasd/baileys-api/pkg/wa/types"

	"github.com/sirupsen/logrus"
)

// handlerOwner keys this component's registrations on the event feed.
const handlerOwner = "message-reconciler"

// Fixed error templates, one per operation, prefixed onto every error
// outcome event.
const (
	errHistorySet = "an error occurred during messages history sync"
	errUpsert     = "an error occurred during messages upsert"
	errUpdate     = "an error occurred during messages update"
	errDelete     = "an error occurred during messages delete"
	errReceipt    = "an error occurred during receipt update"
	errReaction   = "an error occurred during reaction update"
)

// Store is the storage surface the reconciler writes through.
type Store interface {
	SaveMessages(ctx context.Context, sessionID string, msgs []*models.Message, replaceAll bool) error
	UpsertMessage(ctx context.Context, msg *models.Message) (int64, error)
	GetMessage(ctx context.Context, sessionID, remoteJID, messageID string) (*models.Message, error)
	ReplaceMessage(ctx context.Context, oldKey models.MessageCompositeKey, merged *models.Message) error
	MutateMessageReceipts(ctx context.Context, key models.MessageCompositeKey, fn func([]types.Receipt) []types.Receipt) (bool, error)
	MutateMessageReactions(ctx context.Context, key models.MessageCompositeKey, fn func([]types.Reaction) []types.Reaction) (bool, error)
	DeleteMessages(ctx context.Context, sessionID, remoteJID string, ids []string) error
	DeleteChatMessages(ctx context.Context, sessionID, remoteJID string) error
	ChatExists(ctx context.Context, sessionID, remoteJID string) (bool, error)
}

// Sink receives outcome events.
type Sink interface {
	Publish(events.Event)
}

// Reconciler keeps the local message table consistent with one session's
// event feed. One instance per session; the only state held across calls is
// the subscription guard.
type Reconciler struct {
	sessionID string
	store     Store
	sink      Sink
	logger    *logrus.Entry

	mu        sync.Mutex
	listening bool
}

func New(sessionID string, store Store, sink Sink, logger *logrus.Logger) *Reconciler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Reconciler{
		sessionID: sessionID,
		store:     store,
		sink:      sink,
		logger:    logger.WithField("session", sessionID),
	}
}

// Listen subscribes the six handlers to the session's event feed. Calling
// it again while subscribed is a no-op.
func (r *Reconciler) Listen(feed types.EventFeed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listening {
		return
	}

	feed.On(types.EventHistorySet, handlerOwner, r.handleHistorySet)
	feed.On(types.EventMessagesUpsert, handlerOwner, r.handleUpsert)
	feed.On(types.EventMessagesUpdate, handlerOwner, r.handleUpdate)
	feed.On(types.EventMessagesDelete, handlerOwner, r.handleDelete)
	feed.On(types.EventReceiptUpdate, handlerOwner, r.handleReceiptUpdate)
	feed.On(types.EventMessagesReaction, handlerOwner, r.handleReactionUpdate)

	r.listening = true
	r.logger.Debug("Message reconciler listening")
}

// Unlisten reverses Listen. Safe to call without a prior Listen.
func (r *Reconciler) Unlisten(feed types.EventFeed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.listening {
		return
	}

	feed.Off(types.EventHistorySet, handlerOwner)
	feed.Off(types.EventMessagesUpsert, handlerOwner)
	feed.Off(types.EventMessagesUpdate, handlerOwner)
	feed.Off(types.EventMessagesDelete, handlerOwner)
	feed.Off(types.EventReceiptUpdate, handlerOwner)
	feed.Off(types.EventMessagesReaction, handlerOwner)

	r.listening = false
	r.logger.Debug("Message reconciler stopped listening")
}

// runIsolated executes one unit of work behind a catch-all boundary: any
// error or panic is logged and reported on the sink, never propagated to
// the event source's dispatch loop.
func (r *Reconciler) runIsolated(ctx context.Context, kind types.EventKind, template string, fn func(context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic: %v", rec)
			r.logger.WithField("event", kind).WithError(err).Error("Handler panicked")
			r.sink.Publish(events.Errorf(kind, r.sessionID, template, err))
		}
	}()

	if err := fn(ctx); err != nil {
		r.logger.WithField("event", kind).WithError(err).Error("Handler failed")
		r.sink.Publish(events.Errorf(kind, r.sessionID, template, err))
	}
}

// handleHistorySet applies a messaging-history.set batch: one transaction,
// full resync when the batch is authoritative, exactly one outcome event.
func (r *Reconciler) handleHistorySet(ctx context.Context, payload interface{}) {
	sync, ok := payload.(types.HistorySync)
	if !ok {
		r.logger.WithField("event", types.EventHistorySet).Warn("Unexpected payload type, skipping")
		return
	}

	r.runIsolated(ctx, types.EventHistorySet, errHistorySet, func(ctx context.Context) error {
		rows := make([]*models.Message, 0, len(sync.Messages))
		for i := range sync.Messages {
			row, err := ToRow(r.sessionID, &sync.Messages[i])
			if err != nil {
				return fmt.Errorf("failed to transform message %s: %w", sync.Messages[i].Key.ID, err)
			}
			rows = append(rows, row)
		}

		if err := r.store.SaveMessages(ctx, r.sessionID, rows, sync.IsLatest); err != nil {
			return err
		}

		r.logger.WithFields(logrus.Fields{
			"count":     len(rows),
			"is_latest": sync.IsLatest,
		}).Info("Synced message history")
		r.sink.Publish(events.OK(types.EventHistorySet, r.sessionID, rows))
		return nil
	})
}

// handleUpsert applies a messages.upsert batch item by item: a malformed
// message never drops its siblings. Notify upserts for unknown chats
// additionally publish a synthetic chats.upsert request; that event is
// handled by the chat component, never by this reconciler.
func (r *Reconciler) handleUpsert(ctx context.Context, payload interface{}) {
	upsert, ok := payload.(types.MessagesUpsert)
	if !ok {
		r.logger.WithField("event", types.EventMessagesUpsert).Warn("Unexpected payload type, skipping")
		return
	}

	if upsert.Type != types.UpsertAppend && upsert.Type != types.UpsertNotify {
		return
	}

	for i := range upsert.Messages {
		msg := &upsert.Messages[i]
		r.runIsolated(ctx, types.EventMessagesUpsert, errUpsert, func(ctx context.Context) error {
			jid := wa.NormalizeJID(msg.Key.RemoteJID)

			row, err := ToRow(r.sessionID, msg)
			if err != nil {
				return fmt.Errorf("failed to transform message %s: %w", msg.Key.ID, err)
			}

			if _, err := r.store.UpsertMessage(ctx, row); err != nil {
				return err
			}
			r.sink.Publish(events.OK(types.EventMessagesUpsert, r.sessionID, row))

			if upsert.Type != types.UpsertNotify {
				return nil
			}

			exists, err := r.store.ChatExists(ctx, r.sessionID, jid)
			if err != nil {
				r.logger.WithField("chat_id", jid).WithError(err).Error("Failed to check chat existence")
				return nil
			}
			if !exists {
				r.sink.Publish(events.OK(types.EventChatsUpsert, r.sessionID, types.ChatUpsert{
					RemoteJID:             jid,
					ConversationTimestamp: int64(msg.MessageTimestamp),
					UnreadCount:           1,
				}))
			}
			return nil
		})
	}
}

// handleUpdate applies a messages.update batch. Each delta is merged onto
// the stored record and written back as delete+recreate inside one
// transaction, since the merge may re-derive composite-key fields from the
// canonical key substructure. Unknown targets are benign races against
// history sync, logged and skipped.
func (r *Reconciler) handleUpdate(ctx context.Context, payload interface{}) {
	updates, ok := payload.([]types.MessageUpdate)
	if !ok {
		r.logger.WithField("event", types.EventMessagesUpdate).Warn("Unexpected payload type, skipping")
		return
	}

	for _, update := range updates {
		update := update
		r.runIsolated(ctx, types.EventMessagesUpdate, errUpdate, func(ctx context.Context) error {
			jid := wa.NormalizeJID(update.Key.RemoteJID)

			existing, err := r.store.GetMessage(ctx, r.sessionID, jid, update.Key.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				r.logger.WithFields(logrus.Fields{
					"chat_id":    jid,
					"message_id": update.Key.ID,
				}).Info("Got update for non existent message")
				return nil
			}

			merged, err := MergeUpdate(existing, update.Update)
			if err != nil {
				return fmt.Errorf("failed to merge update: %w", err)
			}

			if err := r.store.ReplaceMessage(ctx, existing.Key(), merged); err != nil {
				return err
			}

			r.sink.Publish(events.OK(types.EventMessagesUpdate, r.sessionID, merged))
			return nil
		})
	}
}

// handleDelete removes rows for a messages.delete request and emits one
// outcome describing the original request, not the resulting rows.
func (r *Reconciler) handleDelete(ctx context.Context, payload interface{}) {
	del, ok := payload.(types.MessagesDelete)
	if !ok {
		r.logger.WithField("event", types.EventMessagesDelete).Warn("Unexpected payload type, skipping")
		return
	}

	r.runIsolated(ctx, types.EventMessagesDelete, errDelete, func(ctx context.Context) error {
		if del.All {
			jid := wa.NormalizeJID(del.JID)
			if err := r.store.DeleteChatMessages(ctx, r.sessionID, jid); err != nil {
				return err
			}
			r.sink.Publish(events.OK(types.EventMessagesDelete, r.sessionID, del))
			return nil
		}

		if len(del.Keys) == 0 {
			r.sink.Publish(events.OK(types.EventMessagesDelete, r.sessionID, del))
			return nil
		}

		// Keys in one delete event share a chat
		jid := wa.NormalizeJID(del.Keys[0].RemoteJID)
		ids := make([]string, 0, len(del.Keys))
		for _, key := range del.Keys {
			ids = append(ids, key.ID)
		}

		if err := r.store.DeleteMessages(ctx, r.sessionID, jid, ids); err != nil {
			return err
		}
		r.sink.Publish(events.OK(types.EventMessagesDelete, r.sessionID, del))
		return nil
	})
}

// handleReceiptUpdate applies a message-receipt.update batch, one
// transaction per pair. Receipt state is a per-user snapshot: a repeat
// receipt from the same user replaces the previous one.
func (r *Reconciler) handleReceiptUpdate(ctx context.Context, payload interface{}) {
	updates, ok := payload.([]types.ReceiptUpdate)
	if !ok {
		r.logger.WithField("event", types.EventReceiptUpdate).Warn("Unexpected payload type, skipping")
		return
	}

	for _, update := range updates {
		update := update
		r.runIsolated(ctx, types.EventReceiptUpdate, errReceipt, func(ctx context.Context) error {
			key := models.MessageCompositeKey{
				SessionID: r.sessionID,
				RemoteJID: wa.NormalizeJID(update.Key.RemoteJID),
				MessageID: update.Key.ID,
			}

			found, err := r.store.MutateMessageReceipts(ctx, key, func(receipts []types.Receipt) []types.Receipt {
				for i := range receipts {
					if receipts[i].UserJID == update.Receipt.UserJID {
						receipts[i] = update.Receipt
						return receipts
					}
				}
				return append(receipts, update.Receipt)
			})
			if err != nil {
				return err
			}
			if !found {
				r.logger.WithFields(logrus.Fields{
					"chat_id":    key.RemoteJID,
					"message_id": key.MessageID,
				}).Debug("Got receipt update for non existent message")
				return nil
			}

			r.sink.Publish(events.OK(types.EventReceiptUpdate, r.sessionID, update))
			return nil
		})
	}
}

// handleReactionUpdate applies a messages.reaction batch, one transaction
// per pair. At most one live reaction per author: the author's previous
// reaction is removed first, and an empty-text reaction is a pure
// retraction.
func (r *Reconciler) handleReactionUpdate(ctx context.Context, payload interface{}) {
	updates, ok := payload.([]types.ReactionUpdate)
	if !ok {
		r.logger.WithField("event", types.EventMessagesReaction).Warn("Unexpected payload type, skipping")
		return
	}

	for _, update := range updates {
		update := update
		r.runIsolated(ctx, types.EventMessagesReaction, errReaction, func(ctx context.Context) error {
			key := models.MessageCompositeKey{
				SessionID: r.sessionID,
				RemoteJID: wa.NormalizeJID(update.Key.RemoteJID),
				MessageID: update.Key.ID,
			}

			author := update.Reaction.AuthorID()
			found, err := r.store.MutateMessageReactions(ctx, key, func(reactions []types.Reaction) []types.Reaction {
				kept := reactions[:0]
				for _, reaction := range reactions {
					if reaction.AuthorID() != author {
						kept = append(kept, reaction)
					}
				}
				if update.Reaction.Text != "" {
					kept = append(kept, update.Reaction)
				}
				return kept
			})
			if err != nil {
				return err
			}
			if !found {
				r.logger.WithFields(logrus.Fields{
					"chat_id":    key.RemoteJID,
					"message_id": key.MessageID,
				}).Debug("Got reaction update for non existent message")
				return nil
			}

			r.sink.Publish(events.OK(types.EventMessagesReaction, r.sessionID, update))
			return nil
		})
	}
}
