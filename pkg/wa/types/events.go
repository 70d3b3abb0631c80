package types

import (
	"context"
	"encoding/json"
)

// EventKind names an event on the protocol client's feed.
type EventKind string

const (
	EventHistorySet       EventKind = "messaging-history.set"
	EventMessagesUpsert   EventKind = "messages.upsert"
	EventMessagesUpdate   EventKind = "messages.update"
	EventMessagesDelete   EventKind = "messages.delete"
	EventReceiptUpdate    EventKind = "message-receipt.update"
	EventMessagesReaction EventKind = "messages.reaction"

	// EventChatsUpsert is produced, never consumed, by the message layer:
	// it is the synthetic chat-creation request handled by the chat component.
	EventChatsUpsert EventKind = "chats.upsert"
)

// UpsertType tags a messages.upsert batch. Anything other than append or
// notify is ignored by consumers.
type UpsertType string

const (
	UpsertAppend UpsertType = "append"
	UpsertNotify UpsertType = "notify"
)

// HistorySync is the payload of messaging-history.set. IsLatest marks the
// batch as the authoritative full history for the session.
type HistorySync struct {
	Messages []WebMessage `json:"messages"`
	IsLatest bool         `json:"isLatest"`
}

// MessagesUpsert is the payload of messages.upsert.
type MessagesUpsert struct {
	Messages []WebMessage `json:"messages"`
	Type     UpsertType   `json:"type"`
}

// MessageUpdate pairs a partial-record delta with the key it applies to.
// Update is a shallow field overwrite over the stored record.
type MessageUpdate struct {
	Key    MessageKey      `json:"key"`
	Update json.RawMessage `json:"update"`
}

// MessagesDelete is the payload of messages.delete. Either All is set with
// JID naming the chat to wipe, or Keys lists the exact messages to remove.
type MessagesDelete struct {
	All  bool         `json:"all,omitempty"`
	JID  string       `json:"jid,omitempty"`
	Keys []MessageKey `json:"keys,omitempty"`
}

// ReceiptUpdate is one element of a message-receipt.update batch.
type ReceiptUpdate struct {
	Key     MessageKey `json:"key"`
	Receipt Receipt    `json:"receipt"`
}

// ReactionUpdate is one element of a messages.reaction batch.
type ReactionUpdate struct {
	Key      MessageKey `json:"key"`
	Reaction Reaction   `json:"reaction"`
}

// HandlerFunc processes one event payload. Payload is the typed struct for
// the registered kind; handlers must not panic into the dispatch loop.
type HandlerFunc func(ctx context.Context, payload interface{})

// EventFeed is the registration surface of the protocol client's event
// stream. Registrations are keyed by (kind, owner) so independent
// components can subscribe to disjoint kinds without clobbering each other.
type EventFeed interface {
	On(kind EventKind, owner string, fn HandlerFunc)
	Off(kind EventKind, owner string)
}
