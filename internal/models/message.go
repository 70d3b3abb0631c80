package models

import (
	"encoding/json"
	"time"

	"github.com/yudistirasd/baileys-api/pkg/wa/types"
)

// Message is one stored message row. Rows are unique by
// (SessionID, RemoteJID, MessageID); PkID is the storage-assigned surrogate
// key used for pagination cursors and for point lookups across
// delete+recreate cycles.
type Message struct {
	PkID             int64            `json:"pkId"`
	SessionID        string           `json:"sessionId"`
	RemoteJID        string           `json:"remoteJid"`
	MessageID        string           `json:"id"`
	PushName         string           `json:"pushName,omitempty"`
	MessageTimestamp int64            `json:"messageTimestamp"`
	Payload          []byte           `json:"-"`
	UserReceipt      []types.Receipt  `json:"userReceipt,omitempty"`
	Reactions        []types.Reaction `json:"reactions,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// MarshalJSON surfaces the protocol content carried inside the opaque
// payload blob as a "message" field, so list responses and outcome events
// deliver the message body, not just its metadata.
func (m Message) MarshalJSON() ([]byte, error) {
	type alias Message
	out := struct {
		alias
		Content json.RawMessage `json:"message,omitempty"`
	}{alias: alias(m)}

	if len(m.Payload) > 0 {
		var wire struct {
			Content json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal(m.Payload, &wire); err == nil {
			out.Content = wire.Content
		}
	}
	return json.Marshal(out)
}

// Key reconstructs the composite identity of the row.
func (m *Message) Key() MessageCompositeKey {
	return MessageCompositeKey{
		SessionID: m.SessionID,
		RemoteJID: m.RemoteJID,
		MessageID: m.MessageID,
	}
}

// MessageCompositeKey identifies a message row independently of its
// surrogate key.
type MessageCompositeKey struct {
	SessionID string `json:"sessionId"`
	RemoteJID string `json:"remoteJid"`
	MessageID string `json:"id"`
}

// Chat is a chat row. The message layer only reads chats, to gate synthetic
// chat creation; writes belong to the chat component.
type Chat struct {
	PkID                  int64     `json:"pkId"`
	SessionID             string    `json:"sessionId"`
	RemoteJID             string    `json:"remoteJid"`
	Name                  string    `json:"name,omitempty"`
	ConversationTimestamp int64     `json:"conversationTimestamp"`
	UnreadCount           int       `json:"unreadCount"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}
