package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Timestamp is a unix-seconds value as it appears on the wire. Upstream
// serializers emit it as a JSON number, a decimal string, or a protobuf
// {low, high, unsigned} long object; all three decode to the same int64.
type Timestamp int64

// longValue is the protobuf-style 64-bit integer split some upstream
// serializers emit for large values.
type longValue struct {
	Low      uint32 `json:"low"`
	High     int32  `json:"high"`
	Unsigned bool   `json:"unsigned"`
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		v, err := num.Int64()
		if err != nil {
			return err
		}
		*t = Timestamp(v)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		v, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return err
		}
		*t = Timestamp(v)
		return nil
	}

	var long longValue
	if err := json.Unmarshal(data, &long); err == nil {
		*t = Timestamp(int64(long.High)<<32 | int64(long.Low))
		return nil
	}

	return fmt.Errorf("unsupported timestamp encoding: %s", string(data))
}

// MessageKey uniquely identifies a message within a chat as seen on the wire.
type MessageKey struct {
	RemoteJID   string `json:"remoteJid"`
	FromMe      bool   `json:"fromMe"`
	ID          string `json:"id"`
	Participant string `json:"participant,omitempty"`
}

// WebMessage is the wire representation of a message as delivered by the
// protocol client. Content carries the arbitrary protocol payload untouched.
type WebMessage struct {
	Key              MessageKey      `json:"key"`
	PushName         string          `json:"pushName,omitempty"`
	MessageTimestamp Timestamp       `json:"messageTimestamp,omitempty"`
	Status           string          `json:"status,omitempty"`
	Content          json.RawMessage `json:"message,omitempty"`
}

// ReceiptType describes the acknowledgment level of a receipt.
type ReceiptType string

const (
	ReceiptDelivery ReceiptType = "delivery"
	ReceiptRead     ReceiptType = "read"
	ReceiptPlayed   ReceiptType = "played"
)

// Receipt is a per-user delivery/read/playback acknowledgment.
type Receipt struct {
	UserJID   string      `json:"userJid"`
	Type      ReceiptType `json:"receiptType"`
	Timestamp int64       `json:"receiptTimestamp"`
}

// Reaction is an emoji annotation on a message. Empty Text retracts the
// author's previous reaction.
type Reaction struct {
	Key               MessageKey `json:"key"`
	Text              string     `json:"text"`
	SenderTimestampMS int64      `json:"senderTimestampMs,omitempty"`
}

// AuthorID derives the identity a reaction is attributed to. Self-authored
// reactions collapse to a sentinel so that a user's own reactions replace
// each other regardless of which device sent them.
func (r Reaction) AuthorID() string {
	if r.Key.FromMe {
		return "me"
	}
	if r.Key.Participant != "" {
		return r.Key.Participant
	}
	return r.Key.RemoteJID
}

// ChatUpsert is the synthetic chat-creation request published when a notify
// upsert arrives for a chat that has no local row yet.
type ChatUpsert struct {
	RemoteJID             string `json:"remoteJid"`
	ConversationTimestamp int64  `json:"conversationTimestamp"`
	UnreadCount           int    `json:"unreadCount"`
}

// ChatModification mirrors the protocol client's chat-state mutation request.
// Clear deletes the listed messages only on this device ("delete for me").
type ChatModification struct {
	Clear []MessageKey `json:"clear,omitempty"`
}

// SendResponse is returned by the protocol client after a successful send.
type SendResponse struct {
	Message WebMessage `json:"message"`
}
