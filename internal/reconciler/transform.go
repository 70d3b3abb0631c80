package reconciler

import (
	"encoding/json"
	"fmt"

	"github.com/yudistirasd/baileys-api/internal/models"
	"github.com/yudistirasd/baileys-api/pkg/wa"
	"github.com/yudistirasd/baileys-api/pkg/wa/types"
)

// ToRow converts a wire message to its storage row. The chat identifier is
// normalized, the full wire record becomes the opaque payload blob and the
// timestamp is coerced to int64.
func ToRow(sessionID string, msg *types.WebMessage) (*models.Message, error) {
	if msg.Key.ID == "" {
		return nil, fmt.Errorf("message has no id")
	}
	jid := wa.NormalizeJID(msg.Key.RemoteJID)
	if jid == "" {
		return nil, fmt.Errorf("message %s has no chat id", msg.Key.ID)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize message: %w", err)
	}

	return &models.Message{
		SessionID:        sessionID,
		RemoteJID:        jid,
		MessageID:        msg.Key.ID,
		PushName:         msg.PushName,
		MessageTimestamp: int64(msg.MessageTimestamp),
		Payload:          payload,
	}, nil
}

// ToWire reconstructs the wire message from a storage row.
func ToWire(row *models.Message) (*types.WebMessage, error) {
	msg := &types.WebMessage{}
	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, msg); err != nil {
			return nil, fmt.Errorf("failed to deserialize payload: %w", err)
		}
	}

	// Row fields are authoritative for identity
	msg.Key.RemoteJID = row.RemoteJID
	msg.Key.ID = row.MessageID
	if msg.PushName == "" {
		msg.PushName = row.PushName
	}
	if msg.MessageTimestamp == 0 {
		msg.MessageTimestamp = types.Timestamp(row.MessageTimestamp)
	}
	return msg, nil
}

// MergeUpdate shallow-merges a partial-record delta onto the stored record
// and re-derives the key-forming fields from the merged canonical key
// substructure. Receipts and reactions are carried over untouched.
func MergeUpdate(existing *models.Message, delta json.RawMessage) (*models.Message, error) {
	full := make(map[string]json.RawMessage)
	if len(existing.Payload) > 0 {
		if err := json.Unmarshal(existing.Payload, &full); err != nil {
			return nil, fmt.Errorf("failed to decode stored record: %w", err)
		}
	}

	patch := make(map[string]json.RawMessage)
	if len(delta) > 0 {
		if err := json.Unmarshal(delta, &patch); err != nil {
			return nil, fmt.Errorf("failed to decode update delta: %w", err)
		}
	}
	for field, value := range patch {
		full[field] = value
	}

	payload, err := json.Marshal(full)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize merged record: %w", err)
	}

	merged := &models.Message{
		SessionID:        existing.SessionID,
		RemoteJID:        existing.RemoteJID,
		MessageID:        existing.MessageID,
		PushName:         existing.PushName,
		MessageTimestamp: existing.MessageTimestamp,
		Payload:          payload,
		UserReceipt:      existing.UserReceipt,
		Reactions:        existing.Reactions,
	}

	// Re-derive identity and timestamp from the merged record
	if raw, ok := full["key"]; ok {
		var key types.MessageKey
		if err := json.Unmarshal(raw, &key); err != nil {
			return nil, fmt.Errorf("failed to decode merged key: %w", err)
		}
		if key.ID != "" {
			merged.MessageID = key.ID
		}
		if key.RemoteJID != "" {
			merged.RemoteJID = wa.NormalizeJID(key.RemoteJID)
		}
	}
	if raw, ok := full["pushName"]; ok {
		var pushName string
		if err := json.Unmarshal(raw, &pushName); err == nil {
			merged.PushName = pushName
		}
	}
	if raw, ok := full["messageTimestamp"]; ok {
		var ts types.Timestamp
		if err := json.Unmarshal(raw, &ts); err != nil {
			return nil, fmt.Errorf("failed to coerce merged timestamp: %w", err)
		}
		merged.MessageTimestamp = int64(ts)
	}

	return merged, nil
}
