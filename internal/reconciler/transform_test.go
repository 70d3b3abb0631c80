package reconciler_test

import (
	"encoding/json"
	"testing"

	"github.com/yudistirasd/baileys-api/internal/models"
	"github.com/yudistirasd/baileys-api/internal/reconciler"
	"github.com/yudistirasd/baileys-api/pkg/wa/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRow(t *testing.T) {
	msg := &types.WebMessage{
		Key:              types.MessageKey{RemoteJID: "1234567890:3@C.US", ID: "MSG-1"},
		PushName:         "Alice",
		MessageTimestamp: 1700000000,
		Content:          json.RawMessage(`{"conversation":"hi"}`),
	}

	row, err := reconciler.ToRow("session-1", msg)
	require.NoError(t, err)

	assert.Equal(t, "session-1", row.SessionID)
	assert.Equal(t, "1234567890@s.whatsapp.net", row.RemoteJID)
	assert.Equal(t, "MSG-1", row.MessageID)
	assert.Equal(t, "Alice", row.PushName)
	assert.Equal(t, int64(1700000000), row.MessageTimestamp)

	var stored types.WebMessage
	require.NoError(t, json.Unmarshal(row.Payload, &stored))
	assert.Equal(t, msg.Key.ID, stored.Key.ID)
	assert.JSONEq(t, `{"conversation":"hi"}`, string(stored.Content))
}

func TestToRowRejectsIncompleteKeys(t *testing.T) {
	tests := []struct {
		name string
		msg  types.WebMessage
	}{
		{"missing id", types.WebMessage{Key: types.MessageKey{RemoteJID: "1@s.whatsapp.net"}}},
		{"missing chat", types.WebMessage{Key: types.MessageKey{ID: "MSG-1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reconciler.ToRow("session-1", &tt.msg)
			assert.Error(t, err)
		})
	}
}

func TestToWireRowFieldsAuthoritative(t *testing.T) {
	row := &models.Message{
		SessionID: "session-1",
		RemoteJID: "1@s.whatsapp.net",
		MessageID: "MSG-1",
		PushName:  "Alice",
		Payload:   []byte(`{"key":{"remoteJid":"stale@c.us","id":"STALE"},"message":{"conversation":"hi"}}`),
	}

	msg, err := reconciler.ToWire(row)
	require.NoError(t, err)
	assert.Equal(t, "1@s.whatsapp.net", msg.Key.RemoteJID)
	assert.Equal(t, "MSG-1", msg.Key.ID)
	assert.Equal(t, "Alice", msg.PushName)
	assert.JSONEq(t, `{"conversation":"hi"}`, string(msg.Content))
}

func TestMergeUpdateRederivesKeyFields(t *testing.T) {
	existing := &models.Message{
		SessionID:        "session-1",
		RemoteJID:        "1@s.whatsapp.net",
		MessageID:        "MSG-OLD",
		MessageTimestamp: 1700000000,
		Payload:          []byte(`{"key":{"remoteJid":"1@s.whatsapp.net","id":"MSG-OLD"},"message":{"conversation":"hi"}}`),
		UserReceipt:      []types.Receipt{{UserJID: "7@s.whatsapp.net", Type: types.ReceiptRead, Timestamp: 1}},
	}

	merged, err := reconciler.MergeUpdate(existing, json.RawMessage(
		`{"key":{"remoteJid":"2@C.US","id":"MSG-NEW"},"status":"READ"}`,
	))
	require.NoError(t, err)

	assert.Equal(t, "MSG-NEW", merged.MessageID)
	assert.Equal(t, "2@s.whatsapp.net", merged.RemoteJID, "re-derived chat id is normalized")
	assert.Equal(t, existing.UserReceipt, merged.UserReceipt)

	var full map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(merged.Payload, &full))
	assert.Contains(t, full, "message", "fields absent from the delta survive")
	assert.JSONEq(t, `"READ"`, string(full["status"]))
}

func TestMergeUpdateCoercesTimestampForms(t *testing.T) {
	existing := &models.Message{
		SessionID:        "session-1",
		RemoteJID:        "1@s.whatsapp.net",
		MessageID:        "MSG-1",
		MessageTimestamp: 1700000000,
		Payload:          []byte(`{"key":{"remoteJid":"1@s.whatsapp.net","id":"MSG-1"}}`),
	}

	merged, err := reconciler.MergeUpdate(existing, json.RawMessage(
		`{"messageTimestamp":{"low":1700000099,"high":0,"unsigned":false}}`,
	))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000099), merged.MessageTimestamp)
}
