package wa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yudistirasd/baileys-api/pkg/wa/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayClientSendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions/s1/messages", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.JSONEq(t, `"1@s.whatsapp.net"`, string(body["jid"]))

		resp := types.SendResponse{Message: types.WebMessage{
			Key: types.MessageKey{RemoteJID: "1@s.whatsapp.net", FromMe: true, ID: "SENT-1"},
		}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewGatewayClient(ClientConfig{BaseURL: server.URL, APIKey: "secret", SessionID: "s1"})

	resp, err := client.SendMessage(context.Background(), "1@s.whatsapp.net", json.RawMessage(`{"text":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "SENT-1", resp.Message.Key.ID)
}

func TestGatewayClientSendMessageErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session not connected", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewGatewayClient(ClientConfig{BaseURL: server.URL, SessionID: "s1"})

	_, err := client.SendMessage(context.Background(), "1@s.whatsapp.net", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestGatewayClientIsOnWhatsApp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions/s1/exists", r.URL.Path)
		assert.Equal(t, "1@s.whatsapp.net", r.URL.Query().Get("jid"))
		_, _ = w.Write([]byte(`{"exists":true}`))
	}))
	defer server.Close()

	client := NewGatewayClient(ClientConfig{BaseURL: server.URL, SessionID: "s1"})

	exists, err := client.IsOnWhatsApp(context.Background(), "1@s.whatsapp.net")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGatewayClientDownloadMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions/s1/media-download", r.URL.Path)
		_, _ = w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	defer server.Close()

	client := NewGatewayClient(ClientConfig{BaseURL: server.URL, SessionID: "s1"})

	data, err := client.DownloadMedia(context.Background(), &types.WebMessage{
		Key: types.MessageKey{RemoteJID: "1@s.whatsapp.net", ID: "MSG-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, data)
}

func TestGatewayClientLogout(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "/sessions/s1/logout", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewGatewayClient(ClientConfig{BaseURL: server.URL, SessionID: "s1"})

	require.NoError(t, client.Logout(context.Background()))
	assert.True(t, called)
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		kind    types.EventKind
		body    string
		check   func(t *testing.T, payload interface{})
		wantErr bool
	}{
		{
			name: "history set",
			kind: types.EventHistorySet,
			body: `{"messages":[{"key":{"remoteJid":"1@s.whatsapp.net","id":"M1"}}],"isLatest":true}`,
			check: func(t *testing.T, payload interface{}) {
				sync, ok := payload.(types.HistorySync)
				require.True(t, ok)
				assert.True(t, sync.IsLatest)
				assert.Len(t, sync.Messages, 1)
			},
		},
		{
			name: "upsert",
			kind: types.EventMessagesUpsert,
			body: `{"messages":[],"type":"notify"}`,
			check: func(t *testing.T, payload interface{}) {
				upsert, ok := payload.(types.MessagesUpsert)
				require.True(t, ok)
				assert.Equal(t, types.UpsertNotify, upsert.Type)
			},
		},
		{
			name: "upsert with long-object timestamp",
			kind: types.EventMessagesUpsert,
			body: `{"messages":[{"key":{"remoteJid":"1@s.whatsapp.net","id":"M1"},"messageTimestamp":{"low":1700000000,"high":0,"unsigned":false}}],"type":"notify"}`,
			check: func(t *testing.T, payload interface{}) {
				upsert, ok := payload.(types.MessagesUpsert)
				require.True(t, ok)
				require.Len(t, upsert.Messages, 1)
				assert.Equal(t, types.Timestamp(1700000000), upsert.Messages[0].MessageTimestamp)
			},
		},
		{
			name: "history set with string timestamp",
			kind: types.EventHistorySet,
			body: `{"messages":[{"key":{"remoteJid":"1@s.whatsapp.net","id":"M1"},"messageTimestamp":"1700000000"}],"isLatest":false}`,
			check: func(t *testing.T, payload interface{}) {
				sync, ok := payload.(types.HistorySync)
				require.True(t, ok)
				require.Len(t, sync.Messages, 1)
				assert.Equal(t, types.Timestamp(1700000000), sync.Messages[0].MessageTimestamp)
			},
		},
		{
			name: "update batch",
			kind: types.EventMessagesUpdate,
			body: `[{"key":{"remoteJid":"1@s.whatsapp.net","id":"M1"},"update":{"status":"READ"}}]`,
			check: func(t *testing.T, payload interface{}) {
				updates, ok := payload.([]types.MessageUpdate)
				require.True(t, ok)
				require.Len(t, updates, 1)
				assert.Equal(t, "M1", updates[0].Key.ID)
			},
		},
		{
			name: "delete",
			kind: types.EventMessagesDelete,
			body: `{"all":true,"jid":"1@s.whatsapp.net"}`,
			check: func(t *testing.T, payload interface{}) {
				del, ok := payload.(types.MessagesDelete)
				require.True(t, ok)
				assert.True(t, del.All)
			},
		},
		{
			name: "receipts",
			kind: types.EventReceiptUpdate,
			body: `[{"key":{"remoteJid":"1@s.whatsapp.net","id":"M1"},"receipt":{"userJid":"7@s.whatsapp.net","receiptType":"read"}}]`,
			check: func(t *testing.T, payload interface{}) {
				updates, ok := payload.([]types.ReceiptUpdate)
				require.True(t, ok)
				assert.Equal(t, types.ReceiptRead, updates[0].Receipt.Type)
			},
		},
		{
			name: "reactions",
			kind: types.EventMessagesReaction,
			body: `[{"key":{"remoteJid":"1@s.whatsapp.net","id":"M1"},"reaction":{"key":{"remoteJid":"1@s.whatsapp.net","id":"M1","fromMe":true},"text":"👍"}}]`,
			check: func(t *testing.T, payload interface{}) {
				updates, ok := payload.([]types.ReactionUpdate)
				require.True(t, ok)
				assert.Equal(t, "👍", updates[0].Reaction.Text)
			},
		},
		{name: "unknown kind", kind: types.EventChatsUpsert, body: `{}`, wantErr: true},
		{name: "malformed body", kind: types.EventMessagesUpsert, body: `[not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := DecodeEvent(tt.kind, []byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, payload)
		})
	}
}
