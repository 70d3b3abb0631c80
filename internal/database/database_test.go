package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/yudistirasd/baileys-api/internal/models"
	"github.com/yudistirasd/baileys-api/pkg/wa/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testMessage(sessionID, jid, id string) *models.Message {
	return &models.Message{
		SessionID:        sessionID,
		RemoteJID:        jid,
		MessageID:        id,
		PushName:         "Alice",
		MessageTimestamp: 1700000000,
		Payload:          []byte(fmt.Sprintf(`{"key":{"remoteJid":%q,"id":%q}}`, jid, id)),
	}
}

func TestNewRejectsTraversalPath(t *testing.T) {
	_, err := New("../../../etc/passwd.db")
	assert.Error(t, err)
}

func TestUpsertMessageKeepsSurrogateKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	msg := testMessage("s1", "1@s.whatsapp.net", "MSG-1")
	first, err := db.UpsertMessage(ctx, msg)
	require.NoError(t, err)
	assert.Greater(t, first, int64(0))

	msg.PushName = "Alice Updated"
	second, err := db.UpsertMessage(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	row, err := db.GetMessage(ctx, "s1", "1@s.whatsapp.net", "MSG-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Alice Updated", row.PushName)
}

func TestUpsertMessagePreservesReceiptColumns(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	msg := testMessage("s1", "1@s.whatsapp.net", "MSG-1")
	_, err := db.UpsertMessage(ctx, msg)
	require.NoError(t, err)

	found, err := db.MutateMessageReceipts(ctx, msg.Key(), func(r []types.Receipt) []types.Receipt {
		return append(r, types.Receipt{UserJID: "7@s.whatsapp.net", Type: types.ReceiptRead, Timestamp: 5})
	})
	require.NoError(t, err)
	require.True(t, found)

	_, err = db.UpsertMessage(ctx, testMessage("s1", "1@s.whatsapp.net", "MSG-1"))
	require.NoError(t, err)

	row, err := db.GetMessage(ctx, "s1", "1@s.whatsapp.net", "MSG-1")
	require.NoError(t, err)
	assert.Len(t, row.UserReceipt, 1, "conflict update must not touch receipt state")
}

func TestGetMessageAbsentReturnsNil(t *testing.T) {
	db := setupTestDB(t)

	row, err := db.GetMessage(context.Background(), "s1", "1@s.whatsapp.net", "GHOST")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestSaveMessagesReplaceAll(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertMessage(ctx, testMessage("s1", "1@s.whatsapp.net", "OLD"))
	require.NoError(t, err)
	_, err = db.UpsertMessage(ctx, testMessage("s2", "1@s.whatsapp.net", "OTHER-SESSION"))
	require.NoError(t, err)

	err = db.SaveMessages(ctx, "s1", []*models.Message{
		testMessage("s1", "1@s.whatsapp.net", "NEW-1"),
		testMessage("s1", "2@s.whatsapp.net", "NEW-2"),
	}, true)
	require.NoError(t, err)

	old, err := db.GetMessage(ctx, "s1", "1@s.whatsapp.net", "OLD")
	require.NoError(t, err)
	assert.Nil(t, old)

	kept, err := db.GetMessage(ctx, "s2", "1@s.whatsapp.net", "OTHER-SESSION")
	require.NoError(t, err)
	assert.NotNil(t, kept, "resync must only wipe its own session")

	added, err := db.GetMessage(ctx, "s1", "2@s.whatsapp.net", "NEW-2")
	require.NoError(t, err)
	assert.NotNil(t, added)
}

func TestSaveMessagesDuplicateRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertMessage(ctx, testMessage("s1", "1@s.whatsapp.net", "SURVIVOR"))
	require.NoError(t, err)

	dup := testMessage("s1", "2@s.whatsapp.net", "DUP")
	err = db.SaveMessages(ctx, "s1", []*models.Message{dup, dup}, true)
	require.Error(t, err)

	survivor, err := db.GetMessage(ctx, "s1", "1@s.whatsapp.net", "SURVIVOR")
	require.NoError(t, err)
	assert.NotNil(t, survivor, "failed batch must roll back the wipe")

	inserted, err := db.GetMessage(ctx, "s1", "2@s.whatsapp.net", "DUP")
	require.NoError(t, err)
	assert.Nil(t, inserted)
}

func TestReplaceMessageMovesCompositeKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	old := testMessage("s1", "1@s.whatsapp.net", "MSG-OLD")
	oldPk, err := db.UpsertMessage(ctx, old)
	require.NoError(t, err)

	merged := testMessage("s1", "1@s.whatsapp.net", "MSG-NEW")
	require.NoError(t, db.ReplaceMessage(ctx, old.Key(), merged))

	gone, err := db.GetMessage(ctx, "s1", "1@s.whatsapp.net", "MSG-OLD")
	require.NoError(t, err)
	assert.Nil(t, gone)

	row, err := db.GetMessage(ctx, "s1", "1@s.whatsapp.net", "MSG-NEW")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.NotEqual(t, oldPk, row.PkID)
}

func TestMutateReceiptsMissingRow(t *testing.T) {
	db := setupTestDB(t)

	called := false
	found, err := db.MutateMessageReceipts(context.Background(),
		models.MessageCompositeKey{SessionID: "s1", RemoteJID: "1@s.whatsapp.net", MessageID: "GHOST"},
		func(r []types.Receipt) []types.Receipt {
			called = true
			return r
		})
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, called)
}

func TestMutateReactionsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	msg := testMessage("s1", "1@s.whatsapp.net", "MSG-1")
	_, err := db.UpsertMessage(ctx, msg)
	require.NoError(t, err)

	reaction := types.Reaction{
		Key:  types.MessageKey{RemoteJID: "1@s.whatsapp.net", ID: "MSG-1", Participant: "7@s.whatsapp.net"},
		Text: "👍",
	}
	found, err := db.MutateMessageReactions(ctx, msg.Key(), func(r []types.Reaction) []types.Reaction {
		return append(r, reaction)
	})
	require.NoError(t, err)
	require.True(t, found)

	row, err := db.GetMessage(ctx, "s1", "1@s.whatsapp.net", "MSG-1")
	require.NoError(t, err)
	require.Len(t, row.Reactions, 1)
	assert.Equal(t, reaction, row.Reactions[0])
}

func TestListMessagesKeysetPagination(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := db.UpsertMessage(ctx, testMessage("s1", "1@s.whatsapp.net", fmt.Sprintf("MSG-%d", i)))
		require.NoError(t, err)
	}
	_, err := db.UpsertMessage(ctx, testMessage("s1", "2@s.whatsapp.net", "OTHER"))
	require.NoError(t, err)

	page1, cursor, err := db.ListMessages(ctx, "s1", "1@s.whatsapp.net", 0, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotZero(t, cursor)
	assert.Equal(t, "MSG-1", page1[0].MessageID)

	page2, cursor, err := db.ListMessages(ctx, "s1", "1@s.whatsapp.net", cursor, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "MSG-3", page2[0].MessageID)
	require.NotZero(t, cursor)

	page3, cursor, err := db.ListMessages(ctx, "s1", "1@s.whatsapp.net", cursor, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Zero(t, cursor, "short page terminates the cursor chain")
}

func TestDeleteMessagesScoping(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertMessage(ctx, testMessage("s1", "1@s.whatsapp.net", "DEL"))
	require.NoError(t, err)
	_, err = db.UpsertMessage(ctx, testMessage("s2", "1@s.whatsapp.net", "DEL"))
	require.NoError(t, err)

	require.NoError(t, db.DeleteMessages(ctx, "s1", "1@s.whatsapp.net", []string{"DEL"}))
	require.NoError(t, db.DeleteMessages(ctx, "s1", "1@s.whatsapp.net", nil))

	gone, err := db.GetMessage(ctx, "s1", "1@s.whatsapp.net", "DEL")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := db.GetMessage(ctx, "s2", "1@s.whatsapp.net", "DEL")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestChatUpsertAccumulatesUnread(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	exists, err := db.ChatExists(ctx, "s1", "1@s.whatsapp.net")
	require.NoError(t, err)
	assert.False(t, exists)

	chat := &models.Chat{SessionID: "s1", RemoteJID: "1@s.whatsapp.net", ConversationTimestamp: 1700000000, UnreadCount: 1}
	require.NoError(t, db.UpsertChat(ctx, chat))
	require.NoError(t, db.UpsertChat(ctx, chat))

	exists, err = db.ChatExists(ctx, "s1", "1@s.whatsapp.net")
	require.NoError(t, err)
	assert.True(t, exists)
}
