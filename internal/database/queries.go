package database

// Message queries
const (
	InsertMessageQuery = `
		INSERT INTO messages (
			session_id, remote_jid, message_id, push_name,
			message_timestamp, payload, user_receipt, reactions
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	UpsertMessageQuery = `
		INSERT INTO messages (
			session_id, remote_jid, message_id, push_name,
			message_timestamp, payload, user_receipt, reactions
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, remote_jid, message_id) DO UPDATE SET
			push_name = excluded.push_name,
			message_timestamp = excluded.message_timestamp,
			payload = excluded.payload
		RETURNING pk_id
	`

	SelectMessageQuery = `
		SELECT pk_id, session_id, remote_jid, message_id, push_name,
		       message_timestamp, payload, user_receipt, reactions,
		       created_at, updated_at
		FROM messages
		WHERE session_id = ? AND remote_jid = ? AND message_id = ?
	`

	SelectMessagePageQuery = `
		SELECT pk_id, session_id, remote_jid, message_id, push_name,
		       message_timestamp, payload, user_receipt, reactions,
		       created_at, updated_at
		FROM messages
		WHERE session_id = ? AND remote_jid = ? AND pk_id > ?
		ORDER BY pk_id
		LIMIT ?
	`

	SelectReceiptsQuery = `
		SELECT user_receipt FROM messages
		WHERE session_id = ? AND remote_jid = ? AND message_id = ?
	`

	SelectReactionsQuery = `
		SELECT reactions FROM messages
		WHERE session_id = ? AND remote_jid = ? AND message_id = ?
	`

	UpdateReceiptsQuery = `
		UPDATE messages SET user_receipt = ?
		WHERE session_id = ? AND remote_jid = ? AND message_id = ?
	`

	UpdateReactionsQuery = `
		UPDATE messages SET reactions = ?
		WHERE session_id = ? AND remote_jid = ? AND message_id = ?
	`

	DeleteMessageQuery = `
		DELETE FROM messages
		WHERE session_id = ? AND remote_jid = ? AND message_id = ?
	`

	DeleteChatMessagesQuery = `
		DELETE FROM messages
		WHERE session_id = ? AND remote_jid = ?
	`

	DeleteSessionMessagesQuery = `
		DELETE FROM messages
		WHERE session_id = ?
	`
)

// Chat queries
const (
	SelectChatExistsQuery = `
		SELECT 1 FROM chats
		WHERE session_id = ? AND remote_jid = ?
	`

	UpsertChatQuery = `
		INSERT INTO chats (
			session_id, remote_jid, name, conversation_timestamp, unread_count
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, remote_jid) DO UPDATE SET
			name = excluded.name,
			conversation_timestamp = excluded.conversation_timestamp,
			unread_count = chats.unread_count + excluded.unread_count
	`
)
