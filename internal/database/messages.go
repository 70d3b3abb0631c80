package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yudistirasd/baileys-api/internal/models"
	"github.com/yudistirasd/baileys-api/pkg/wa/types"
)

// SaveMessages bulk-inserts a batch inside one transaction. When replaceAll
// is set, every existing row for the session is deleted first (full resync).
// Any insert failure, duplicate keys included, rolls the whole batch back.
func (d *Database) SaveMessages(ctx context.Context, sessionID string, msgs []*models.Message, replaceAll bool) error {
	return retryableDBOperation(ctx, "save messages", func() error {
		tx, err := d.beginTx(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if replaceAll {
			if _, err := tx.ExecContext(ctx, DeleteSessionMessagesQuery, sessionID); err != nil {
				return fmt.Errorf("failed to clear session messages: %w", err)
			}
		}

		for _, msg := range msgs {
			payload, receipts, reactions, err := d.encodeColumns(msg)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, InsertMessageQuery,
				sessionID, msg.RemoteJID, msg.MessageID, msg.PushName,
				msg.MessageTimestamp, payload, receipts, reactions,
			); err != nil {
				return fmt.Errorf("failed to insert message %s: %w", msg.MessageID, err)
			}
		}

		return tx.Commit()
	})
}

// UpsertMessage inserts or updates a row by composite key, returning only
// the surrogate key.
func (d *Database) UpsertMessage(ctx context.Context, msg *models.Message) (int64, error) {
	payload, receipts, reactions, err := d.encodeColumns(msg)
	if err != nil {
		return 0, err
	}

	var pkID int64
	err = retryableDBOperation(ctx, "upsert message", func() error {
		return d.db.QueryRowContext(ctx, UpsertMessageQuery,
			msg.SessionID, msg.RemoteJID, msg.MessageID, msg.PushName,
			msg.MessageTimestamp, payload, receipts, reactions,
		).Scan(&pkID)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert message: %w", err)
	}

	msg.PkID = pkID
	return pkID, nil
}

// GetMessage performs a point lookup by composite key. Returns nil, nil
// when the row does not exist.
func (d *Database) GetMessage(ctx context.Context, sessionID, remoteJID, messageID string) (*models.Message, error) {
	row := d.db.QueryRowContext(ctx, SelectMessageQuery, sessionID, remoteJID, messageID)
	msg, err := d.scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// ReplaceMessage deletes the row identified by oldKey and inserts merged as
// a new row, atomically. The merged row's composite key may differ from the
// old one when the update delta re-derived key fields; the intermediate
// deleted state never leaks outside the transaction.
func (d *Database) ReplaceMessage(ctx context.Context, oldKey models.MessageCompositeKey, merged *models.Message) error {
	return retryableDBOperation(ctx, "replace message", func() error {
		tx, err := d.beginTx(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, DeleteMessageQuery,
			oldKey.SessionID, oldKey.RemoteJID, oldKey.MessageID); err != nil {
			return fmt.Errorf("failed to delete old row: %w", err)
		}

		payload, receipts, reactions, err := d.encodeColumns(merged)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, InsertMessageQuery,
			merged.SessionID, merged.RemoteJID, merged.MessageID, merged.PushName,
			merged.MessageTimestamp, payload, receipts, reactions,
		); err != nil {
			return fmt.Errorf("failed to insert merged row: %w", err)
		}

		return tx.Commit()
	})
}

// MutateMessageReceipts runs fn over the row's current receipt set and
// writes the result back, all inside one transaction. Returns false without
// error when the row does not exist.
func (d *Database) MutateMessageReceipts(ctx context.Context, key models.MessageCompositeKey, fn func([]types.Receipt) []types.Receipt) (bool, error) {
	found := false
	err := retryableDBOperation(ctx, "update receipts", func() error {
		tx, err := d.beginTx(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var raw string
		err = tx.QueryRowContext(ctx, SelectReceiptsQuery,
			key.SessionID, key.RemoteJID, key.MessageID).Scan(&raw)
		if err == sql.ErrNoRows {
			found = false
			return tx.Commit()
		}
		if err != nil {
			return fmt.Errorf("failed to read receipts: %w", err)
		}
		found = true

		var receipts []types.Receipt
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &receipts); err != nil {
				return fmt.Errorf("failed to decode receipts: %w", err)
			}
		}

		updated, err := json.Marshal(fn(receipts))
		if err != nil {
			return fmt.Errorf("failed to encode receipts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, UpdateReceiptsQuery,
			string(updated), key.SessionID, key.RemoteJID, key.MessageID); err != nil {
			return fmt.Errorf("failed to write receipts: %w", err)
		}

		return tx.Commit()
	})
	return found, err
}

// MutateMessageReactions is the reaction counterpart of
// MutateMessageReceipts.
func (d *Database) MutateMessageReactions(ctx context.Context, key models.MessageCompositeKey, fn func([]types.Reaction) []types.Reaction) (bool, error) {
	found := false
	err := retryableDBOperation(ctx, "update reactions", func() error {
		tx, err := d.beginTx(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var raw string
		err = tx.QueryRowContext(ctx, SelectReactionsQuery,
			key.SessionID, key.RemoteJID, key.MessageID).Scan(&raw)
		if err == sql.ErrNoRows {
			found = false
			return tx.Commit()
		}
		if err != nil {
			return fmt.Errorf("failed to read reactions: %w", err)
		}
		found = true

		var reactions []types.Reaction
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &reactions); err != nil {
				return fmt.Errorf("failed to decode reactions: %w", err)
			}
		}

		updated, err := json.Marshal(fn(reactions))
		if err != nil {
			return fmt.Errorf("failed to encode reactions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, UpdateReactionsQuery,
			string(updated), key.SessionID, key.RemoteJID, key.MessageID); err != nil {
			return fmt.Errorf("failed to write reactions: %w", err)
		}

		return tx.Commit()
	})
	return found, err
}

// DeleteMessages removes the listed ids scoped to one chat and session.
// A single bulk statement; atomicity comes from the storage layer.
func (d *Database) DeleteMessages(ctx context.Context, sessionID, remoteJID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(
		"DELETE FROM messages WHERE session_id = ? AND remote_jid = ? AND message_id IN (%s)",
		placeholders,
	)

	args := make([]interface{}, 0, len(ids)+2)
	args = append(args, sessionID, remoteJID)
	for _, id := range ids {
		args = append(args, id)
	}

	return retryableDBOperation(ctx, "delete messages", func() error {
		_, err := d.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		return nil
	})
}

// DeleteChatMessages removes every row for one chat in the session.
func (d *Database) DeleteChatMessages(ctx context.Context, sessionID, remoteJID string) error {
	return retryableDBOperation(ctx, "delete chat messages", func() error {
		_, err := d.db.ExecContext(ctx, DeleteChatMessagesQuery, sessionID, remoteJID)
		if err != nil {
			return fmt.Errorf("failed to delete chat messages: %w", err)
		}
		return nil
	})
}

// ListMessages returns one keyset page ordered by pk_id. The cursor is the
// last pk_id of the previous page; zero starts from the beginning. The
// returned cursor is zero when the page is not full.
func (d *Database) ListMessages(ctx context.Context, sessionID, remoteJID string, cursor int64, limit int) ([]*models.Message, int64, error) {
	rows, err := d.db.QueryContext(ctx, SelectMessagePageQuery, sessionID, remoteJID, cursor, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []*models.Message
	for rows.Next() {
		msg, err := d.scanMessage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate messages: %w", err)
	}

	var next int64
	if len(msgs) == limit {
		next = msgs[len(msgs)-1].PkID
	}
	return msgs, next, nil
}

// ChatExists reports whether a chat row is present for the pair.
func (d *Database) ChatExists(ctx context.Context, sessionID, remoteJID string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx, SelectChatExistsQuery, sessionID, remoteJID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check chat existence: %w", err)
	}
	return true, nil
}

// UpsertChat creates or refreshes a chat row; unread counts accumulate.
func (d *Database) UpsertChat(ctx context.Context, chat *models.Chat) error {
	return retryableDBOperation(ctx, "upsert chat", func() error {
		_, err := d.db.ExecContext(ctx, UpsertChatQuery,
			chat.SessionID, chat.RemoteJID, chat.Name,
			chat.ConversationTimestamp, chat.UnreadCount)
		if err != nil {
			return fmt.Errorf("failed to upsert chat: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (d *Database) scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var payload sql.NullString
	var pushName sql.NullString
	var receipts, reactions string

	err := row.Scan(
		&msg.PkID,
		&msg.SessionID,
		&msg.RemoteJID,
		&msg.MessageID,
		&pushName,
		&msg.MessageTimestamp,
		&payload,
		&receipts,
		&reactions,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.PushName = pushName.String

	if payload.Valid && payload.String != "" {
		decrypted, err := d.encryptor.DecryptIfEnabled(payload.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt payload: %w", err)
		}
		msg.Payload = []byte(decrypted)
	}

	if receipts != "" {
		if err := json.Unmarshal([]byte(receipts), &msg.UserReceipt); err != nil {
			return nil, fmt.Errorf("failed to decode receipts: %w", err)
		}
	}
	if reactions != "" {
		if err := json.Unmarshal([]byte(reactions), &msg.Reactions); err != nil {
			return nil, fmt.Errorf("failed to decode reactions: %w", err)
		}
	}

	return msg, nil
}

func (d *Database) encodeColumns(msg *models.Message) (payload, receipts, reactions string, err error) {
	payload, err = d.encryptor.EncryptIfEnabled(string(msg.Payload))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encrypt payload: %w", err)
	}

	rc := msg.UserReceipt
	if rc == nil {
		rc = []types.Receipt{}
	}
	rcRaw, err := json.Marshal(rc)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode receipts: %w", err)
	}

	rx := msg.Reactions
	if rx == nil {
		rx = []types.Reaction{}
	}
	rxRaw, err := json.Marshal(rx)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode reactions: %w", err)
	}

	return payload, string(rcRaw), string(rxRaw), nil
}
