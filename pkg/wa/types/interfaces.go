package types

import (
	"context"
	"encoding/json"
)

// Client is the live protocol-client handle held by the session registry.
// Connection management, encryption and transport live behind this
// interface; this service only consumes its event feed and dispatch surface.
type Client interface {
	EventFeed

	// SendMessage sends content to the given chat and returns the message
	// as it was put on the wire (including the assigned id).
	SendMessage(ctx context.Context, jid string, content json.RawMessage) (*SendResponse, error)

	// ChatModify applies a chat-state mutation such as a per-device clear.
	ChatModify(ctx context.Context, jid string, mod ChatModification) error

	// IsOnWhatsApp reports whether the given JID resolves to an account.
	IsOnWhatsApp(ctx context.Context, jid string) (bool, error)

	// DownloadMedia re-fetches the media attached to a message, re-uploading
	// through the protocol client when the original is no longer available.
	DownloadMedia(ctx context.Context, msg *WebMessage) ([]byte, error)

	// Logout tears the session down on the protocol side.
	Logout(ctx context.Context) error
}
