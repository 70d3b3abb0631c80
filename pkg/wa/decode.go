package wa

import (
	"encoding/json"
	"fmt"

	"github.com/yudistirasd/baileys-api/pkg/wa/types"
)

// DecodeEvent parses a raw event body into the typed payload handlers
// expect for the given kind. Unknown kinds are an error so callers can
// reject rather than dispatch something no handler understands.
func DecodeEvent(kind types.EventKind, data []byte) (interface{}, error) {
	switch kind {
	case types.EventHistorySet:
		var payload types.HistorySync
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
		}
		return payload, nil
	case types.EventMessagesUpsert:
		var payload types.MessagesUpsert
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
		}
		return payload, nil
	case types.EventMessagesUpdate:
		var payload []types.MessageUpdate
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
		}
		return payload, nil
	case types.EventMessagesDelete:
		var payload types.MessagesDelete
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
		}
		return payload, nil
	case types.EventReceiptUpdate:
		var payload []types.ReceiptUpdate
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
		}
		return payload, nil
	case types.EventMessagesReaction:
		var payload []types.ReactionUpdate
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
		}
		return payload, nil
	default:
		return nil, fmt.Errorf("unsupported event kind: %s", kind)
	}
}
