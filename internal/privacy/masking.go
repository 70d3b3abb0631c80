package privacy

import (
	"strings"

	"github.com/yudistirasd/baileys-api/internal/constants"
)

// MaskJID hides the user part of a chat identifier while keeping the server
// visible. Example: "1234567890@s.whatsapp.net" -> "******7890@s.whatsapp.net"
func MaskJID(jid string) string {
	if jid == "" {
		return ""
	}

	if idx := strings.LastIndexByte(jid, '@'); idx >= 0 {
		return maskString(jid[:idx], constants.DefaultPhoneMaskLength) + jid[idx:]
	}
	return maskString(jid, constants.DefaultPhoneMaskLength)
}

// MaskMessageID keeps the tail of a message id for correlation in logs.
func MaskMessageID(messageID string) string {
	return maskString(messageID, constants.DefaultMessageIDLength)
}

// MaskSessionID keeps the tail of a session id.
func MaskSessionID(sessionID string) string {
	return maskString(sessionID, 3)
}

// maskString masks a string showing only the last n characters.
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}
