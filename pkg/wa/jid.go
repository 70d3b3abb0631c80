package wa

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultUserServer = "s.whatsapp.net"
	GroupServer       = "g.us"
	BroadcastServer   = "broadcast"
	LegacyUserServer  = "c.us"
)

var jidPattern = regexp.MustCompile(`^[0-9A-Za-z._-]+@[a-z.]+$`)

// NormalizeJID canonicalizes a chat identifier: the device suffix (":NN")
// is stripped, the domain is lower-cased and the legacy user server is
// mapped to the current one. All storage rows are keyed by this form.
func NormalizeJID(jid string) string {
	jid = strings.TrimSpace(jid)
	if jid == "" {
		return ""
	}

	user, server := splitJID(jid)

	// Device suffix: "12345:2@s.whatsapp.net" -> "12345@s.whatsapp.net"
	if idx := strings.IndexByte(user, ':'); idx >= 0 {
		user = user[:idx]
	}

	server = strings.ToLower(server)
	if server == LegacyUserServer {
		server = DefaultUserServer
	}
	if server == "" {
		server = DefaultUserServer
	}

	return user + "@" + server
}

// ValidateJID checks that a JID is well formed after normalization.
func ValidateJID(jid string) (string, error) {
	normalized := NormalizeJID(jid)
	if normalized == "" {
		return "", fmt.Errorf("empty JID")
	}
	if !jidPattern.MatchString(normalized) {
		return "", fmt.Errorf("malformed JID: %s", jid)
	}
	return normalized, nil
}

// IsGroupJID reports whether the JID addresses a group chat.
func IsGroupJID(jid string) bool {
	_, server := splitJID(NormalizeJID(jid))
	return server == GroupServer
}

// IsBroadcastJID reports whether the JID addresses a broadcast list.
func IsBroadcastJID(jid string) bool {
	_, server := splitJID(NormalizeJID(jid))
	return server == BroadcastServer
}

func splitJID(jid string) (user, server string) {
	if idx := strings.LastIndexByte(jid, '@'); idx >= 0 {
		return jid[:idx], jid[idx+1:]
	}
	return jid, ""
}
