package wa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeJID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "1234567890@s.whatsapp.net", "1234567890@s.whatsapp.net"},
		{"device suffix stripped", "1234567890:12@s.whatsapp.net", "1234567890@s.whatsapp.net"},
		{"legacy server mapped", "1234567890@c.us", "1234567890@s.whatsapp.net"},
		{"uppercase server lowered", "1234567890@S.WHATSAPP.NET", "1234567890@s.whatsapp.net"},
		{"legacy uppercase with device", "1234567890:3@C.US", "1234567890@s.whatsapp.net"},
		{"bare user gets default server", "1234567890", "1234567890@s.whatsapp.net"},
		{"group untouched", "12345-67890@g.us", "12345-67890@g.us"},
		{"broadcast untouched", "status@broadcast", "status@broadcast"},
		{"surrounding whitespace", "  1234567890@s.whatsapp.net ", "1234567890@s.whatsapp.net"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeJID(tt.in))
		})
	}
}

func TestValidateJID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"valid user", "1234567890@s.whatsapp.net", "1234567890@s.whatsapp.net", false},
		{"valid legacy", "1234567890@c.us", "1234567890@s.whatsapp.net", false},
		{"valid group", "12345-67890@g.us", "12345-67890@g.us", false},
		{"empty", "", "", true},
		{"spaces inside", "12 34@s.whatsapp.net", "", true},
		{"missing user", "@s.whatsapp.net", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateJID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJIDKindPredicates(t *testing.T) {
	assert.True(t, IsGroupJID("12345-67890@g.us"))
	assert.False(t, IsGroupJID("12345@s.whatsapp.net"))
	assert.True(t, IsBroadcastJID("status@broadcast"))
	assert.False(t, IsBroadcastJID("12345@c.us"))
}
