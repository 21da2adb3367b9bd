package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/email-sender/pkg/config"
	"github.com/telekom/email-sender/pkg/system"
)

func TestAddresses(t *testing.T) {
	tests := []struct {
		name        string
		recipients  []string
		mailAddress string
		want        []string
		wantErr     error
	}{
		{
			name:        "usernames are qualified",
			recipients:  []string{"bob", "alice"},
			mailAddress: "example.com",
			want:        []string{"alice@example.com", "bob@example.com"},
		},
		{
			name:        "addresses are kept verbatim",
			recipients:  []string{"owner@team.org", "alice"},
			mailAddress: "example.com",
			want:        []string{"alice@example.com", "owner@team.org"},
		},
		{
			name:        "duplicates collapse after qualification",
			recipients:  []string{"alice", "alice@example.com", " alice "},
			mailAddress: "example.com",
			want:        []string{"alice@example.com"},
		},
		{
			name:        "leading at sign in domain is tolerated",
			recipients:  []string{"alice"},
			mailAddress: "@example.com",
			want:        []string{"alice@example.com"},
		},
		{
			name:       "blank entries only",
			recipients: []string{"", "  "},
			wantErr:    ErrNoRecipients,
		},
		{
			name:       "username without domain",
			recipients: []string{"alice"},
			wantErr:    ErrUnqualifiedRecipient,
		},
		{
			name:       "full addresses need no domain",
			recipients: []string{"owner@team.org"},
			want:       []string{"owner@team.org"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Addresses(tt.recipients, tt.mailAddress)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	log := system.NewTestLogger()

	s, err := New(config.Mail{Provider: config.MailProviderSMTP}, log)
	require.NoError(t, err)
	assert.Equal(t, config.MailProviderSMTP, s.Provider())

	s, err = New(config.Mail{Provider: config.MailProviderResend, SenderAddress: "noreply@example.com"}, log)
	require.NoError(t, err)
	assert.Equal(t, config.MailProviderResend, s.Provider())

	_, err = New(config.Mail{Provider: "carrier-pigeon"}, log)
	assert.Error(t, err)
}
