/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/telekom/email-sender/pkg/config"
	"github.com/telekom/email-sender/pkg/queries"
)

var (
	ErrNoRecipients = errors.New("mail: no recipients")
	// ErrUnqualifiedRecipient is returned when a recipient is a bare username
	// and settings carry no mail domain to qualify it with.
	ErrUnqualifiedRecipient = errors.New("mail: recipient has no domain and no mail address is configured")
)

// Sender delivers one email to a set of recipients.
type Sender interface {
	Send(ctx context.Context, recipients []string, subject, body string, settings queries.Settings) error
	Provider() string
}

// New returns the Sender selected by cfg.Provider.
func New(cfg config.Mail, log *zap.SugaredLogger) (Sender, error) {
	switch cfg.Provider {
	case config.MailProviderSMTP, "":
		return NewSMTPSender(cfg, log), nil
	case config.MailProviderResend:
		return NewResendSender(cfg, log), nil
	default:
		return nil, fmt.Errorf("mail: unknown provider %q", cfg.Provider)
	}
}

// Addresses turns recipient identifiers into deliverable addresses. Values
// containing "@" are used as is; anything else is treated as an org username
// and becomes <name>@<mailAddress>. The result is deduplicated and sorted.
func Addresses(recipients []string, mailAddress string) ([]string, error) {
	addrs := sets.New[string]()
	for _, r := range recipients {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if !strings.Contains(r, "@") {
			if mailAddress == "" {
				return nil, fmt.Errorf("%w: %s", ErrUnqualifiedRecipient, r)
			}
			r = r + "@" + strings.TrimPrefix(mailAddress, "@")
		}
		addrs.Insert(r)
	}
	if addrs.Len() == 0 {
		return nil, ErrNoRecipients
	}
	return sets.List(addrs), nil
}
