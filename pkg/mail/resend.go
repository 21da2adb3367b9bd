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
	"fmt"

	"github.com/resend/resend-go/v3"
	"go.uber.org/zap"

	"github.com/telekom/email-sender/pkg/config"
	"github.com/telekom/email-sender/pkg/metrics"
	"github.com/telekom/email-sender/pkg/queries"
)

// resendMaxRecipients is the per-request recipient limit of the Resend API.
const resendMaxRecipients = 50

// ResendSender delivers mail through the Resend API. Large audiences are split
// into several requests of at most 50 Bcc recipients each.
type ResendSender struct {
	client  *resend.Client
	from    string
	address string
	log     *zap.SugaredLogger
}

func NewResendSender(cfg config.Mail, log *zap.SugaredLogger) *ResendSender {
	from := cfg.SenderAddress
	if cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.SenderName, cfg.SenderAddress)
	}
	log.Infow("Initializing Resend mail sender", "from", from)
	return &ResendSender{
		client:  resend.NewClient(cfg.Resend.APIKey),
		from:    from,
		address: cfg.SenderAddress,
		log:     log,
	}
}

func (s *ResendSender) Send(ctx context.Context, recipients []string, subject, body string, settings queries.Settings) error {
	addrs, err := Addresses(recipients, settings.MailAddress())
	if err != nil {
		return err
	}

	s.log.Infow("Sending mail", "receivers", len(addrs), "subject", subject, "provider", s.Provider())
	for start := 0; start < len(addrs); start += resendMaxRecipients {
		end := min(start+resendMaxRecipients, len(addrs))
		req := &resend.SendEmailRequest{
			From:    s.from,
			To:      []string{s.address},
			Bcc:     addrs[start:end],
			Subject: subject,
			Text:    body,
		}
		if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
			metrics.MailSendFailure.WithLabelValues(s.Provider()).Inc()
			return fmt.Errorf("resend: failed to send email (recipients %d-%d of %d): %w", start+1, end, len(addrs), err)
		}
	}
	metrics.MailSendSuccess.WithLabelValues(s.Provider()).Inc()
	s.log.Infow("Mail sent", "receivers", len(addrs))
	return nil
}

func (s *ResendSender) Provider() string {
	return config.MailProviderResend
}
