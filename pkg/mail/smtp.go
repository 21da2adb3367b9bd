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
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/telekom/email-sender/pkg/config"
	"github.com/telekom/email-sender/pkg/metrics"
	"github.com/telekom/email-sender/pkg/queries"
)

// SMTPSender delivers mail through an SMTP relay. Recipients are placed in
// Bcc so they do not see each other.
type SMTPSender struct {
	dialer        *gomail.Dialer
	senderAddress string
	senderName    string
	log           *zap.SugaredLogger
}

func NewSMTPSender(cfg config.Mail, log *zap.SugaredLogger) *SMTPSender {
	log.Infow("Initializing SMTP mail sender", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port, "user", cfg.SMTP.User)
	d := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password)
	if cfg.SMTP.InsecureSkipVerify {
		log.Warn("InsecureSkipVerify is enabled for mail TLS connection")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for internal relays
	}
	// The SMTP user doubles as the From address when none is configured.
	senderAddr := cfg.SenderAddress
	if senderAddr == "" {
		senderAddr = cfg.SMTP.User
	}
	return &SMTPSender{
		dialer:        d,
		senderAddress: senderAddr,
		senderName:    cfg.SenderName,
		log:           log,
	}
}

func (s *SMTPSender) Send(ctx context.Context, recipients []string, subject, body string, settings queries.Settings) error {
	addrs, err := Addresses(recipients, settings.MailAddress())
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.log.Infow("Sending mail", "receivers", len(addrs), "subject", subject, "host", s.dialer.Host)
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.senderAddress, s.senderName)
	msg.SetHeader("Bcc", addrs...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		metrics.MailSendFailure.WithLabelValues(s.Provider()).Inc()
		return fmt.Errorf("mail: failed to send via %s:%d: %w", s.dialer.Host, s.dialer.Port, err)
	}
	metrics.MailSendSuccess.WithLabelValues(s.Provider()).Inc()
	s.log.Infow("Mail sent", "receivers", len(addrs))
	return nil
}

func (s *SMTPSender) Provider() string {
	return config.MailProviderSMTP
}
