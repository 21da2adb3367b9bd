package emailsender

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/telekom/email-sender/pkg/audit"
	"github.com/telekom/email-sender/pkg/metrics"
	"github.com/telekom/email-sender/pkg/queries"
	"github.com/telekom/email-sender/pkg/system"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/telekom/email-sender/pkg/emailsender Source,State,Sender,Directory

// IntegrationName namespaces the state keys written by this integration.
const IntegrationName = "email-sender"

// Source provides the app-interface inventory.
type Source interface {
	Directory
	Settings(ctx context.Context) (queries.Settings, error)
	AWSAccounts(ctx context.Context) ([]queries.AccountRef, error)
	Emails(ctx context.Context) ([]queries.EmailRecord, error)
}

// State records which emails have been sent. Keys are email names.
type State interface {
	Exists(ctx context.Context, key string) (bool, error)
	Add(ctx context.Context, key string) error
}

// StateFactory opens the State for an integration. settings is passed for
// backends that derive their location from app-interface settings; the
// built-in backends take theirs from configuration and ignore it.
type StateFactory func(ctx context.Context, integration string, accounts []queries.AccountRef, settings queries.Settings) (State, error)

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, recipients []string, subject, body string, settings queries.Settings) error
}

// Integration sends declared emails that are not recorded in state yet.
type Integration struct {
	source   Source
	newState StateFactory
	sender   Sender
	resolver *Resolver
	sink     audit.Sink
	log      *zap.SugaredLogger
}

type Option func(*Integration)

// WithAuditSink writes an email.sent event to sink after every recorded send.
func WithAuditSink(sink audit.Sink) Option {
	return func(i *Integration) {
		i.sink = sink
	}
}

func NewIntegration(source Source, newState StateFactory, sender Sender, log *zap.SugaredLogger, opts ...Option) *Integration {
	i := &Integration{
		source:   source,
		newState: newState,
		sender:   sender,
		resolver: NewResolver(source, log),
		log:      log,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run sends the pending email, if any. At most one email may be pending; with
// more, or with duplicate names, nothing is sent. In dry run mode the pending
// email is only logged.
func (i *Integration) Run(ctx context.Context, dryRun bool) error {
	settings, err := i.source.Settings(ctx)
	if err != nil {
		return fmt.Errorf("failed to query settings: %w", err)
	}
	accounts, err := i.source.AWSAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to query aws accounts: %w", err)
	}
	st, err := i.newState(ctx, IntegrationName, accounts, settings)
	if err != nil {
		return fmt.Errorf("failed to open state: %w", err)
	}
	if c, ok := st.(io.Closer); ok {
		defer func() {
			if cerr := c.Close(); cerr != nil {
				i.log.Warnw("Failed to close state", "error", cerr)
			}
		}()
	}

	emails, err := i.source.Emails(ctx)
	if err != nil {
		return fmt.Errorf("failed to query emails: %w", err)
	}
	metrics.EmailsDeclared.Set(float64(len(emails)))

	if dupes := duplicateNames(emails); len(dupes) > 0 {
		return fmt.Errorf("%w: %v", ErrDuplicateEmailNames, dupes)
	}

	var pending []queries.EmailRecord
	for _, email := range emails {
		sent, err := st.Exists(ctx, email.Name)
		if err != nil {
			return fmt.Errorf("failed to check state for email %s: %w", email.Name, err)
		}
		if !sent {
			pending = append(pending, email)
		}
	}
	metrics.EmailsPending.Set(float64(len(pending)))
	i.log.Debugw("Evaluated declared emails", "declared", len(emails), "pending", len(pending))

	if len(pending) > 1 {
		names := make([]string, 0, len(pending))
		for _, email := range pending {
			names = append(names, email.Name)
		}
		return &TooManyPendingError{Names: names}
	}

	for _, email := range pending {
		i.log.Infow("send_email", system.EmailFields(email.Name, email.Subject)...)
		if dryRun {
			continue
		}
		if err := i.send(ctx, st, email, settings); err != nil {
			return err
		}
	}
	return nil
}

func (i *Integration) send(ctx context.Context, st State, email queries.EmailRecord, settings queries.Settings) error {
	audience, err := i.resolver.CollectTo(ctx, email.To)
	if err != nil {
		return fmt.Errorf("failed to resolve audience of email %s: %w", email.Name, err)
	}
	recipients := sets.List(audience)
	metrics.Recipients.Set(float64(len(recipients)))

	if err := i.sender.Send(ctx, recipients, email.Subject, email.Body, settings); err != nil {
		return fmt.Errorf("failed to send email %s: %w", email.Name, err)
	}
	if err := st.Add(ctx, email.Name); err != nil {
		return fmt.Errorf("email %s was sent but could not be recorded: %w", email.Name, err)
	}
	metrics.EmailsSent.Inc()

	if i.sink != nil {
		event := audit.NewEmailSentEvent(IntegrationName, email.Name, email.Subject, len(recipients))
		if err := i.sink.Write(ctx, event); err != nil {
			i.log.Errorw("Failed to write audit event", "sink", i.sink.Name(), "error", err)
		}
	}
	return nil
}

func duplicateNames(emails []queries.EmailRecord) []string {
	seen := make(map[string]int, len(emails))
	for _, email := range emails {
		seen[email.Name]++
	}
	var dupes []string
	for name, n := range seen {
		if n > 1 {
			dupes = append(dupes, name)
		}
	}
	sort.Strings(dupes)
	return dupes
}
