package emailsender_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/telekom/email-sender/pkg/audit"
	"github.com/telekom/email-sender/pkg/emailsender"
	"github.com/telekom/email-sender/pkg/emailsender/mocks"
	"github.com/telekom/email-sender/pkg/metrics"
	"github.com/telekom/email-sender/pkg/queries"
	"github.com/telekom/email-sender/pkg/system"
)

type recordingSink struct {
	events []*audit.Event
	err    error
}

func (s *recordingSink) Write(_ context.Context, event *audit.Event) error {
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) Close() error { return nil }
func (s *recordingSink) Name() string { return "recording" }

// closingState adds io.Closer to the State mock.
type closingState struct {
	*mocks.MockState
	closed bool
}

func (c *closingState) Close() error {
	c.closed = true
	return nil
}

type IntegrationSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	source   *mocks.MockSource
	state    *mocks.MockState
	sender   *mocks.MockSender
	sink     *recordingSink
	settings queries.Settings
	accounts []queries.AccountRef
	factory  emailsender.StateFactory

	logs         *observer.ObservedLogs
	factoryCalls int
	integration  *emailsender.Integration
	ctx          context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = mocks.NewMockSource(s.ctrl)
	s.state = mocks.NewMockState(s.ctrl)
	s.sender = mocks.NewMockSender(s.ctrl)
	s.sink = &recordingSink{}
	s.settings = queries.Settings{SMTP: &queries.SMTPSettings{MailAddress: "example.com"}}
	s.accounts = []queries.AccountRef{{Name: "app-sre", ResourcesDefaultRegion: "us-east-1"}}
	s.factoryCalls = 0
	s.factory = func(_ context.Context, integration string, accounts []queries.AccountRef, settings queries.Settings) (emailsender.State, error) {
		s.factoryCalls++
		s.Equal(emailsender.IntegrationName, integration)
		s.Equal(s.accounts, accounts)
		s.Equal(s.settings, settings)
		return s.state, nil
	}
	core, logs := observer.New(zapcore.DebugLevel)
	s.logs = logs
	s.integration = emailsender.NewIntegration(s.source, s.factory, s.sender, zap.New(core).Sugar(), emailsender.WithAuditSink(s.sink))
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *IntegrationSuite) expectInventory(emails ...queries.EmailRecord) {
	s.source.EXPECT().Settings(gomock.Any()).Return(s.settings, nil)
	s.source.EXPECT().AWSAccounts(gomock.Any()).Return(s.accounts, nil)
	s.source.EXPECT().Emails(gomock.Any()).Return(emails, nil)
}

func email(name string, users ...string) queries.EmailRecord {
	refs := make([]queries.UserRef, 0, len(users))
	for _, u := range users {
		refs = append(refs, queries.UserRef{OrgUsername: u})
	}
	return queries.EmailRecord{
		Name:    name,
		Subject: "Subject " + name,
		Body:    "Body " + name,
		To:      queries.AudienceSpec{Users: refs},
	}
}

func (s *IntegrationSuite) TestSendsSinglePendingEmail() {
	s.expectInventory(email("a", "alice"), email("b", "bob", "alice"))
	s.state.EXPECT().Exists(gomock.Any(), "a").Return(true, nil)
	s.state.EXPECT().Exists(gomock.Any(), "b").Return(false, nil)
	gomock.InOrder(
		s.sender.EXPECT().Send(gomock.Any(), []string{"alice", "bob"}, "Subject b", "Body b", s.settings).Return(nil),
		s.state.EXPECT().Add(gomock.Any(), "b").Return(nil),
	)
	sentBefore := testutil.ToFloat64(metrics.EmailsSent)

	s.Require().NoError(s.integration.Run(s.ctx, false))

	s.Equal(1, s.logs.FilterMessage("send_email").FilterField(zap.String("name", "b")).Len())
	s.Equal(1, s.factoryCalls)
	s.Equal(sentBefore+1, testutil.ToFloat64(metrics.EmailsSent))
	s.Equal(float64(2), testutil.ToFloat64(metrics.EmailsDeclared))
	s.Equal(float64(1), testutil.ToFloat64(metrics.EmailsPending))
	s.Require().Len(s.sink.events, 1)
	s.Equal(audit.EventEmailSent, s.sink.events[0].Type)
	s.Equal("b", s.sink.events[0].Target.Name)
	s.Equal(emailsender.IntegrationName, s.sink.events[0].Integration)
}

func (s *IntegrationSuite) TestDryRunSendsNothing() {
	s.expectInventory(email("b", "bob"))
	s.state.EXPECT().Exists(gomock.Any(), "b").Return(false, nil)

	s.Require().NoError(s.integration.Run(s.ctx, true))
	s.Empty(s.sink.events)

	entries := s.logs.FilterMessage("send_email").All()
	s.Require().Len(entries, 1)
	s.Equal(zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	s.Equal("b", fields["name"])
	s.Equal("Subject b", fields["subject"])
}

func (s *IntegrationSuite) TestNothingPending() {
	s.expectInventory(email("a", "alice"), email("b", "bob"))
	s.state.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(true, nil).Times(2)

	s.Require().NoError(s.integration.Run(s.ctx, false))
	s.Equal(float64(0), testutil.ToFloat64(metrics.EmailsPending))
}

func (s *IntegrationSuite) TestNoEmailsDeclared() {
	s.expectInventory()

	s.Require().NoError(s.integration.Run(s.ctx, false))
}

func (s *IntegrationSuite) TestDuplicateNames() {
	s.expectInventory(email("x", "alice"), email("x", "bob"), email("y", "carol"))

	err := s.integration.Run(s.ctx, false)
	s.Require().ErrorIs(err, emailsender.ErrDuplicateEmailNames)
	s.Contains(err.Error(), "[x]")
	s.Equal(1, s.factoryCalls)
}

func (s *IntegrationSuite) TestTooManyPending() {
	s.expectInventory(email("a", "alice"), email("b", "bob"))
	s.state.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, nil).Times(2)

	err := s.integration.Run(s.ctx, false)
	s.Require().ErrorIs(err, emailsender.ErrTooManyPending)

	var pendingErr *emailsender.TooManyPendingError
	s.Require().ErrorAs(err, &pendingErr)
	s.Equal([]string{"a", "b"}, pendingErr.Names)
}

func (s *IntegrationSuite) TestTooManyPendingInDryRun() {
	s.expectInventory(email("a", "alice"), email("b", "bob"))
	s.state.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, nil).Times(2)

	s.ErrorIs(s.integration.Run(s.ctx, true), emailsender.ErrTooManyPending)
}

func (s *IntegrationSuite) TestSendFailureLeavesEmailPending() {
	boom := errors.New("smtp unavailable")
	s.expectInventory(email("b", "bob"))
	s.state.EXPECT().Exists(gomock.Any(), "b").Return(false, nil)
	s.sender.EXPECT().Send(gomock.Any(), []string{"bob"}, "Subject b", "Body b", s.settings).Return(boom)

	err := s.integration.Run(s.ctx, false)
	s.Require().ErrorIs(err, boom)
	s.Empty(s.sink.events)
}

func (s *IntegrationSuite) TestUnknownAliasSendsNothing() {
	e := email("b")
	e.To.Aliases = []string{"everyone"}
	s.expectInventory(e)
	s.state.EXPECT().Exists(gomock.Any(), "b").Return(false, nil)

	err := s.integration.Run(s.ctx, false)
	var aliasErr *emailsender.UnknownAliasError
	s.Require().ErrorAs(err, &aliasErr)
	s.Equal("everyone", aliasErr.Alias)
}

func (s *IntegrationSuite) TestAliasUsesSourceInventory() {
	e := email("b")
	e.To.Aliases = []string{queries.AliasAllUsers}
	s.expectInventory(e)
	s.state.EXPECT().Exists(gomock.Any(), "b").Return(false, nil)
	s.source.EXPECT().Users(gomock.Any()).Return([]queries.UserRef{{OrgUsername: "u2"}, {OrgUsername: "u1"}}, nil)
	gomock.InOrder(
		s.sender.EXPECT().Send(gomock.Any(), []string{"u1", "u2"}, "Subject b", "Body b", s.settings).Return(nil),
		s.state.EXPECT().Add(gomock.Any(), "b").Return(nil),
	)

	s.Require().NoError(s.integration.Run(s.ctx, false))
}

func (s *IntegrationSuite) TestAuditFailureDoesNotFailRun() {
	s.sink.err = errors.New("kafka down")
	s.expectInventory(email("b", "bob"))
	s.state.EXPECT().Exists(gomock.Any(), "b").Return(false, nil)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.state.EXPECT().Add(gomock.Any(), "b").Return(nil)

	s.NoError(s.integration.Run(s.ctx, false))
	s.Len(s.sink.events, 1)
}

func (s *IntegrationSuite) TestQueryFailures() {
	boom := errors.New("graphql down")

	s.Run("settings", func() {
		s.source.EXPECT().Settings(gomock.Any()).Return(queries.Settings{}, boom)
		s.ErrorIs(s.integration.Run(s.ctx, false), boom)
	})
	s.Run("emails", func() {
		s.source.EXPECT().Settings(gomock.Any()).Return(s.settings, nil)
		s.source.EXPECT().AWSAccounts(gomock.Any()).Return(s.accounts, nil)
		s.source.EXPECT().Emails(gomock.Any()).Return(nil, boom)
		s.ErrorIs(s.integration.Run(s.ctx, false), boom)
	})
	s.Run("state lookup", func() {
		s.expectInventory(email("b", "bob"))
		s.state.EXPECT().Exists(gomock.Any(), "b").Return(false, boom)
		s.ErrorIs(s.integration.Run(s.ctx, false), boom)
	})
}

func (s *IntegrationSuite) TestStateFactoryFailure() {
	boom := errors.New("no such bucket")
	s.source.EXPECT().Settings(gomock.Any()).Return(s.settings, nil)
	s.source.EXPECT().AWSAccounts(gomock.Any()).Return(s.accounts, nil)
	failing := func(context.Context, string, []queries.AccountRef, queries.Settings) (emailsender.State, error) {
		return nil, boom
	}
	integration := emailsender.NewIntegration(s.source, failing, s.sender, system.NewTestLogger())

	s.ErrorIs(integration.Run(s.ctx, false), boom)
}

func (s *IntegrationSuite) TestClosesState() {
	st := &closingState{MockState: s.state}
	factory := func(context.Context, string, []queries.AccountRef, queries.Settings) (emailsender.State, error) {
		return st, nil
	}
	integration := emailsender.NewIntegration(s.source, factory, s.sender, system.NewTestLogger())
	s.expectInventory()

	s.Require().NoError(integration.Run(s.ctx, false))
	s.True(st.closed)
}
