package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// Run metrics
	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_sender_runs_total",
		Help: "Total number of integration runs grouped by result",
	}, []string{"result"})
	EmailsDeclared = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "email_sender_emails_declared",
		Help: "Number of emails declared in the inventory during the last run",
	})
	EmailsPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "email_sender_emails_pending",
		Help: "Number of declared emails not yet recorded in state during the last run",
	})
	EmailsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "email_sender_emails_sent_total",
		Help: "Total number of emails sent and recorded in state",
	})
	Recipients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "email_sender_recipients",
		Help: "Number of recipients resolved for the last sent email",
	})

	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_sender_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"provider"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_sender_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"provider"})

	// State metrics
	StateOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_sender_state_operations_total",
		Help: "Total number of state store operations grouped by backend, operation and result",
	}, []string{"backend", "operation", "result"})

	// Audit metrics
	AuditSinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_sender_audit_sink_errors_total",
		Help: "Total number of audit sink write errors grouped by sink and error type",
	}, []string{"sink", "error_type"})
	AuditEventsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_sender_audit_events_written_total",
		Help: "Total number of audit events written grouped by sink",
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(Runs)
	prometheus.MustRegister(EmailsDeclared)
	prometheus.MustRegister(EmailsPending)
	prometheus.MustRegister(EmailsSent)
	prometheus.MustRegister(Recipients)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(StateOperations)
	prometheus.MustRegister(AuditSinkErrors)
	prometheus.MustRegister(AuditEventsWritten)
}

// Push sends the default registry to a Pushgateway under the given job name.
// An empty url disables pushing.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	pusher := push.New(url, job).Gatherer(prometheus.DefaultGatherer)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

// Result maps a run error to the label used by Runs.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
