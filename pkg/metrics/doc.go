// Package metrics defines Prometheus metrics for the email-sender integration,
// covering runs, pending emails, mail delivery, state lookups and audit sinks.
// The integration runs as a one-shot job, so metrics are pushed to a
// Pushgateway at the end of a run instead of being scraped.
package metrics
