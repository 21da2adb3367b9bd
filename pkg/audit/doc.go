// Package audit records an audit trail of emails sent by the integration,
// forwarding events to configurable sinks (structured log and Kafka).
package audit
