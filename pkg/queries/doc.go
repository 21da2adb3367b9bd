// Package queries implements the read-only query source for the email-sender
// integration: a GraphQL client for the app-interface query service and the
// declarative records it returns (emails, users, apps, AWS accounts, settings).
package queries
