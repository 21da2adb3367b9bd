// Package emailsender delivers the emails declared in app-interface.
//
// Each declared email carries an audience made of aliases, services, AWS
// accounts, roles and users. The Resolver turns that audience into a flat set
// of recipient identifiers, and the Integration sends the single email that
// has not been recorded as sent yet, then records it in persistent state so
// it is never sent twice.
package emailsender
