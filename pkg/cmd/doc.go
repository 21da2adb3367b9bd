// Package cmd implements the email-sender command line: the run command that
// executes one integration pass and the version command.
package cmd
