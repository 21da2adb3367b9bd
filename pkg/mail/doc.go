// Package mail provides the mail transports used to deliver declared emails:
// an SMTP sender and a Resend API sender. Both qualify bare org usernames with
// the app-interface mail domain before delivery.
package mail
