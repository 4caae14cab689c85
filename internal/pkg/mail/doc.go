// Package mail sends email messages.
//
// Callers depend on the Mail interface and the Message payload. The drivers
// in this package deliver over SMTP, through the Resend API, or only write
// the message to the log for local development.
package mail
