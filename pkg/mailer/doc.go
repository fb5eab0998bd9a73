// Package mailer abstracts the outbound email transport.
//
// The core treats sending as a black box behind the Mailer interface: it
// hands over recipient, subject, body, and the sender's opaque credentials,
// and gets back a message id or an error. Transient and permanent transport
// failures are deliberately not distinguished; the job queue's bounded retry
// policy governs what happens after a failure.
//
// Three implementations are provided:
//
//   - SMTPMailer     sends through an SMTP relay, authenticating with the
//     per-sender credentials carried in the job payload
//   - PostmarkMailer sends through Postmark's transactional API, treating the
//     credential password as the server token
//   - DevMailer      logs the message and succeeds, for local development
package mailer
