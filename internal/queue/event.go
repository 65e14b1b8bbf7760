// Package queue defines message payloads exchanged over the message broker.
package queue

// MailQueueName is the durable queue account and quote emails travel
// through so registration and quoting requests never block on SMTP.
const MailQueueName = "mail.outbound"

// Mail job kinds.
const (
	KindWelcome       = "welcome"
	KindQuoteReady    = "quote_ready"
	KindQuoteReceived = "quote_received"
)

// MailJob is one queued email.  It carries enough to render the
// message without querying the primary database, except for quote_ready
// which re-reads the quote so the email always reflects its latest
// amounts.
type MailJob struct {
	Kind    string `json:"kind"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role,omitempty"`
	QuoteID uint64 `json:"quote_id,omitempty"`
}
