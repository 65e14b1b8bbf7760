// Package mailer renders and sends transactional email for the
// assignment workflow: offers with accept/decline links, lifecycle
// notifications with calendar invites, and account emails.
package mailer

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"

	"github.com/dbdint/agency-api/internal/model"
	"github.com/dbdint/agency-api/internal/utils"
)

// ErrUnknownEmailType is returned when an assignment email type has no
// configuration entry.
var ErrUnknownEmailType = errors.New("unknown email type")

// Sender delivers rendered messages.  The production implementation is
// SMTP via gomail; tests substitute a recorder.
type Sender interface {
	Send(msg *gomail.Message) error
}

// SMTPSender dials the configured SMTP server for each message.
type SMTPSender struct {
	dialer *gomail.Dialer
}

// NewSMTPSender builds a sender.  An empty user disables SMTP auth
// (typical for a local relay).
func NewSMTPSender(host string, port int, user, pass string) *SMTPSender {
	return &SMTPSender{dialer: gomail.NewDialer(host, port, user, pass)}
}

func (s *SMTPSender) Send(msg *gomail.Message) error {
	return s.dialer.DialAndSend(msg)
}

// Mailer renders emails and hands them to a Sender.
type Mailer struct {
	sender  Sender
	from    string
	orgName string
	domain  string
	baseURL string
	zone    *time.Location
}

// New builds a Mailer.  domain feeds Message-ID and calendar UIDs;
// baseURL prefixes accept/decline links.
func New(sender Sender, from, orgName, domain, baseURL string, zone *time.Location) *Mailer {
	return &Mailer{sender: sender, from: from, orgName: orgName, domain: domain, baseURL: baseURL, zone: zone}
}

// AssignmentEmail is one rendered assignment notification ready to
// send.
type AssignmentEmail struct {
	Type       string
	To         []string
	AcceptURL  string
	DeclineURL string
}

// NotifiesAdmins reports whether the given email type also goes to the
// admin list.
func NotifiesAdmins(emailType string) bool {
	cfg, ok := assignmentEmails[emailType]
	return ok && cfg.notifyAdmins
}

// SendAssignmentEmail renders and sends one lifecycle email for an
// assignment.  Each send carries a fresh reference so calendar clients
// treat it as a new invitation, plus anti-threading headers so Gmail
// does not collapse successive lifecycle emails into one thread.
func (m *Mailer) SendAssignmentEmail(emailType string, a model.AssignmentDetail, to []string, acceptURL, declineURL string) error {
	cfg, ok := assignmentEmails[emailType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEmailType, emailType)
	}
	if len(to) == 0 {
		return errors.New("no recipients")
	}

	ref := uuid.New()
	shortRef := hex.EncodeToString(ref[:])[:8]

	data := buildAssignmentData(a, acceptURL, declineURL, m.zone)
	body, err := render(cfg.body, data)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.orgName)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", fmt.Sprintf("%s [Ref: %s]", cfg.subject(a), shortRef))
	m.setAntiThreading(msg, shortRef)
	msg.SetBody("text/html", body)

	if cfg.includeCalendar && a.InterpreterEmail != "" {
		invite := BuildICS(Invite{
			Assignment: a,
			Ref:        shortRef,
			Organizer:  m.from,
			OrgName:    m.orgName,
			Attendee:   a.InterpreterEmail,
			Domain:     m.domain,
			Zone:       m.zone,
		})
		msg.Attach("invite.ics",
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.WriteString(w, invite)
				return err
			}),
			gomail.SetHeader(map[string][]string{
				"Content-Type": {`text/calendar; method=REQUEST; charset="UTF-8"`},
			}))
	}

	return m.sender.Send(msg)
}

// setAntiThreading stamps the headers that keep each lifecycle email
// its own conversation: a unique Message-ID plus the entity-ref and
// explicit topic headers various clients key threading on.
func (m *Mailer) setAntiThreading(msg *gomail.Message, ref string) {
	msg.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), m.domain))
	msg.SetHeader("X-Entity-Ref-ID", ref)
	msg.SetHeader("X-No-Threading", "true")
	msg.SetHeader("Thread-Topic", ref)
	msg.SetHeader("Thread-Index", ref)
}

// SendWelcome greets a newly registered user.
func (m *Mailer) SendWelcome(to, name, role string) error {
	body, err := render(welcomeTmpl, map[string]string{
		"Name":    name,
		"Role":    role,
		"BaseURL": m.baseURL,
	})
	if err != nil {
		return err
	}
	return m.sendSimple(to, "Welcome to DBD International", body)
}

// SendQuoteReady tells a client their quote was issued.
func (m *Mailer) SendQuoteReady(to, name string, q model.Quote) error {
	body, err := render(quoteReadyTmpl, map[string]string{
		"Name":       name,
		"Reference":  q.ReferenceNumber,
		"TotalUSD":   FormatUSD(q.AmountCents + q.TaxCents),
		"ValidUntil": utils.FormatDate(q.ValidUntil, m.zone),
	})
	if err != nil {
		return err
	}
	return m.sendSimple(to, fmt.Sprintf("Your Quote %s Is Ready", q.ReferenceNumber), body)
}

// SendQuoteReceived acknowledges a public quote enquiry.
func (m *Mailer) SendQuoteReceived(to, name string) error {
	body, err := render(quoteReceivedTmpl, map[string]string{"Name": name})
	if err != nil {
		return err
	}
	return m.sendSimple(to, "We Received Your Quote Request", body)
}

func (m *Mailer) sendSimple(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.orgName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), m.domain))
	msg.SetBody("text/html", body)
	return m.sender.Send(msg)
}
