package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/dbdint/agency-api/internal/model"
	"github.com/dbdint/agency-api/internal/utils"
)

// Email types sent for assignment lifecycle events and account flows.
// The value doubles as the audit suffix (EMAIL_SENT_<upper type>).
const (
	EmailNewAssignment       = "new_assignment"
	EmailAssignmentConfirmed = "assignment_confirmed"
	EmailAssignmentCancelled = "assignment_cancelled"
	EmailAssignmentCompleted = "assignment_completed"
	EmailAssignmentNoShow    = "assignment_no_show"
	EmailWelcome             = "welcome"
	EmailQuoteReady          = "quote_ready"
	EmailQuoteReceived       = "quote_received"
)

// emailConfig drives how each email type is rendered: its subject line
// builder, body template and whether a calendar invite rides along.
type emailConfig struct {
	subject         func(a model.AssignmentDetail) string
	body            *template.Template
	includeCalendar bool
	notifyAdmins    bool
}

var assignmentEmails = map[string]emailConfig{
	EmailNewAssignment: {
		subject: func(a model.AssignmentDetail) string {
			return fmt.Sprintf("New Assignment Offer #%d - %s", a.ID, a.ServiceTypeName)
		},
		body:            tmpl("new_assignment", newAssignmentBody),
		includeCalendar: true,
	},
	EmailAssignmentConfirmed: {
		subject: func(a model.AssignmentDetail) string {
			return fmt.Sprintf("Assignment #%d Confirmed", a.ID)
		},
		body:            tmpl("assignment_confirmed", confirmedBody),
		includeCalendar: true,
		notifyAdmins:    true,
	},
	EmailAssignmentCancelled: {
		subject: func(a model.AssignmentDetail) string {
			return fmt.Sprintf("Assignment #%d Cancelled", a.ID)
		},
		body:         tmpl("assignment_cancelled", cancelledBody),
		notifyAdmins: true,
	},
	EmailAssignmentCompleted: {
		subject: func(a model.AssignmentDetail) string {
			return fmt.Sprintf("Assignment #%d Completed - Thank You", a.ID)
		},
		body:         tmpl("assignment_completed", completedBody),
		notifyAdmins: true,
	},
	EmailAssignmentNoShow: {
		subject: func(a model.AssignmentDetail) string {
			return fmt.Sprintf("Assignment #%d Marked No-Show", a.ID)
		},
		body:         tmpl("assignment_no_show", noShowBody),
		notifyAdmins: true,
	},
}

func tmpl(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}

// assignmentEmailData is the payload rendered into assignment bodies.
type assignmentEmailData struct {
	Assignment  model.AssignmentDetail
	Client      string
	Start       string
	End         string
	Location    string
	AcceptURL   string
	DeclineURL  string
	PayableUSD  string
	CompletedAt string
}

func buildAssignmentData(a model.AssignmentDetail, acceptURL, declineURL string, zone *time.Location) assignmentEmailData {
	d := assignmentEmailData{
		Assignment: a,
		Client:     a.ClientDisplay(),
		Start:      utils.FormatDateTime(a.StartTime, zone),
		End:        utils.FormatDateTime(a.EndTime, zone),
		Location:   inviteLocation(a.Assignment),
		AcceptURL:  acceptURL,
		DeclineURL: declineURL,
	}
	if a.TotalPaymentCents != nil {
		d.PayableUSD = FormatUSD(*a.TotalPaymentCents)
	}
	if a.CompletedAt != nil {
		d.CompletedAt = utils.FormatDateTime(*a.CompletedAt, zone)
	}
	return d
}

// FormatUSD renders integer cents as a dollar string, e.g. 12050 ->
// "$120.50".
func FormatUSD(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const newAssignmentBody = `<html><body>
<p>Hello {{.Assignment.InterpreterName}},</p>
<p>You have a new interpretation assignment offer:</p>
<ul>
<li><b>Assignment:</b> #{{.Assignment.ID}}</li>
<li><b>Client:</b> {{.Client}}</li>
<li><b>Service:</b> {{.Assignment.ServiceTypeName}}</li>
<li><b>Languages:</b> {{.Assignment.SourceLanguage}} to {{.Assignment.TargetLanguage}}</li>
<li><b>Start:</b> {{.Start}}</li>
<li><b>End:</b> {{.End}}</li>
<li><b>Location:</b> {{.Location}}</li>
</ul>
{{if .Assignment.SpecialRequirements}}<p><b>Special requirements:</b> {{.Assignment.SpecialRequirements}}</p>{{end}}
<p>
<a href="{{.AcceptURL}}">Accept Assignment</a> &nbsp;|&nbsp;
<a href="{{.DeclineURL}}">Decline Assignment</a>
</p>
<p>This offer link expires in 24 hours.</p>
</body></html>`

const confirmedBody = `<html><body>
<p>Hello {{.Assignment.InterpreterName}},</p>
<p>Thank you for accepting assignment #{{.Assignment.ID}}. It is now confirmed.</p>
<ul>
<li><b>Client:</b> {{.Client}}</li>
<li><b>Service:</b> {{.Assignment.ServiceTypeName}}</li>
<li><b>Start:</b> {{.Start}}</li>
<li><b>End:</b> {{.End}}</li>
<li><b>Location:</b> {{.Location}}</li>
{{if .PayableUSD}}<li><b>Payment:</b> {{.PayableUSD}}</li>{{end}}
</ul>
<p>A calendar invitation is attached.</p>
</body></html>`

const cancelledBody = `<html><body>
<p>Hello,</p>
<p>Assignment #{{.Assignment.ID}} scheduled for {{.Start}} has been cancelled.</p>
<p>If you had accepted this assignment, no further action is required.</p>
</body></html>`

const completedBody = `<html><body>
<p>Hello {{.Assignment.InterpreterName}},</p>
<p>Assignment #{{.Assignment.ID}} was completed on {{.CompletedAt}}.</p>
{{if .PayableUSD}}<p>Your payment of {{.PayableUSD}} is being processed.</p>{{end}}
<p>Thank you for your work.</p>
</body></html>`

const noShowBody = `<html><body>
<p>Hello,</p>
<p>Assignment #{{.Assignment.ID}} scheduled for {{.Start}} has been marked as a no-show.</p>
<p>Our staff will follow up with you shortly.</p>
</body></html>`

// welcomeBody greets a freshly registered user; sent asynchronously via
// the mail queue.
var welcomeTmpl = tmpl("welcome", `<html><body>
<p>Hello {{.Name}},</p>
<p>Welcome to DBD International. Your {{.Role}} account is ready.</p>
<p>You can sign in at <a href="{{.BaseURL}}">{{.BaseURL}}</a>.</p>
</body></html>`)

// quoteReadyTmpl tells a client their quote has been issued.
var quoteReadyTmpl = tmpl("quote_ready", `<html><body>
<p>Hello {{.Name}},</p>
<p>Your quote {{.Reference}} is ready: <b>{{.TotalUSD}}</b> (valid until {{.ValidUntil}}).</p>
<p>Sign in to review and accept it.</p>
</body></html>`)

// quoteReceivedTmpl acknowledges a public enquiry.
var quoteReceivedTmpl = tmpl("quote_received", `<html><body>
<p>Hello {{.Name}},</p>
<p>We received your quote request and will get back to you within one business day.</p>
</body></html>`)
