package mailer

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/dbdint/agency-api/internal/model"
	"github.com/dbdint/agency-api/internal/utils"
)

// Invite describes one calendar invitation attached to an assignment
// email.  Ref is the per-send reference so that re-sent invitations
// never collide with an earlier UID.
type Invite struct {
	Assignment model.AssignmentDetail
	Ref        string // short per-send reference, e.g. "a1b2c3d4"
	Organizer  string // From address, used as ORGANIZER
	OrgName    string // display name for the organizer
	Attendee   string // interpreter email, RSVP requested
	Domain     string // UID domain part
	Zone       *time.Location
}

// BuildICS renders an iCalendar REQUEST for an assignment.  Every send
// gets a fresh UID so mail clients treat it as a new invitation rather
// than an update to a previously declined one.
func BuildICS(inv Invite) string {
	a := inv.Assignment
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//DBD International//Assignment Scheduler//EN")

	uid := fmt.Sprintf("assignment-%d-%s@%s", a.ID, inv.Ref, inv.Domain)
	ev := cal.AddEvent(uid)
	now := time.Now().UTC()
	ev.SetDtStampTime(now)
	ev.SetCreatedTime(now)
	ev.SetStartAt(a.StartTime.UTC())
	ev.SetEndAt(a.EndTime.UTC())
	ev.SetSummary(fmt.Sprintf("Interpretation: %s (%s to %s) [Ref: %s]",
		a.ServiceTypeName, a.SourceLanguage, a.TargetLanguage, inv.Ref))
	ev.SetLocation(inviteLocation(a.Assignment))
	ev.SetDescription(inviteDescription(a, inv.Ref, inv.Zone))
	ev.SetOrganizer("mailto:"+inv.Organizer, ics.WithCN(inv.OrgName))
	ev.AddAttendee(inv.Attendee,
		ics.CalendarUserTypeIndividual,
		ics.ParticipationStatusNeedsAction,
		ics.ParticipationRoleReqParticipant,
		ics.WithRSVP(true))
	return cal.Serialize()
}

func inviteLocation(a model.Assignment) string {
	parts := []string{a.Location}
	if a.City != "" {
		parts = append(parts, a.City)
	}
	if a.State != "" {
		parts = append(parts, a.State)
	}
	if a.ZipCode != "" {
		parts = append(parts, a.ZipCode)
	}
	return strings.Join(parts, ", ")
}

func inviteDescription(a model.AssignmentDetail, ref string, zone *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assignment #%d\n", a.ID)
	fmt.Fprintf(&b, "Client: %s\n", a.ClientDisplay())
	fmt.Fprintf(&b, "Service: %s\n", a.ServiceTypeName)
	fmt.Fprintf(&b, "Languages: %s to %s\n", a.SourceLanguage, a.TargetLanguage)
	fmt.Fprintf(&b, "Start: %s\n", utils.FormatDateTime(a.StartTime, zone))
	fmt.Fprintf(&b, "End: %s\n", utils.FormatDateTime(a.EndTime, zone))
	fmt.Fprintf(&b, "Location: %s\n", inviteLocation(a.Assignment))
	if a.SpecialRequirements != nil && *a.SpecialRequirements != "" {
		fmt.Fprintf(&b, "Special requirements: %s\n", *a.SpecialRequirements)
	}
	fmt.Fprintf(&b, "Rate: %s/hour\n", FormatUSD(a.RateCents))
	fmt.Fprintf(&b, "Reference: %s\n", ref)
	return b.String()
}
