package mailer

import (
	"strings"
	"testing"
	"time"

	"github.com/dbdint/agency-api/internal/model"
)

func sampleDetail() model.AssignmentDetail {
	name := "Acme Corp"
	return model.AssignmentDetail{
		Assignment: model.Assignment{
			ID:         42,
			ClientName: &name,
			StartTime:  time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
			EndTime:    time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC),
			RateCents:  5000,
			Location:   "Suffolk County Courthouse",
			City:       "Boston",
			State:      "MA",
			ZipCode:    "02101",
			Status:     model.StatusConfirmed,
		},
		ServiceTypeName:  "Court Interpretation",
		SourceLanguage:   "English",
		TargetLanguage:   "Spanish",
		InterpreterName:  "Jordan Diaz",
		InterpreterEmail: "jordan@example.test",
	}
}

func TestBuildICSMethodAndUID(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")
	out := BuildICS(Invite{
		Assignment: sampleDetail(),
		Ref:        "a1b2c3d4",
		Organizer:  "scheduler@dbdint.test",
		OrgName:    "DBD International",
		Attendee:   "jordan@example.test",
		Domain:     "dbdint.test",
		Zone:       loc,
	})

	if !strings.Contains(out, "METHOD:REQUEST") {
		t.Error("missing METHOD:REQUEST")
	}
	if !strings.Contains(out, "UID:assignment-42-a1b2c3d4@dbdint.test") {
		t.Error("UID does not carry the per-send ref")
	}
	if !strings.Contains(out, "RSVP=TRUE") {
		t.Error("attendee must request an RSVP")
	}
	if !strings.Contains(out, "mailto:scheduler@dbdint.test") {
		t.Error("organizer address missing")
	}
	if !strings.Contains(out, "DTSTART:20250601T140000Z") {
		t.Error("start time should serialize in UTC")
	}
}

func TestBuildICSDistinctRefsDistinctUIDs(t *testing.T) {
	loc := time.UTC
	base := Invite{
		Assignment: sampleDetail(),
		Organizer:  "scheduler@dbdint.test",
		OrgName:    "DBD International",
		Attendee:   "jordan@example.test",
		Domain:     "dbdint.test",
		Zone:       loc,
	}
	first := base
	first.Ref = "11111111"
	second := base
	second.Ref = "22222222"

	a, b := BuildICS(first), BuildICS(second)
	if strings.Contains(a, "assignment-42-22222222") || strings.Contains(b, "assignment-42-11111111") {
		t.Fatal("refs leaked across builds")
	}
	if !strings.Contains(a, "assignment-42-11111111@dbdint.test") {
		t.Error("first UID wrong")
	}
	if !strings.Contains(b, "assignment-42-22222222@dbdint.test") {
		t.Error("second UID wrong")
	}
}

func TestInviteDescriptionCarriesAllDetails(t *testing.T) {
	d := sampleDetail()
	reqs := "Wheelchair accessible entrance"
	d.SpecialRequirements = &reqs

	out := inviteDescription(d, "a1b2c3d4", time.UTC)
	for _, want := range []string{
		"Assignment #42",
		"Client: Acme Corp",
		"Service: Court Interpretation",
		"Languages: English to Spanish",
		"Location: Suffolk County Courthouse, Boston, MA, 02101",
		"Special requirements: Wheelchair accessible entrance",
		"Rate: $50.00/hour",
		"Reference: a1b2c3d4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("description missing %q:\n%s", want, out)
		}
	}
}

func TestFormatUSD(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{12050, "$120.50"},
		{100000, "$1000.00"},
		{-250, "-$2.50"},
	}
	for _, c := range cases {
		if got := FormatUSD(c.cents); got != c.want {
			t.Errorf("FormatUSD(%d) = %q, want %q", c.cents, got, c.want)
		}
	}
}
