package notifications

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/config"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

func TestNewEmailServiceRequiresConfig(t *testing.T) {
	_, err := NewEmailService(config.SMTPSettings{}, zerolog.Nop())
	if err == nil {
		t.Error("expected error for empty SMTP settings")
	}

	_, err = NewEmailService(config.SMTPSettings{Host: "mail.example.com", Port: 587, From: "crew@example.com"}, zerolog.Nop())
	if err != nil {
		t.Errorf("unexpected error for valid settings: %v", err)
	}
}

func TestInviteTemplateRenders(t *testing.T) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	var buf bytes.Buffer
	data := InviteData{
		OrgName:     "Ironbeam Steel",
		InviterName: "Dana",
		Role:        "Member",
		InviteLink:  "https://crew.example.com/invite/abc",
		ExpiresAt:   time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := tmpl.ExecuteTemplate(&buf, "invite.html", data); err != nil {
		t.Fatalf("execute invite template: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Ironbeam Steel", "Dana", "Member", "https://crew.example.com/invite/abc"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered invite missing %q", want)
		}
	}
}

func TestTimesheetDecisionTemplateRenders(t *testing.T) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	var buf bytes.Buffer
	data := TimesheetDecisionData{
		OrgName:      "Ironbeam Steel",
		PersonName:   "Jo Rivera",
		WorkDate:     time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC),
		Hours:        8,
		Approved:     false,
		DecisionNote: "wrong cost code",
	}
	if err := tmpl.ExecuteTemplate(&buf, "timesheet_decision.html", data); err != nil {
		t.Fatalf("execute decision template: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "rejected") {
		t.Error("rejected decision should render rejection copy")
	}
	if !strings.Contains(out, "wrong cost code") {
		t.Error("decision note should be rendered")
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	svc := &EmailService{config: config.SMTPSettings{From: "crew@example.com"}}
	msg := string(svc.buildMessage([]string{"p@example.com"}, "Hello", "<p>hi</p>"))

	if !strings.Contains(msg, "From: crew@example.com\r\n") {
		t.Error("missing From header")
	}
	if !strings.Contains(msg, "To: p@example.com\r\n") {
		t.Error("missing To header")
	}
	if !strings.Contains(msg, "Content-Type: text/html") {
		t.Error("missing content type")
	}
	if !strings.HasSuffix(msg, "<p>hi</p>") {
		t.Error("body should follow headers")
	}
}

type mockSinkStore struct {
	created []*models.Notification
	err     error
}

func (m *mockSinkStore) CreateNotification(_ context.Context, n *models.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, n)
	return nil
}

func TestSinkCreate(t *testing.T) {
	store := &mockSinkStore{}
	sink := NewSink(store, zerolog.Nop())

	orgID, userID := uuid.New(), uuid.New()
	sink.Create(context.Background(), orgID, userID, models.EventTimesheetApproved, `{"entry_id":"x"}`)

	if len(store.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(store.created))
	}
	if store.created[0].UserID != userID || store.created[0].EventType != models.EventTimesheetApproved {
		t.Error("notification fields not carried through")
	}
}

func TestSinkCreateSwallowsFailure(t *testing.T) {
	sink := NewSink(&mockSinkStore{err: errors.New("db down")}, zerolog.Nop())
	// Must not panic; failures are discarded.
	sink.Create(context.Background(), uuid.New(), uuid.New(), models.EventSeatAssigned, "")
}
