package email

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"shopmap/internal/config"
	"shopmap/internal/models"
)

type sentMail struct {
	to      []string
	subject string
}

type fakeMailer struct {
	enabled bool
	mu      sync.Mutex
	sent    []sentMail
}

func (m *fakeMailer) IsEnabled() bool { return m.enabled }

func (m *fakeMailer) SendAsync(to []string, subject, _, _ string) {
	if len(to) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
}

type fakeRecipients struct {
	admins []string
	users  map[uuid.UUID]*models.User
	err    error
}

func (f *fakeRecipients) GetAdminEmails(context.Context) ([]string, error) {
	return f.admins, f.err
}

func (f *fakeRecipients) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func setup(enabled bool) (*Notifier, *fakeMailer, *fakeRecipients, *models.Location) {
	ownerID := uuid.New()
	mailer := &fakeMailer{enabled: enabled}
	recipients := &fakeRecipients{
		admins: []string{"admin@example.com"},
		users: map[uuid.UUID]*models.User{
			ownerID: {ID: ownerID, Email: "owner@example.com"},
		},
	}
	tmpl := NewTemplates(&config.Config{SiteTitle: "Shop Map", BaseURL: "https://map.example.com"})
	loc := &models.Location{
		ID:       uuid.New(),
		Category: models.CategoryShop,
		Name:     "Corner shop",
		OwnerID:  ownerID,
		Status:   models.StatusPending,
	}
	return newNotifier(mailer, tmpl, recipients), mailer, recipients, loc
}

func TestNewNotifier(t *testing.T) {
	notifier := NewNotifier(&config.Config{SiteTitle: "Test"}, nil)

	if notifier == nil {
		t.Fatal("NewNotifier returned nil")
	}
	if notifier.mailer == nil {
		t.Error("Notifier mailer is nil")
	}
	if notifier.templates == nil {
		t.Error("Notifier templates is nil")
	}
}

func TestNotifier_Disabled(t *testing.T) {
	n, mailer, _, loc := setup(false)
	ctx := context.Background()

	n.NotifyLocationSubmitted(ctx, loc)
	n.NotifyLocationResubmitted(ctx, loc)
	n.NotifyLocationApproved(ctx, loc)
	n.NotifyLocationRejected(ctx, loc)
	n.NotifyPendingDigest(ctx, []models.Location{*loc}, time.Hour)

	if len(mailer.sent) != 0 {
		t.Errorf("sent %d emails while disabled", len(mailer.sent))
	}
}

func TestNotifier_Recipients(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		notify  func(n *Notifier, loc *models.Location)
		to      string
		subject string
	}{
		{"submitted goes to admins", func(n *Notifier, loc *models.Location) { n.NotifyLocationSubmitted(ctx, loc) }, "admin@example.com", "pending review"},
		{"resubmitted goes to admins", func(n *Notifier, loc *models.Location) { n.NotifyLocationResubmitted(ctx, loc) }, "admin@example.com", "Resubmitted"},
		{"approved goes to owner", func(n *Notifier, loc *models.Location) { n.NotifyLocationApproved(ctx, loc) }, "owner@example.com", "on the map"},
		{"rejected goes to owner", func(n *Notifier, loc *models.Location) {
			loc.RejectionReason = "blurry photo"
			n.NotifyLocationRejected(ctx, loc)
		}, "owner@example.com", "needs changes"},
		{"digest goes to admins", func(n *Notifier, loc *models.Location) {
			n.NotifyPendingDigest(ctx, []models.Location{*loc}, 48*time.Hour)
		}, "admin@example.com", "waiting for review"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, mailer, _, loc := setup(true)
			tt.notify(n, loc)

			if len(mailer.sent) != 1 {
				t.Fatalf("sent %d emails, want 1", len(mailer.sent))
			}
			got := mailer.sent[0]
			if len(got.to) != 1 || got.to[0] != tt.to {
				t.Errorf("to = %v, want [%s]", got.to, tt.to)
			}
			if !strings.Contains(got.subject, tt.subject) {
				t.Errorf("subject %q does not contain %q", got.subject, tt.subject)
			}
		})
	}
}

func TestNotifier_LookupFailureSendsNothing(t *testing.T) {
	n, mailer, recipients, loc := setup(true)
	recipients.err = errors.New("db down")

	n.NotifyLocationSubmitted(context.Background(), loc)
	n.NotifyLocationApproved(context.Background(), loc)

	if len(mailer.sent) != 0 {
		t.Errorf("sent %d emails after lookup failure", len(mailer.sent))
	}
}

func TestNotifier_OwnerWithoutEmail(t *testing.T) {
	n, mailer, recipients, loc := setup(true)
	recipients.users[loc.OwnerID].Email = ""

	n.NotifyLocationApproved(context.Background(), loc)

	if len(mailer.sent) != 0 {
		t.Errorf("sent %d emails to an owner without address", len(mailer.sent))
	}
}

func TestNotifier_EmptyDigest(t *testing.T) {
	n, mailer, _, _ := setup(true)

	n.NotifyPendingDigest(context.Background(), nil, time.Hour)

	if len(mailer.sent) != 0 {
		t.Error("empty digest should not be sent")
	}
}
