package email

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"shopmap/internal/config"
	"shopmap/internal/models"
)

// Recipients looks up who to email.
type Recipients interface {
	GetAdminEmails(ctx context.Context) ([]string, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// Mailer delivers rendered messages. *Service implements it.
type Mailer interface {
	IsEnabled() bool
	SendAsync(to []string, subject, htmlBody, textBody string)
}

// Notifier sends email notifications for moderation events.
type Notifier struct {
	mailer    Mailer
	templates *Templates
	users     Recipients
}

// NewNotifier creates a new email notifier.
func NewNotifier(cfg *config.Config, users Recipients) *Notifier {
	return newNotifier(NewService(cfg), NewTemplates(cfg), users)
}

func newNotifier(mailer Mailer, templates *Templates, users Recipients) *Notifier {
	return &Notifier{mailer: mailer, templates: templates, users: users}
}

func (n *Notifier) adminEmails(ctx context.Context) []string {
	emails, err := n.users.GetAdminEmails(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to get admin emails")
		return nil
	}
	if len(emails) == 0 {
		log.Debug().Msg("no admin emails found for notification")
	}
	return emails
}

func (n *Notifier) ownerEmail(ctx context.Context, loc *models.Location) []string {
	owner, err := n.users.GetUserByID(ctx, loc.OwnerID)
	if err != nil {
		log.Error().Err(err).Str("owner_id", loc.OwnerID.String()).Msg("failed to get location owner")
		return nil
	}
	if owner.Email == "" {
		return nil
	}
	return []string{owner.Email}
}

// NotifyLocationSubmitted tells admins a new location needs review.
func (n *Notifier) NotifyLocationSubmitted(ctx context.Context, loc *models.Location) {
	if !n.mailer.IsEnabled() {
		return
	}
	subject, htmlBody, textBody := n.templates.LocationSubmitted(loc, false)
	n.mailer.SendAsync(n.adminEmails(ctx), subject, htmlBody, textBody)
}

// NotifyLocationResubmitted tells admins an edited location needs review again.
func (n *Notifier) NotifyLocationResubmitted(ctx context.Context, loc *models.Location) {
	if !n.mailer.IsEnabled() {
		return
	}
	subject, htmlBody, textBody := n.templates.LocationSubmitted(loc, true)
	n.mailer.SendAsync(n.adminEmails(ctx), subject, htmlBody, textBody)
}

// NotifyLocationApproved tells the owner their location is on the map.
func (n *Notifier) NotifyLocationApproved(ctx context.Context, loc *models.Location) {
	if !n.mailer.IsEnabled() {
		return
	}
	subject, htmlBody, textBody := n.templates.LocationApproved(loc)
	n.mailer.SendAsync(n.ownerEmail(ctx, loc), subject, htmlBody, textBody)
}

// NotifyLocationRejected tells the owner why their location was rejected.
func (n *Notifier) NotifyLocationRejected(ctx context.Context, loc *models.Location) {
	if !n.mailer.IsEnabled() {
		return
	}
	subject, htmlBody, textBody := n.templates.LocationRejected(loc)
	n.mailer.SendAsync(n.ownerEmail(ctx, loc), subject, htmlBody, textBody)
}

// NotifyPendingDigest reminds admins of locations waiting longer than age.
func (n *Notifier) NotifyPendingDigest(ctx context.Context, locs []models.Location, age time.Duration) {
	if !n.mailer.IsEnabled() || len(locs) == 0 {
		return
	}
	subject, htmlBody, textBody := n.templates.PendingDigest(locs, age)
	n.mailer.SendAsync(n.adminEmails(ctx), subject, htmlBody, textBody)
}
