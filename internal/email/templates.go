package email

import (
	"fmt"
	"html"
	"strings"
	"time"

	"shopmap/internal/config"
	"shopmap/internal/models"
)

// Templates provides email template generation.
type Templates struct {
	cfg *config.Config
}

// NewTemplates creates a new templates instance.
func NewTemplates(cfg *config.Config) *Templates {
	return &Templates{cfg: cfg}
}

// baseHTML wraps content in a consistent HTML email template.
func (t *Templates) baseHTML(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #0f766e; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
        .footer { background: #f3f4f6; padding: 15px; text-align: center; font-size: 12px; color: #6b7280; border-radius: 0 0 8px 8px; border: 1px solid #e5e7eb; border-top: none; }
        .button { display: inline-block; background: #0f766e; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin: 10px 0; }
        .button:hover { background: #115e59; }
        .info-box { background: white; border: 1px solid #e5e7eb; border-radius: 6px; padding: 15px; margin: 15px 0; }
        .label { font-weight: 600; color: #374151; }
        .value { color: #6b7280; }
        .success { color: #059669; }
        .warning { color: #d97706; }
        .error { color: #dc2626; }
        code { background: #e5e7eb; padding: 2px 6px; border-radius: 4px; font-family: monospace; }
    </style>
</head>
<body>
    <div class="header">
        <h1>%s</h1>
    </div>
    <div class="content">
        %s
    </div>
    <div class="footer">
        <p>This email was sent by %s</p>
        <p><a href="%s">%s</a></p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(t.cfg.SiteTitle), content, html.EscapeString(t.cfg.SiteTitle), t.cfg.BaseURL, t.cfg.BaseURL)
}

func categoryLabel(category string) string {
	if category == models.CategoryBooth {
		return "Booth"
	}
	return "Shop"
}

// locationBox renders the fields shared by every location email.
func locationBox(loc *models.Location) string {
	return fmt.Sprintf(`
        <div class="info-box">
            <p><span class="label">Name:</span> %s</p>
            <p><span class="label">Category:</span> %s</p>
            <p><span class="label">Address:</span> %s</p>
            <p><span class="label">Hours:</span> %s</p>
            <p><span class="label">Coordinates:</span> <code>%s</code></p>
        </div>`,
		html.EscapeString(loc.Name),
		categoryLabel(loc.Category),
		html.EscapeString(loc.Address),
		html.EscapeString(loc.OperatingHours),
		loc.Coordinates,
	)
}

func locationText(loc *models.Location) string {
	return fmt.Sprintf("Name: %s\nCategory: %s\nAddress: %s\nHours: %s\nCoordinates: %s\n",
		loc.Name, categoryLabel(loc.Category), loc.Address, loc.OperatingHours, loc.Coordinates)
}

func (t *Templates) footerText() string {
	return fmt.Sprintf("\n--\n%s\n%s", t.cfg.SiteTitle, t.cfg.BaseURL)
}

// LocationSubmitted generates email for admins when a location needs review.
func (t *Templates) LocationSubmitted(loc *models.Location, resubmitted bool) (subject, htmlBody, textBody string) {
	intro := "A new location has been submitted and requires your review."
	subject = fmt.Sprintf("[%s] New %s pending review: %s", t.cfg.SiteTitle, strings.ToLower(categoryLabel(loc.Category)), loc.Name)
	if resubmitted {
		intro = "A location was edited by its owner and requires your review again."
		subject = fmt.Sprintf("[%s] Resubmitted for review: %s", t.cfg.SiteTitle, loc.Name)
	}

	content := fmt.Sprintf(`
        <p>%s</p>
        %s
        <p style="text-align: center;">
            <a href="%s/admin" class="button">Review in Dashboard</a>
        </p>
    `, intro, locationBox(loc), t.cfg.BaseURL)
	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf("%s\n\n%s\nReview at: %s/admin\n%s",
		intro, locationText(loc), t.cfg.BaseURL, t.footerText())
	return
}

// LocationApproved generates email for the owner when their location is published.
func (t *Templates) LocationApproved(loc *models.Location) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("[%s] '%s' is now on the map", t.cfg.SiteTitle, loc.Name)

	content := fmt.Sprintf(`
        <p>Great news! Your location has been approved and is now visible to everyone.</p>
        %s
        <p><span class="label">Status:</span> <span class="success">Approved</span></p>
        <p style="text-align: center;">
            <a href="%s/" class="button">Open the map</a>
        </p>
    `, locationBox(loc), t.cfg.BaseURL)
	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf("Your location has been approved.\n\n%s\nView it at: %s/\n%s",
		locationText(loc), t.cfg.BaseURL, t.footerText())
	return
}

// LocationRejected generates email for the owner with the rejection reason.
func (t *Templates) LocationRejected(loc *models.Location) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("[%s] '%s' needs changes", t.cfg.SiteTitle, loc.Name)

	content := fmt.Sprintf(`
        <p>Your location was not approved.</p>
        %s
        <p><span class="label">Status:</span> <span class="error">Rejected</span></p>
        <p><span class="label">Reason:</span> %s</p>
        <p>You can edit the location and submit it again.</p>
        <p style="text-align: center;">
            <a href="%s/my-locations" class="button">Edit my locations</a>
        </p>
    `, locationBox(loc), html.EscapeString(loc.RejectionReason), t.cfg.BaseURL)
	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf("Your location was not approved.\n\n%sReason: %s\n\nEdit and resubmit at: %s/my-locations\n%s",
		locationText(loc), loc.RejectionReason, t.cfg.BaseURL, t.footerText())
	return
}

// PendingDigest generates the reminder for locations waiting longer than age.
func (t *Templates) PendingDigest(locs []models.Location, age time.Duration) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("[%s] %d location(s) waiting for review", t.cfg.SiteTitle, len(locs))
	waiting := fmt.Sprintf("%.0f hours", age.Hours())

	var rows, lines strings.Builder
	for i := range locs {
		loc := &locs[i]
		fmt.Fprintf(&rows, `
            <tr>
                <td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td>
                <td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td>
                <td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td>
            </tr>`,
			html.EscapeString(loc.Name),
			categoryLabel(loc.Category),
			loc.CreatedAt.Format("2006-01-02 15:04"),
		)
		fmt.Fprintf(&lines, "- %s (%s), submitted %s\n", loc.Name, categoryLabel(loc.Category), loc.CreatedAt.Format("2006-01-02 15:04"))
	}

	content := fmt.Sprintf(`
        <p>These locations have been pending for more than <span class="warning">%s</span>.</p>
        <table style="width: 100%%; border-collapse: collapse; margin: 15px 0;">
            <thead>
                <tr style="background: #f3f4f6;">
                    <th style="padding: 8px; text-align: left;">Name</th>
                    <th style="padding: 8px; text-align: left;">Category</th>
                    <th style="padding: 8px; text-align: left;">Submitted</th>
                </tr>
            </thead>
            <tbody>%s
            </tbody>
        </table>
        <p style="text-align: center;">
            <a href="%s/admin" class="button">Review in Dashboard</a>
        </p>
    `, waiting, rows.String(), t.cfg.BaseURL)
	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf("These locations have been pending for more than %s:\n\n%s\nReview at: %s/admin\n%s",
		waiting, lines.String(), t.cfg.BaseURL, t.footerText())
	return
}
