package email

import (
	"strings"
	"testing"

	"shopmap/internal/config"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *config.Config
		wantEnabled bool
	}{
		{
			name: "enabled when SMTP host and sender are configured",
			cfg: &config.Config{
				SMTPHost: "smtp.example.com",
				SMTPPort: 587,
				SMTPFrom: "noreply@example.com",
			},
			wantEnabled: true,
		},
		{
			name: "disabled when SMTPHost is empty",
			cfg: &config.Config{
				SMTPPort: 587,
				SMTPFrom: "noreply@example.com",
			},
			wantEnabled: false,
		},
		{
			name: "disabled when SMTPFrom is empty",
			cfg: &config.Config{
				SMTPHost: "smtp.example.com",
				SMTPPort: 587,
			},
			wantEnabled: false,
		},
		{
			name:        "disabled with empty config",
			cfg:         &config.Config{},
			wantEnabled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.cfg)
			if svc.IsEnabled() != tt.wantEnabled {
				t.Errorf("IsEnabled() = %v, want %v", svc.IsEnabled(), tt.wantEnabled)
			}
		})
	}
}

func TestService_Send_Disabled(t *testing.T) {
	svc := NewService(&config.Config{})

	if err := svc.Send([]string{"test@example.com"}, "Test", "<p>HTML</p>", "Text"); err != nil {
		t.Errorf("Send() error = %v, want nil when disabled", err)
	}
}

func TestService_Send_NoRecipients(t *testing.T) {
	svc := NewService(&config.Config{
		SMTPHost: "smtp.invalid",
		SMTPPort: 25,
		SMTPFrom: "noreply@example.com",
	})

	if err := svc.Send(nil, "Test", "<p>HTML</p>", "Text"); err != nil {
		t.Errorf("Send() error = %v, want nil with no recipients", err)
	}
}

func TestService_BuildMessage(t *testing.T) {
	svc := NewService(&config.Config{
		SiteTitle: "Shop Map",
		SMTPHost:  "smtp.example.com",
		SMTPFrom:  "noreply@example.com",
	})

	msg := svc.buildMessage([]string{"a@example.com", "b@example.com"}, "Hello", "<p>hi</p>", "hi")

	for _, want := range []string{
		"From: Shop Map <noreply@example.com>\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Subject: Hello\r\n",
		"MIME-Version: 1.0\r\n",
		"multipart/alternative; boundary=\"" + boundary + "\"",
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\nhi\r\n",
		"Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n<p>hi</p>\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}

	if !strings.HasSuffix(msg, "--"+boundary+"--\r\n") {
		t.Error("message does not end with the closing boundary")
	}
	if strings.Index(msg, "text/plain") > strings.Index(msg, "text/html") {
		t.Error("plain text part should come before HTML")
	}
}

func TestService_BuildMessage_TextOnly(t *testing.T) {
	svc := NewService(&config.Config{SMTPFrom: "noreply@example.com"})

	msg := svc.buildMessage([]string{"a@example.com"}, "Hello", "", "hi")
	if strings.Contains(msg, "text/html") {
		t.Error("empty HTML body should be omitted")
	}
}
