package notifier

import (
	"bytes"
	"fmt"

	"github.com/ibeckermayer/tweetscope/internal/config"
	"github.com/ibeckermayer/tweetscope/internal/notifier/providers"
	"github.com/ibeckermayer/tweetscope/internal/report"
)

// Notifier sends alert e-mails for intelligence reports
type Notifier struct {
	sender Sender
}

// Sender defines the interface for email sending
type Sender interface {
	Send(to []string, subject, htmlBody, plainBody string) error
}

// New creates a new notifier with the given sender
func New(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// NewFromConfig creates a notifier based on configuration
func NewFromConfig(cfg config.EmailConfig) (*Notifier, error) {
	var sender Sender

	switch cfg.Provider {
	case "smtp", "":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("smtp host is required")
		}
		sender = providers.NewSMTPSender(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPass,
			cfg.FromAddr,
		)
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}

	return New(sender), nil
}

// SendAlerts mails the report to every recipient. It reports false without
// sending when the report carries no alerts.
func (n *Notifier) SendAlerts(r *report.Report, to []string) (bool, error) {
	if len(r.Alerts) == 0 {
		return false, nil
	}
	if len(to) == 0 {
		return false, fmt.Errorf("no recipients configured")
	}

	var html bytes.Buffer
	if err := r.RenderHTML(&html); err != nil {
		return false, err
	}
	if err := n.sender.Send(to, r.Subject(), html.String(), r.PlainText()); err != nil {
		return false, err
	}
	return true, nil
}
