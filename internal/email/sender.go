package email

import (
	"context"
	"time"

	"leadflow_backend/platform/config"
)

// Sender delivers transactional lead emails.
type Sender interface {
	SendAssessmentConfirmation(ctx context.Context, toEmail string, data AssessmentConfirmation) error
}

// AssessmentConfirmation describes a booked level-assessment session.
// Start and End are rendered in Location.
type AssessmentConfirmation struct {
	LeadName string
	Start    time.Time
	End      time.Time
	Location *time.Location
}

type NoopSender struct{}

func (NoopSender) SendAssessmentConfirmation(ctx context.Context, toEmail string, data AssessmentConfirmation) error {
	return nil
}

// NewSender returns an SMTP sender when email is enabled, otherwise a NoopSender.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
