package notification

import (
	"context"
	"errors"
	"strings"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/phone"
)

const ChannelSMS = "sms"

var (
	errNoPhone      = errors.New("lead has no phone number")
	errInvalidPhone = errors.New("lead phone number is not dialable")
	errEmptyMessage = errors.New("reminder message is empty")
)

// Dispatcher hands a reminder for a lead to an outbound channel.
type Dispatcher interface {
	SendReminder(ctx context.Context, lead domain.Lead, message string) error
}

// SMSSender sends a text message to an E.164 number.
type SMSSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// SMSDispatcher delivers reminders as SMS.
type SMSDispatcher struct {
	sender SMSSender
	region string
}

// NewSMSDispatcher resolves national numbers against region.
func NewSMSDispatcher(sender SMSSender, region string) *SMSDispatcher {
	return &SMSDispatcher{sender: sender, region: region}
}

func (d *SMSDispatcher) SendReminder(ctx context.Context, lead domain.Lead, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return errEmptyMessage
	}
	if strings.TrimSpace(lead.Phone) == "" {
		return errNoPhone
	}
	if !phone.IsValid(lead.Phone, d.region) {
		return errInvalidPhone
	}
	return d.sender.SendMessage(ctx, phone.NormalizeE164In(lead.Phone, d.region), message)
}

var _ Dispatcher = (*SMSDispatcher)(nil)
