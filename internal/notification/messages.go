package notification

import (
	"fmt"
	"strings"
	"time"

	"leadflow_backend/internal/leads/domain"
)

func followUpReminderMessage(lead domain.Lead, loc *time.Location) string {
	name := strings.TrimSpace(lead.FirstName)
	if name == "" {
		name = "there"
	}
	if lead.FollowUpStart == nil {
		return fmt.Sprintf("Hi %s, we will call you back shortly.", name)
	}
	start := lead.FollowUpStart.In(loc)
	return fmt.Sprintf("Hi %s, a reminder that we will call you on %s at %s.",
		name, start.Format("Mon 2 Jan"), start.Format("15:04"))
}
