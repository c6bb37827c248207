package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TaskFollowUpReminder = "leads.followup_reminder"

// FollowUpReminderPayload identifies a reminder for one follow-up booking.
// ScheduledFor is the followUpStart the reminder was enqueued for; a later
// booking makes the task stale.
type FollowUpReminderPayload struct {
	LeadID       string    `json:"leadId"`
	ScheduledFor time.Time `json:"scheduledFor"`
}

func NewFollowUpReminderTask(payload FollowUpReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpReminder, data), nil
}

func ParseFollowUpReminderPayload(task *asynq.Task) (FollowUpReminderPayload, error) {
	var payload FollowUpReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpReminderPayload{}, err
	}
	return payload, nil
}

// followUpReminderTaskID makes repeated bookings of the same slot enqueue once.
func followUpReminderTaskID(payload FollowUpReminderPayload) string {
	return fmt.Sprintf("%s:%s:%d", TaskFollowUpReminder, payload.LeadID, payload.ScheduledFor.UTC().UnixMicro())
}
