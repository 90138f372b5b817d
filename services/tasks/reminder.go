package tasks

import (
	"encoding/json"

	"telecare/models"

	"github.com/hibiken/asynq"
)

const TypeSendReminder = "reminder:send"

// NewReminderTask builds a reminder task processed at payload.FireAt. The task
// id is derived from the booking so re-scheduling the same reminder is a no-op.
func NewReminderTask(payload models.ReminderPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(payload.FireAt),
		asynq.TaskID("reminder:" + payload.BookingID + ":" + payload.UserID),
		asynq.MaxRetry(3),
	}

	return task, opts, nil
}

// ParseReminder decodes a reminder task payload.
func ParseReminder(task *asynq.Task) (models.ReminderPayload, error) {
	var p models.ReminderPayload
	err := json.Unmarshal(task.Payload(), &p)
	return p, err
}
