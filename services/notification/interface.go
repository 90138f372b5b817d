package notification

import (
	"context"

	"telecare/models"
)

// Gateway delivers pushes now or at a later instant.
type Gateway interface {
	// SendToUser pushes payload to the user's registered device.
	SendToUser(ctx context.Context, userID string, payload models.PushPayload) error
	// ScheduleLocal delivers reminder.Push to reminder.UserID at reminder.FireAt.
	ScheduleLocal(ctx context.Context, reminder models.ReminderPayload) error
}
