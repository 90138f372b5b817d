package notification

import (
	"context"
	"errors"
	"fmt"

	deviceRepo "telecare/database/repository/device"
	"telecare/models"
	"telecare/services/tasks"

	"firebase.google.com/go/v4/messaging"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Sender is the subset of *messaging.Client used for delivery.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Enqueuer is the subset of *asynq.Client used for delayed reminders.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// FCMGateway sends through Firebase Cloud Messaging and schedules reminders
// on the asynq queue. A nil sender or enqueuer turns that path into a log line.
type FCMGateway struct {
	sender   Sender
	devices  deviceRepo.DeviceRepository
	enqueuer Enqueuer
	logger   *zap.Logger
}

func NewFCMGateway(sender Sender, devices deviceRepo.DeviceRepository, enqueuer Enqueuer, logger *zap.Logger) *FCMGateway {
	return &FCMGateway{sender: sender, devices: devices, enqueuer: enqueuer, logger: logger}
}

func (g *FCMGateway) SendToUser(ctx context.Context, userID string, payload models.PushPayload) error {
	if g.sender == nil {
		g.logger.Info("Push delivery disabled, dropping notification",
			zap.String("userID", userID), zap.String("title", payload.Title))
		return nil
	}

	token, err := g.devices.GetToken(ctx, userID)
	if errors.Is(err, deviceRepo.ErrNoToken) {
		g.logger.Debug("User has no push token", zap.String("userID", userID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("SendToUser: %w", err)
	}

	msg := buildMessage(token, payload)
	if _, err := g.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("SendToUser: failed to send FCM message: %w", err)
	}
	return nil
}

func (g *FCMGateway) ScheduleLocal(ctx context.Context, reminder models.ReminderPayload) error {
	if g.enqueuer == nil {
		g.logger.Info("Reminder queue disabled, dropping reminder",
			zap.String("bookingID", reminder.BookingID), zap.Time("fireAt", reminder.FireAt))
		return nil
	}

	task, opts, err := tasks.NewReminderTask(reminder)
	if err != nil {
		return fmt.Errorf("ScheduleLocal: %w", err)
	}
	if _, err := g.enqueuer.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("ScheduleLocal: failed to enqueue reminder: %w", err)
	}
	return nil
}

// buildMessage maps a payload to an FCM message. High priority pushes get the
// alert channel on Android and immediate delivery on APNS.
func buildMessage(token string, payload models.PushPayload) *messaging.Message {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
	}
	if payload.Priority != models.PriorityHigh {
		return msg
	}

	msg.Android = &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			ChannelID: "high_priority",
			Sound:     "default",
		},
	}
	msg.APNS = &messaging.APNSConfig{
		Headers: map[string]string{
			"apns-priority":  "10",
			"apns-push-type": "alert",
		},
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{Sound: "default"},
		},
	}
	return msg
}
