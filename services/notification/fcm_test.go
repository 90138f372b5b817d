package notification

import (
	"context"
	"testing"
	"time"

	deviceRepo "telecare/database/repository/device"
	"telecare/models"
	"telecare/services/tasks"

	"firebase.google.com/go/v4/messaging"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent []*messaging.Message
}

func (f *fakeSender) Send(ctx context.Context, message *messaging.Message) (string, error) {
	f.sent = append(f.sent, message)
	return "msg-id", nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestSendToUser_PriorityMapping(t *testing.T) {
	ctx := context.Background()
	devices := deviceRepo.NewMemoryDeviceRepo()
	require.NoError(t, devices.SaveToken(ctx, "pro-1", "token-1"))
	sender := &fakeSender{}
	gw := NewFCMGateway(sender, devices, nil, zap.NewNop())

	require.NoError(t, gw.SendToUser(ctx, "pro-1", models.PushPayload{Title: "Emergency", Priority: models.PriorityHigh}))
	require.NoError(t, gw.SendToUser(ctx, "pro-1", models.PushPayload{Title: "Confirmed"}))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "token-1", sender.sent[0].Token)
	require.NotNil(t, sender.sent[0].Android)
	assert.Equal(t, "high", sender.sent[0].Android.Priority)
	assert.Equal(t, "10", sender.sent[0].APNS.Headers["apns-priority"])
	assert.Nil(t, sender.sent[1].Android)
}

func TestSendToUser_NoTokenIsSkipped(t *testing.T) {
	sender := &fakeSender{}
	gw := NewFCMGateway(sender, deviceRepo.NewMemoryDeviceRepo(), nil, zap.NewNop())

	require.NoError(t, gw.SendToUser(context.Background(), "nobody", models.PushPayload{Title: "x"}))
	assert.Empty(t, sender.sent)
}

func TestScheduleLocal_EnqueuesReminderTask(t *testing.T) {
	enq := &fakeEnqueuer{}
	gw := NewFCMGateway(nil, deviceRepo.NewMemoryDeviceRepo(), enq, zap.NewNop())

	fireAt := time.Date(2025, 6, 1, 8, 45, 0, 0, time.UTC)
	reminder := models.ReminderPayload{
		UserID:    "pat-1",
		BookingID: "b1",
		FireAt:    fireAt,
		Push:      models.PushPayload{Title: "Starting soon"},
	}
	require.NoError(t, gw.ScheduleLocal(context.Background(), reminder))

	require.Len(t, enq.tasks, 1)
	assert.Equal(t, tasks.TypeSendReminder, enq.tasks[0].Type())
	decoded, err := tasks.ParseReminder(enq.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, "b1", decoded.BookingID)
	assert.True(t, decoded.FireAt.Equal(fireAt))
}
