package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingRepo "telecare/database/repository/booking"
	"telecare/models"
	"telecare/services/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	sent []string
	err  error
}

func (g *fakeGateway) SendToUser(ctx context.Context, userID string, payload models.PushPayload) error {
	if g.err != nil {
		return g.err
	}
	g.sent = append(g.sent, userID)
	return nil
}

func (g *fakeGateway) ScheduleLocal(ctx context.Context, reminder models.ReminderPayload) error {
	return nil
}

func reminderTask(t *testing.T, bookingID string) *asynq.Task {
	t.Helper()
	task, _, err := tasks.NewReminderTask(models.ReminderPayload{
		UserID:    "p1",
		BookingID: bookingID,
		FireAt:    time.Now().Add(time.Minute),
		Push:      models.PushPayload{Title: "Upcoming consultation"},
	})
	require.NoError(t, err)
	return task
}

func TestHandleReminder(t *testing.T) {
	ctx := context.Background()
	repo := bookingRepo.NewMemoryBookingRepo()
	seedSweepCandidates(t, repo)

	cancelled, err := repo.GetByID(ctx, "later")
	require.NoError(t, err)
	cancelled.Status = models.StatusCancelled
	require.NoError(t, repo.Update(ctx, cancelled, cancelled.Version))

	gw := &fakeGateway{}
	w := &ReminderWorker{bookings: repo, gateway: gw, logger: zap.NewNop()}

	require.NoError(t, w.HandleReminder(ctx, reminderTask(t, "soon")))
	require.NoError(t, w.HandleReminder(ctx, reminderTask(t, "later")))
	require.NoError(t, w.HandleReminder(ctx, reminderTask(t, "missing")))
	assert.Equal(t, []string{"p1"}, gw.sent)

	gw.err = errors.New("fcm unavailable")
	assert.Error(t, w.HandleReminder(ctx, reminderTask(t, "soon")))

	err = w.HandleReminder(ctx, asynq.NewTask(tasks.TypeSendReminder, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
