package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	bookingRepo "telecare/database/repository/booking"
	"telecare/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedConfirmed(t *testing.T, repo *bookingRepo.MemoryBookingRepo, n int) {
	t.Helper()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	// Insert in reverse so order comes from scheduledAt, not insertion.
	for i := n - 1; i >= 0; i-- {
		at := base.Add(time.Duration(i) * 30 * time.Minute)
		b := &models.Booking{
			ID:             fmt.Sprintf("b%d", i),
			ProfessionalID: "pro-1",
			PatientID:      fmt.Sprintf("pat-%d", i),
			Date:           "2025-06-01",
			Time:           at.Format(models.ClockLayout),
			ScheduledAt:    at,
			Status:         models.StatusPendingConfirmation,
		}
		require.NoError(t, repo.CreateScheduled(context.Background(), b, 100))
		b.Status = models.StatusConfirmed
		require.NoError(t, repo.Update(context.Background(), b, b.Version))
	}
}

func TestRecompute_AssignsByScheduledInstant(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	seedConfirmed(t, repo, 4)
	svc := NewDefaultQueueService(repo, zap.NewNop())

	queue, err := svc.Recompute(context.Background(), "pro-1", "2025-06-01")
	require.NoError(t, err)
	require.Len(t, queue, 4)
	for i, b := range queue {
		assert.Equal(t, fmt.Sprintf("b%d", i), b.ID)
		assert.Equal(t, i+1, b.QueuePosition)
	}
	assert.Equal(t, 3, PositionOf(queue, "b2"))
	assert.Zero(t, PositionOf(queue, "missing"))
}

func TestRecompute_ConcurrentCallsStayContiguous(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	seedConfirmed(t, repo, 6)
	svc := NewDefaultQueueService(repo, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			b, err := repo.GetByID(ctx, id)
			require.NoError(t, err)
			b.Status = models.StatusCancelled
			require.NoError(t, repo.Update(ctx, b, b.Version))
			_, err = svc.Recompute(ctx, "pro-1", "2025-06-01")
			require.NoError(t, err)
		}(fmt.Sprintf("b%d", i*2))
	}
	wg.Wait()

	queue, err := svc.Get(ctx, "pro-1", "2025-06-01")
	require.NoError(t, err)
	require.Len(t, queue, 3)
	for i, b := range queue {
		assert.Equal(t, i+1, b.QueuePosition)
	}
}

func TestRecompute_EmptyDateIsNoop(t *testing.T) {
	svc := NewDefaultQueueService(bookingRepo.NewMemoryBookingRepo(), zap.NewNop())
	queue, err := svc.Recompute(context.Background(), "pro-1", "")
	require.NoError(t, err)
	assert.Nil(t, queue)
}
