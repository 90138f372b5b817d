package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "telecare/database/repository/booking"
	"telecare/models"
	"telecare/services/notification"
	"telecare/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ReminderWorker delivers the delayed reminders queued by ScheduleLocal.
type ReminderWorker struct {
	srv      *asynq.Server
	bookings bookingRepo.BookingRepository
	gateway  notification.Gateway
	logger   *zap.Logger
}

func NewReminderWorker(redisOpt asynq.RedisConnOpt, bookings bookingRepo.BookingRepository, gateway notification.Gateway, logger *zap.Logger) *ReminderWorker {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	return &ReminderWorker{srv: srv, bookings: bookings, gateway: gateway, logger: logger}
}

// Start runs the worker in the background, retrying startup with backoff.
func (w *ReminderWorker) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendReminder, w.HandleReminder)

	go func() {
		w.logger.Info("Starting reminder worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(mux)
			if err == nil {
				return
			}
			w.logger.Error("Reminder worker failed to start",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if errors.Is(err, asynq.ErrServerClosed) || attempts == maxAttempts {
				return
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
}

func (w *ReminderWorker) Shutdown() {
	w.srv.Shutdown()
}

// HandleReminder pushes the reminder unless the booking has moved on. A
// failed push is returned so asynq retries it.
func (w *ReminderWorker) HandleReminder(ctx context.Context, task *asynq.Task) error {
	p, err := tasks.ParseReminder(task)
	if err != nil {
		w.logger.Error("Invalid reminder payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	b, err := w.bookings.GetByID(ctx, p.BookingID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		w.logger.Warn("Reminder for unknown booking dropped", zap.String("bookingID", p.BookingID))
		return nil
	}
	if err != nil {
		return err
	}
	if b.Status != models.StatusConfirmed && b.Status != models.StatusReady {
		w.logger.Debug("Reminder skipped, booking no longer upcoming",
			zap.String("bookingID", b.ID), zap.String("status", string(b.Status)))
		return nil
	}

	if err := w.gateway.SendToUser(ctx, p.UserID, p.Push); err != nil {
		w.logger.Error("Failed to deliver reminder",
			zap.String("bookingID", b.ID), zap.String("userID", p.UserID), zap.Error(err))
		return err
	}
	w.logger.Info("Reminder delivered", zap.String("bookingID", b.ID), zap.String("userID", p.UserID))
	return nil
}
