package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telecare/models"

	"go.uber.org/zap"
)

// PromoteToReady moves a confirmed booking starting within ReadyBuffer to ready.
func (s *DefaultBookingService) PromoteToReady(ctx context.Context, bookingID string, now time.Time) (bool, error) {
	b, err := s.transition(ctx, bookingID, func(ctx context.Context, b *models.Booking) (func(), error) {
		if b.Status != models.StatusConfirmed || !within(b.ScheduledAt, now, s.policy.ReadyBuffer) {
			return nil, errNoChange
		}
		if err := moveTo(b, models.StatusReady); err != nil {
			return nil, err
		}
		b.CanStartCall = true
		return nil, nil
	})
	if changed, err := settled(err); !changed {
		return false, err
	}

	s.Logger.Info("Booking promoted to ready", zap.String("bookingID", b.ID))
	s.notify(ctx, b.ProfessionalID, models.PushPayload{
		Title: "Consultation starting soon",
		Body:  fmt.Sprintf("Your consultation with %s starts at %s", displayName(b.PatientName, "a patient"), b.Time),
		Data:  bookingData(b),
	})
	return true, nil
}

// ExpireEmergency rejects an emergency nobody answered before its deadline.
// Unconfirmed emergencies never hold funds, so nothing is refunded.
func (s *DefaultBookingService) ExpireEmergency(ctx context.Context, bookingID string, now time.Time) (bool, error) {
	b, err := s.transition(ctx, bookingID, func(ctx context.Context, b *models.Booking) (func(), error) {
		if b.Status != models.StatusEmergencyPending || !emergencyExpired(b, now) {
			return nil, errNoChange
		}
		if err := moveTo(b, models.StatusRejected); err != nil {
			return nil, err
		}
		b.CancellationReason = emergencyExpiredReason
		return nil, nil
	})
	if changed, err := settled(err); !changed {
		return false, err
	}

	s.Logger.Info("Emergency expired", zap.String("bookingID", b.ID))
	s.notify(ctx, b.PatientID, models.PushPayload{
		Title: "No response to your emergency request",
		Body:  "The professional did not respond in time. Please try someone else.",
		Data:  bookingData(b),
	})
	return true, nil
}

// SendReminder pushes the start reminder once. The flag is only set after a
// successful push so a failed delivery is retried by the next sweep.
func (s *DefaultBookingService) SendReminder(ctx context.Context, bookingID string, now time.Time) (bool, error) {
	_, err := s.transition(ctx, bookingID, func(ctx context.Context, b *models.Booking) (func(), error) {
		if b.Status != models.StatusConfirmed || b.ReminderSent || !within(b.ScheduledAt, now, s.policy.ReminderWindow) {
			return nil, errNoChange
		}
		if s.Notifier != nil {
			minutes := int(b.ScheduledAt.Sub(now).Round(time.Minute) / time.Minute)
			err := s.Notifier.SendToUser(ctx, b.PatientID, models.PushPayload{
				Title: "Consultation reminder",
				Body:  fmt.Sprintf("Your consultation with %s starts in %d minutes", displayName(b.ProfessionalName, "your professional"), minutes),
				Data:  bookingData(b),
			})
			if err != nil {
				return nil, fmt.Errorf("reminder push failed: %w", err)
			}
		}
		b.ReminderSent = true
		return nil, nil
	})
	return settled(err)
}

// within reports whether at lies in (now, now+window].
func within(at, now time.Time, window time.Duration) bool {
	until := at.Sub(now)
	return until > 0 && until <= window
}

func settled(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNoChange):
		return false, nil
	}
	return false, err
}
