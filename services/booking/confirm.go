package booking

import (
	"context"
	"errors"
	"fmt"

	"telecare/models"
	"telecare/services/escrow"

	"go.uber.org/zap"
)

func (s *DefaultBookingService) Confirm(ctx context.Context, bookingID, professionalID string) (*models.Booking, error) {
	b, err := s.confirm(ctx, bookingID, professionalID)
	s.observe("confirm", err)
	return b, err
}

func (s *DefaultBookingService) confirm(ctx context.Context, bookingID, professionalID string) (*models.Booking, error) {
	b, err := s.transition(ctx, bookingID, func(ctx context.Context, b *models.Booking) (func(), error) {
		if b.ProfessionalID != professionalID {
			return nil, ErrUnauthorized
		}
		next := models.StatusConfirmed
		if b.IsEmergency {
			next = models.StatusEmergencyConfirmed
			pending := b.Status == models.StatusEmergencyPending || b.Status == models.StatusRejected
			if pending && emergencyExpired(b, s.now()) {
				return nil, ErrEmergencyExpired
			}
		}
		if err := moveTo(b, next); err != nil {
			return nil, err
		}

		receipt, err := s.Escrow.Hold(ctx, b)
		if errors.Is(err, escrow.ErrInsufficientBalance) {
			return nil, withDetail(ErrInsufficientBalance,
				fmt.Sprintf("booking fee of %d is not covered", b.Fee), nil)
		}
		return s.undoable(b, receipt, err)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Booking confirmed",
		zap.String("bookingID", b.ID),
		zap.String("status", string(b.Status)),
		zap.String("paymentStatus", string(b.PaymentStatus)))

	if !b.IsEmergency {
		s.recomputeQueue(ctx, b)
		b = s.refreshed(ctx, b)
		s.scheduleReminder(ctx, b)
	}

	body := fmt.Sprintf("%s confirmed your consultation", displayName(b.ProfessionalName, "Your professional"))
	if !b.IsEmergency {
		body += fmt.Sprintf(" at %s on %s", b.Time, b.Date)
	}
	s.notify(ctx, b.PatientID, models.PushPayload{
		Title: "Booking confirmed",
		Body:  body,
		Data:  bookingData(b),
	})
	return b, nil
}

// scheduleReminder queues a device reminder ReminderLead before the start.
func (s *DefaultBookingService) scheduleReminder(ctx context.Context, b *models.Booking) {
	if s.Notifier == nil || b.ScheduledAt.IsZero() {
		return
	}
	fireAt := b.ScheduledAt.Add(-s.policy.ReminderLead)
	if !fireAt.After(s.now()) {
		return
	}
	err := s.Notifier.ScheduleLocal(ctx, models.ReminderPayload{
		UserID:    b.PatientID,
		BookingID: b.ID,
		FireAt:    fireAt,
		Push: models.PushPayload{
			Title: "Upcoming consultation",
			Body:  fmt.Sprintf("Your consultation with %s starts at %s", displayName(b.ProfessionalName, "your professional"), b.Time),
			Data:  bookingData(b),
		},
	})
	if err != nil {
		s.Logger.Warn("Failed to schedule reminder", zap.String("bookingID", b.ID), zap.Error(err))
	}
}

func (s *DefaultBookingService) Reject(ctx context.Context, bookingID, professionalID, reason string) (*models.Booking, error) {
	b, err := s.transition(ctx, bookingID, func(ctx context.Context, b *models.Booking) (func(), error) {
		if b.ProfessionalID != professionalID {
			return nil, ErrUnauthorized
		}
		if err := moveTo(b, models.StatusRejected); err != nil {
			return nil, err
		}
		b.CancellationReason = reason
		receipt, err := s.Escrow.Refund(ctx, b)
		return s.undoable(b, receipt, err)
	})
	s.observe("reject", err)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Booking rejected",
		zap.String("bookingID", b.ID), zap.String("paymentStatus", string(b.PaymentStatus)))
	s.notify(ctx, b.PatientID, models.PushPayload{
		Title: "Booking declined",
		Body:  fmt.Sprintf("%s could not take your consultation", displayName(b.ProfessionalName, "The professional")),
		Data:  bookingData(b),
	})
	return b, nil
}

func (s *DefaultBookingService) Cancel(ctx context.Context, bookingID, actorID, reason string) (*models.Booking, error) {
	b, err := s.transition(ctx, bookingID, func(ctx context.Context, b *models.Booking) (func(), error) {
		if !isParty(b, actorID) {
			return nil, ErrUnauthorized
		}
		if err := moveTo(b, models.StatusCancelled); err != nil {
			return nil, err
		}
		b.CancellationReason = reason
		b.CanStartCall = false
		receipt, err := s.Escrow.Refund(ctx, b)
		return s.undoable(b, receipt, err)
	})
	s.observe("cancel", err)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Booking cancelled",
		zap.String("bookingID", b.ID), zap.String("actorID", actorID))
	s.recomputeQueue(ctx, b)

	other := b.ProfessionalID
	if actorID == b.ProfessionalID {
		other = b.PatientID
	}
	s.notify(ctx, other, models.PushPayload{
		Title: "Booking cancelled",
		Body:  "A consultation you were part of has been cancelled",
		Data:  bookingData(b),
	})
	return b, nil
}
