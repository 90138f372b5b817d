package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "telecare/database/repository/booking"
	"telecare/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// emergencyExpiredReason is recorded when the sweep rejects an unanswered emergency.
const emergencyExpiredReason = "emergency request expired without a response"

func (s *DefaultBookingService) CreateEmergency(ctx context.Context, req models.CreateEmergencyRequest) (*models.Booking, error) {
	b, err := s.createEmergency(ctx, req)
	s.observe("create_emergency", err)
	return b, err
}

func (s *DefaultBookingService) createEmergency(ctx context.Context, req models.CreateEmergencyRequest) (*models.Booking, error) {
	if req.PatientID == "" || req.ProfessionalID == "" {
		return nil, withDetail(ErrInvalidRequest, "patient and professional are required", nil)
	}
	medium, err := resolveMedium(req.Medium)
	if err != nil {
		return nil, err
	}

	p, err := s.professional(ctx, req.ProfessionalID)
	if err != nil {
		return nil, err
	}
	if !p.AcceptsEmergency || !p.Online {
		return nil, ErrEmergencyNotAccepted
	}

	dup, err := s.Bookings.HasActiveEmergency(ctx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("duplicate emergency check failed: %w", err)
	}
	if dup {
		return nil, ErrDuplicateActiveEmergency
	}

	balance, err := s.Escrow.Balance(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if balance < s.policy.EmergencyFee {
		return nil, withDetail(ErrInsufficientBalance,
			fmt.Sprintf("emergency fee is %d, available balance is %d", s.policy.EmergencyFee, balance), nil)
	}

	now := s.now()
	deadline := now.Add(s.policy.EmergencyWindow)
	b := &models.Booking{
		ID:                uuid.NewString(),
		ProfessionalID:    p.ID,
		ProfessionalName:  p.Name,
		PatientID:         req.PatientID,
		PatientName:       req.PatientName,
		Medium:            medium,
		Reason:            req.Reason,
		Status:            models.StatusEmergencyPending,
		Fee:               s.policy.EmergencyFee,
		PaymentStatus:     models.PaymentPending,
		IsEmergency:       true,
		EmergencyDeadline: &deadline,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Bookings.CreateEmergency(ctx, b); err != nil {
		if errors.Is(err, bookingRepo.ErrDuplicateEmergency) {
			return nil, ErrDuplicateActiveEmergency
		}
		return nil, fmt.Errorf("failed to create emergency booking: %w", err)
	}

	s.Logger.Info("Emergency booking created",
		zap.String("bookingID", b.ID),
		zap.String("professionalID", b.ProfessionalID),
		zap.Time("deadline", deadline))

	s.notify(ctx, b.ProfessionalID, models.PushPayload{
		Title:    "Emergency consultation request",
		Body:     fmt.Sprintf("%s needs help now. Respond within %s.", displayName(b.PatientName, "A patient"), s.policy.EmergencyWindow),
		Data:     bookingData(b),
		Priority: models.PriorityHigh,
	})
	return b, nil
}

// emergencyExpired reports whether an unanswered emergency has outlived its window.
func emergencyExpired(b *models.Booking, now time.Time) bool {
	return b.IsEmergency && b.EmergencyDeadline != nil && now.After(*b.EmergencyDeadline)
}
