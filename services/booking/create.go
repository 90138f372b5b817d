package booking

import (
	"context"
	"errors"
	"fmt"

	bookingRepo "telecare/database/repository/booking"
	professionalRepo "telecare/database/repository/professional"
	"telecare/models"
	"telecare/services/availability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *DefaultBookingService) Create(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	b, err := s.create(ctx, req)
	s.observe("create", err)
	return b, err
}

func (s *DefaultBookingService) create(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	if req.PatientID == "" || req.ProfessionalID == "" || req.Date == "" || req.Time == "" {
		return nil, withDetail(ErrInvalidRequest, "patient, professional, date and time are required", nil)
	}
	if req.Fee < 0 {
		return nil, withDetail(ErrInvalidRequest, "fee cannot be negative", nil)
	}
	medium, err := resolveMedium(req.Medium)
	if err != nil {
		return nil, err
	}

	p, err := s.professional(ctx, req.ProfessionalID)
	if err != nil {
		return nil, err
	}

	slots, err := s.GetAvailableSlots(ctx, req.ProfessionalID, req.Date)
	if err != nil {
		return nil, err
	}
	if !contains(slots.Slots, req.Time) {
		return nil, withDetail(ErrSlotUnavailable,
			fmt.Sprintf("%s on %s is not bookable", req.Time, req.Date), nil)
	}

	dup, err := s.Bookings.HasActiveWithProfessional(ctx, req.PatientID, req.ProfessionalID)
	if err != nil {
		return nil, fmt.Errorf("duplicate booking check failed: %w", err)
	}
	if dup {
		return nil, ErrDuplicateActiveBooking
	}

	at, err := s.Availability.ScheduledInstant(req.Date, req.Time)
	if err != nil {
		return nil, withDetail(ErrInvalidRequest, "", err)
	}

	fee := req.Fee
	if fee == 0 {
		fee = p.ConsultationFee
	}
	now := s.now()
	b := &models.Booking{
		ID:               uuid.NewString(),
		ProfessionalID:   p.ID,
		ProfessionalName: p.Name,
		PatientID:        req.PatientID,
		PatientName:      req.PatientName,
		Date:             req.Date,
		Time:             req.Time,
		ScheduledAt:      at,
		Medium:           medium,
		Reason:           req.Reason,
		Status:           models.StatusPendingConfirmation,
		Fee:              fee,
		PaymentStatus:    models.PaymentPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// The write re-checks the label, the pair and the daily cap atomically;
	// the checks above only give early, specific errors.
	if err := s.Bookings.CreateScheduled(ctx, b, s.Availability.DailyCap(p)); err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrSlotTaken):
			return nil, ErrSlotUnavailable
		case errors.Is(err, bookingRepo.ErrDuplicateActive):
			return nil, ErrDuplicateActiveBooking
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.Logger.Info("Booking created",
		zap.String("bookingID", b.ID),
		zap.String("professionalID", b.ProfessionalID),
		zap.String("date", b.Date),
		zap.String("time", b.Time))

	s.notify(ctx, b.ProfessionalID, models.PushPayload{
		Title: "New booking request",
		Body:  fmt.Sprintf("%s requested %s on %s", displayName(b.PatientName, "A patient"), b.Time, b.Date),
		Data:  bookingData(b),
	})
	return b, nil
}

func (s *DefaultBookingService) GetAvailableSlots(ctx context.Context, professionalID, date string) (models.AvailableSlotsResponse, error) {
	resp, err := s.Availability.GetAvailableSlots(ctx, professionalID, date)
	switch {
	case errors.Is(err, availability.ErrInvalidDate):
		return resp, withDetail(ErrInvalidRequest, err.Error(), nil)
	case errors.Is(err, availability.ErrProfessionalNotFound):
		return resp, ErrProfessionalNotFound
	}
	return resp, err
}

func (s *DefaultBookingService) professional(ctx context.Context, id string) (*models.Professional, error) {
	p, err := s.Professionals.GetByID(ctx, id)
	if errors.Is(err, professionalRepo.ErrNotFound) {
		return nil, ErrProfessionalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load professional %s: %w", id, err)
	}
	return p, nil
}

func resolveMedium(m models.Medium) (models.Medium, error) {
	switch m {
	case "":
		return models.MediumVideo, nil
	case models.MediumVideo, models.MediumAudio, models.MediumChat:
		return m, nil
	}
	return "", withDetail(ErrInvalidRequest, fmt.Sprintf("unknown medium %q", m), nil)
}

func contains(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

func displayName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
