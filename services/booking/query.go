package booking

import (
	"context"
	"errors"
	"time"

	bookingRepo "telecare/database/repository/booking"
	"telecare/models"
)

func (s *DefaultBookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.load(ctx, bookingID)
}

func (s *DefaultBookingService) WatchBooking(ctx context.Context, bookingID string) (<-chan models.Booking, error) {
	ch, err := s.Bookings.WatchBooking(ctx, bookingID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	return ch, err
}

func (s *DefaultBookingService) GetQueue(ctx context.Context, professionalID, date string) ([]models.Booking, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	return s.Queue.Get(ctx, professionalID, date)
}

func (s *DefaultBookingService) WatchQueue(ctx context.Context, professionalID, date string) (<-chan []models.Booking, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	return s.Queue.Watch(ctx, professionalID, date)
}

func validDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return withDetail(ErrInvalidRequest, "date must be YYYY-MM-DD", nil)
	}
	return nil
}
