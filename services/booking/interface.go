package booking

import (
	"context"
	"time"

	"telecare/models"
)

// BookingService is the booking state machine. Every command validates the
// transition against the current stored state and fails with *Error.
type BookingService interface {
	Create(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error)
	CreateEmergency(ctx context.Context, req models.CreateEmergencyRequest) (*models.Booking, error)
	Confirm(ctx context.Context, bookingID, professionalID string) (*models.Booking, error)
	Reject(ctx context.Context, bookingID, professionalID, reason string) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID, actorID, reason string) (*models.Booking, error)
	InitiateCall(ctx context.Context, bookingID, professionalID string) (*models.Booking, error)
	JoinCall(ctx context.Context, bookingID, actorID string) (*models.JoinCallResponse, error)
	Complete(ctx context.Context, bookingID, actorID string) (*models.Booking, error)
	RejectDuringCall(ctx context.Context, bookingID, actorID string) (*models.Booking, error)

	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	WatchBooking(ctx context.Context, bookingID string) (<-chan models.Booking, error)
	GetQueue(ctx context.Context, professionalID, date string) ([]models.Booking, error)
	WatchQueue(ctx context.Context, professionalID, date string) (<-chan []models.Booking, error)
	GetAvailableSlots(ctx context.Context, professionalID, date string) (models.AvailableSlotsResponse, error)

	// Sweep steps. Each re-checks its predicate under the booking lock and
	// reports whether it changed anything.
	PromoteToReady(ctx context.Context, bookingID string, now time.Time) (bool, error)
	ExpireEmergency(ctx context.Context, bookingID string, now time.Time) (bool, error)
	SendReminder(ctx context.Context, bookingID string, now time.Time) (bool, error)

	// Shutdown stops pending call propagation timers.
	Shutdown()
}
