// File: database/repository/booking/interface.go
package bookingRepo

import (
	"context"
	"errors"
	"time"

	"telecare/models"
)

var (
	// ErrNotFound is returned when no booking matches the id.
	ErrNotFound = errors.New("booking not found")
	// ErrSlotTaken is returned when the label is already held or the day is at capacity.
	ErrSlotTaken = errors.New("slot already taken or daily capacity reached")
	// ErrDuplicateActive is returned when the patient already holds an active booking
	// with the professional.
	ErrDuplicateActive = errors.New("patient already has an active booking with this professional")
	// ErrDuplicateEmergency is returned when the patient already has an active emergency.
	ErrDuplicateEmergency = errors.New("patient already has an active emergency")
	// ErrStale is returned when the stored version no longer matches.
	ErrStale = errors.New("booking was modified concurrently")
)

// BookingRepository is the booking document store.
type BookingRepository interface {
	// CreateScheduled atomically claims the slot label and one unit of the
	// professional's daily capacity, then inserts the booking.
	CreateScheduled(ctx context.Context, booking *models.Booking, dailyCapacity int) error
	// CreateEmergency inserts an emergency booking, refusing a second active
	// emergency for the same patient.
	CreateEmergency(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)
	// Update persists booking if the stored version equals expectedVersion.
	// Queue positions are never written here; see ResequenceQueue. A booking
	// entering a terminal state gives its slot and capacity unit back.
	Update(ctx context.Context, booking *models.Booking, expectedVersion int) error

	CountActive(ctx context.Context, professionalID, date string) (int, error)
	ListActiveByProfessionalDate(ctx context.Context, professionalID, date string) ([]models.Booking, error)
	HasActiveWithProfessional(ctx context.Context, patientID, professionalID string) (bool, error)
	HasActiveEmergency(ctx context.Context, patientID string) (bool, error)

	// ListQueue returns confirmed and ready bookings ordered by scheduled instant.
	ListQueue(ctx context.Context, professionalID, date string) ([]models.Booking, error)
	// ResequenceQueue assigns 1..N to the queue and zeroes every other booking
	// of that professional/date, returning the resulting queue.
	ResequenceQueue(ctx context.Context, professionalID, date string) ([]models.Booking, error)

	ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	ListReminderDue(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	ListExpiredEmergencies(ctx context.Context, now time.Time) ([]models.Booking, error)

	// WatchBooking streams a snapshot on subscribe and after every change.
	WatchBooking(ctx context.Context, bookingID string) (<-chan models.Booking, error)
	// WatchQueue streams the queue on subscribe and after every change to it.
	WatchQueue(ctx context.Context, professionalID, date string) (<-chan []models.Booking, error)

	EnsureIndexes(ctx context.Context) error
}
