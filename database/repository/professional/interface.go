package professionalRepo

import (
	"context"
	"errors"

	"telecare/models"
)

// ErrNotFound is returned when no professional matches the id.
var ErrNotFound = errors.New("professional not found")

// ProfessionalRepository defines methods for professional data access.
type ProfessionalRepository interface {
	// GetByID retrieves a professional by its unique ID.
	GetByID(ctx context.Context, id string) (*models.Professional, error)
	// Upsert creates the professional or replaces its profile fields.
	Upsert(ctx context.Context, professional *models.Professional) error
	// SetAvailability replaces the weekly template.
	SetAvailability(ctx context.Context, id string, entries []models.AvailabilityEntry) error
	// SetStatus applies the non-nil presence flags and returns the result.
	SetStatus(ctx context.Context, id string, update models.ProfessionalStatusUpdate) (*models.Professional, error)
	// IncrementCompleted bumps the completed consultation counter.
	IncrementCompleted(ctx context.Context, id string) error
	EnsureIndexes(ctx context.Context) error
}
