package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingRepo "telecare/database/repository/booking"
	professionalRepo "telecare/database/repository/professional"
	"telecare/models"

	"go.uber.org/zap"
)

var (
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrInvalidDate          = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidTemplate      = errors.New("invalid availability template")
	ErrInvalidProfile       = errors.New("invalid professional profile")
)

// AvailabilityService owns the weekly template and derives bookable labels.
type AvailabilityService interface {
	GetTemplate(ctx context.Context, professionalID string) ([]models.AvailabilityEntry, error)
	SetTemplate(ctx context.Context, professionalID string, entries []models.AvailabilityEntry) ([]models.AvailabilityEntry, error)
	SetStatus(ctx context.Context, professionalID string, update models.ProfessionalStatusUpdate) (*models.Professional, error)
	RegisterProfessional(ctx context.Context, professional *models.Professional) (*models.Professional, error)
	GetAvailableSlots(ctx context.Context, professionalID, date string) (models.AvailableSlotsResponse, error)
	// ScheduledInstant resolves date and label in the service time zone.
	ScheduledInstant(date, label string) (time.Time, error)
	DailyCap(professional *models.Professional) int
}

// DefaultAvailabilityService reads live booking counts on every call; nothing
// is cached between requests.
type DefaultAvailabilityService struct {
	bookings      bookingRepo.BookingRepository
	professionals professionalRepo.ProfessionalRepository
	policy        CapacityPolicy
	loc           *time.Location
	now           func() time.Time
	logger        *zap.Logger
}

func NewDefaultAvailabilityService(
	bookings bookingRepo.BookingRepository,
	professionals professionalRepo.ProfessionalRepository,
	policy CapacityPolicy,
	loc *time.Location,
	logger *zap.Logger,
) *DefaultAvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &DefaultAvailabilityService{
		bookings:      bookings,
		professionals: professionals,
		policy:        policy,
		loc:           loc,
		now:           time.Now,
		logger:        logger,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *DefaultAvailabilityService) WithClock(now func() time.Time) *DefaultAvailabilityService {
	s.now = now
	return s
}

func (s *DefaultAvailabilityService) DailyCap(professional *models.Professional) int {
	return s.policy.DailyCap(professional.Type)
}

func (s *DefaultAvailabilityService) GetTemplate(ctx context.Context, professionalID string) ([]models.AvailabilityEntry, error) {
	p, err := s.professional(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	return p.Availability, nil
}

func (s *DefaultAvailabilityService) SetTemplate(ctx context.Context, professionalID string, entries []models.AvailabilityEntry) ([]models.AvailabilityEntry, error) {
	normalized, err := normalizeTemplate(entries)
	if err != nil {
		return nil, err
	}

	if err := s.professionals.SetAvailability(ctx, professionalID, normalized); err != nil {
		if errors.Is(err, professionalRepo.ErrNotFound) {
			return nil, ErrProfessionalNotFound
		}
		return nil, err
	}
	s.logger.Info("Availability template updated",
		zap.String("professionalID", professionalID), zap.Int("days", len(normalized)))
	return normalized, nil
}

// RegisterProfessional creates or replaces a professional profile. Counters
// kept by the store survive the update.
func (s *DefaultAvailabilityService) RegisterProfessional(ctx context.Context, professional *models.Professional) (*models.Professional, error) {
	if professional.ID == "" || strings.TrimSpace(professional.Name) == "" {
		return nil, fmt.Errorf("%w: id and name are required", ErrInvalidProfile)
	}
	if !professional.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown professional type %q", ErrInvalidProfile, professional.Type)
	}
	if professional.ConsultationFee < 0 {
		return nil, fmt.Errorf("%w: consultation fee cannot be negative", ErrInvalidProfile)
	}
	normalized, err := normalizeTemplate(professional.Availability)
	if err != nil {
		return nil, err
	}
	professional.Availability = normalized

	if err := s.professionals.Upsert(ctx, professional); err != nil {
		return nil, fmt.Errorf("failed to save professional: %w", err)
	}
	s.logger.Info("Professional registered",
		zap.String("professionalID", professional.ID), zap.String("type", string(professional.Type)))
	return s.professional(ctx, professional.ID)
}

func (s *DefaultAvailabilityService) SetStatus(ctx context.Context, professionalID string, update models.ProfessionalStatusUpdate) (*models.Professional, error) {
	p, err := s.professionals.SetStatus(ctx, professionalID, update)
	if errors.Is(err, professionalRepo.ErrNotFound) {
		return nil, ErrProfessionalNotFound
	}
	return p, err
}

// GetAvailableSlots returns the weekday partition minus held labels, minus
// labels already in the past, truncated to the remaining daily capacity.
func (s *DefaultAvailabilityService) GetAvailableSlots(ctx context.Context, professionalID, date string) (models.AvailableSlotsResponse, error) {
	resp := models.AvailableSlotsResponse{ProfessionalID: professionalID, Date: date, Slots: []string{}}

	day, err := time.ParseInLocation(models.DateLayout, date, s.loc)
	if err != nil {
		return resp, ErrInvalidDate
	}
	p, err := s.professional(ctx, professionalID)
	if err != nil {
		return resp, err
	}

	active, err := s.bookings.ListActiveByProfessionalDate(ctx, professionalID, date)
	if err != nil {
		return resp, fmt.Errorf("failed to load active bookings: %w", err)
	}
	resp.RemainingCapacity = s.policy.Remaining(p.Type, len(active))

	entry, ok := EntryFor(p.Availability, day)
	if !ok || resp.RemainingCapacity == 0 {
		return resp, nil
	}

	held := make(map[string]bool, len(active))
	for _, b := range active {
		held[b.Time] = true
	}

	now := s.now()
	for _, label := range Partition(entry) {
		if len(resp.Slots) == resp.RemainingCapacity {
			break
		}
		if held[label] {
			continue
		}
		at, err := s.ScheduledInstant(date, label)
		if err != nil || !at.After(now) {
			continue
		}
		resp.Slots = append(resp.Slots, label)
	}
	return resp, nil
}

func (s *DefaultAvailabilityService) ScheduledInstant(date, label string) (time.Time, error) {
	day, err := time.ParseInLocation(models.DateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	minutes, err := models.ParseClock(label)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, s.loc), nil
}

func (s *DefaultAvailabilityService) professional(ctx context.Context, id string) (*models.Professional, error) {
	p, err := s.professionals.GetByID(ctx, id)
	if errors.Is(err, professionalRepo.ErrNotFound) {
		return nil, ErrProfessionalNotFound
	}
	return p, err
}

func normalizeTemplate(entries []models.AvailabilityEntry) ([]models.AvailabilityEntry, error) {
	seen := make(map[string]bool, len(entries))
	normalized := make([]models.AvailabilityEntry, 0, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		e.Day = strings.ToLower(e.Day)
		if seen[e.Day] {
			return nil, fmt.Errorf("%w: %s listed twice", ErrInvalidTemplate, e.Day)
		}
		seen[e.Day] = true
		normalized = append(normalized, e)
	}
	return normalized, nil
}
