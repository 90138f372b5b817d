package professionalRepo

import (
	"context"
	"sync"
	"time"

	"telecare/models"
)

// MemoryProfessionalRepo is a map-backed ProfessionalRepository.
type MemoryProfessionalRepo struct {
	mu            sync.RWMutex
	professionals map[string]models.Professional
}

var _ ProfessionalRepository = (*MemoryProfessionalRepo)(nil)

func NewMemoryProfessionalRepo() *MemoryProfessionalRepo {
	return &MemoryProfessionalRepo{professionals: make(map[string]models.Professional)}
}

func (r *MemoryProfessionalRepo) GetByID(ctx context.Context, id string) (*models.Professional, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.professionals[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Availability = append([]models.AvailabilityEntry(nil), p.Availability...)
	return &p, nil
}

func (r *MemoryProfessionalRepo) Upsert(ctx context.Context, professional *models.Professional) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	p := *professional
	p.Availability = append([]models.AvailabilityEntry(nil), professional.Availability...)
	if existing, ok := r.professionals[p.ID]; ok {
		p.CompletedConsultations = existing.CompletedConsultations
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.professionals[p.ID] = p
	return nil
}

func (r *MemoryProfessionalRepo) SetAvailability(ctx context.Context, id string, entries []models.AvailabilityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.professionals[id]
	if !ok {
		return ErrNotFound
	}
	p.Availability = append([]models.AvailabilityEntry(nil), entries...)
	p.UpdatedAt = time.Now()
	r.professionals[id] = p
	return nil
}

func (r *MemoryProfessionalRepo) SetStatus(ctx context.Context, id string, update models.ProfessionalStatusUpdate) (*models.Professional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.professionals[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Online != nil {
		p.Online = *update.Online
	}
	if update.AcceptsEmergency != nil {
		p.AcceptsEmergency = *update.AcceptsEmergency
	}
	p.UpdatedAt = time.Now()
	r.professionals[id] = p
	return &p, nil
}

func (r *MemoryProfessionalRepo) IncrementCompleted(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.professionals[id]
	if !ok {
		return ErrNotFound
	}
	p.CompletedConsultations++
	r.professionals[id] = p
	return nil
}

func (r *MemoryProfessionalRepo) EnsureIndexes(ctx context.Context) error { return nil }
