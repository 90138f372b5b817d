package queue

import (
	"context"
	"fmt"

	bookingRepo "telecare/database/repository/booking"
	"telecare/models"
	"telecare/utils"

	"go.uber.org/zap"
)

// QueueService keeps the 1..N positions of a professional's day contiguous.
type QueueService interface {
	// Recompute re-sequences the queue of professionalID on date.
	Recompute(ctx context.Context, professionalID, date string) ([]models.Booking, error)
	Get(ctx context.Context, professionalID, date string) ([]models.Booking, error)
	Watch(ctx context.Context, professionalID, date string) (<-chan []models.Booking, error)
}

// DefaultQueueService serializes recomputes per professional+date inside the
// process; the repository transaction covers other processes.
type DefaultQueueService struct {
	repo   bookingRepo.BookingRepository
	locks  *utils.KeyedMutex
	logger *zap.Logger
}

func NewDefaultQueueService(repo bookingRepo.BookingRepository, logger *zap.Logger) *DefaultQueueService {
	return &DefaultQueueService{repo: repo, locks: utils.NewKeyedMutex(), logger: logger}
}

func (s *DefaultQueueService) Recompute(ctx context.Context, professionalID, date string) ([]models.Booking, error) {
	if date == "" {
		return nil, nil
	}
	unlock := s.locks.Lock(models.CapacityKey(professionalID, date))
	defer unlock()

	queue, err := s.repo.ResequenceQueue(ctx, professionalID, date)
	if err != nil {
		return nil, fmt.Errorf("queue recompute failed: %w", err)
	}
	s.logger.Debug("Queue resequenced",
		zap.String("professionalID", professionalID),
		zap.String("date", date),
		zap.Int("size", len(queue)))
	return queue, nil
}

func (s *DefaultQueueService) Get(ctx context.Context, professionalID, date string) ([]models.Booking, error) {
	return s.repo.ListQueue(ctx, professionalID, date)
}

func (s *DefaultQueueService) Watch(ctx context.Context, professionalID, date string) (<-chan []models.Booking, error) {
	return s.repo.WatchQueue(ctx, professionalID, date)
}

// PositionOf returns the position of bookingID in queue, or 0.
func PositionOf(queue []models.Booking, bookingID string) int {
	for _, b := range queue {
		if b.ID == bookingID {
			return b.QueuePosition
		}
	}
	return 0
}
