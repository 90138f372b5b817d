package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingRepo "telecare/database/repository/booking"
	professionalRepo "telecare/database/repository/professional"
	"telecare/models"
	"telecare/services/availability"
	"telecare/services/callsession"
	"telecare/services/escrow"
	"telecare/services/notification"
	"telecare/services/queue"
	"telecare/utils"

	"go.uber.org/zap"
)

// maxStaleRetries bounds how often a transition is replayed after losing a
// version race to another instance.
const maxStaleRetries = 3

// Deps are the collaborators of DefaultBookingService.
type Deps struct {
	Bookings      bookingRepo.BookingRepository
	Professionals professionalRepo.ProfessionalRepository
	Availability  availability.AvailabilityService
	Queue         queue.QueueService
	Escrow        escrow.EscrowCoordinator
	Bridge        callsession.CallBridge
	Notifier      notification.Gateway
	Metrics       *utils.BookingMetrics
	Logger        *zap.Logger
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Deps
	policy Policy
	locks  *utils.KeyedMutex
	now    func() time.Time

	timersMu sync.Mutex
	timers   map[string]*time.Timer
	// bg carries timer callbacks; it is detached from request contexts.
	bg       context.Context
	bgCancel context.CancelFunc
}

var _ BookingService = (*DefaultBookingService)(nil)

func NewDefaultBookingService(deps Deps, policy Policy) *DefaultBookingService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	bg, cancel := context.WithCancel(context.Background())
	return &DefaultBookingService{
		Deps:     deps,
		policy:   policy,
		locks:    utils.NewKeyedMutex(),
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
		bg:       bg,
		bgCancel: cancel,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *DefaultBookingService) WithClock(now func() time.Time) *DefaultBookingService {
	s.now = now
	return s
}

func (s *DefaultBookingService) Shutdown() {
	s.bgCancel()
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// mutation edits a loaded booking in place. It returns an undo that reverses
// any external side effect it performed, run when persisting fails.
type mutation func(ctx context.Context, b *models.Booking) (undo func(), err error)

// transition serializes commands per booking, applies fn to the freshly
// loaded record and persists it with a version check. fn runs again on a
// lost version race so its preconditions are always judged against the
// stored state.
func (s *DefaultBookingService) transition(ctx context.Context, bookingID string, fn mutation) (*models.Booking, error) {
	unlock := s.locks.Lock(bookingID)
	defer unlock()

	for attempt := 0; ; attempt++ {
		b, err := s.load(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		expected := b.Version

		undo, err := fn(ctx, b)
		if err != nil {
			return nil, err
		}
		b.UpdatedAt = s.now()

		err = s.Bookings.Update(ctx, b, expected)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, bookingRepo.ErrStale) {
			if stored, ok := s.landed(ctx, b, expected); ok {
				return stored, nil
			}
		}
		if undo != nil {
			undo()
		}
		if errors.Is(err, bookingRepo.ErrStale) && attempt < maxStaleRetries {
			s.Logger.Debug("Booking changed underneath transition, retrying",
				zap.String("bookingID", bookingID), zap.Int("attempt", attempt+1))
			continue
		}
		return nil, fmt.Errorf("failed to persist booking %s: %w", bookingID, err)
	}
}

// landed re-reads a booking whose update reported an error, in case the write
// committed anyway (a timeout after the server applied it). Undoing the side
// effects of a committed transition would leave the ledger behind the record.
func (s *DefaultBookingService) landed(ctx context.Context, b *models.Booking, expected int) (*models.Booking, bool) {
	stored, err := s.Bookings.GetByID(ctx, b.ID)
	if err != nil {
		return nil, false
	}
	if stored.Version != expected+1 || stored.Status != b.Status || stored.PaymentStatus != b.PaymentStatus {
		return nil, false
	}
	s.Logger.Warn("Booking update reported an error but was applied",
		zap.String("bookingID", b.ID), zap.Int("version", stored.Version))
	return stored, true
}

func (s *DefaultBookingService) load(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking %s: %w", bookingID, err)
	}
	return b, nil
}

// moveTo checks the transition table before changing status.
func moveTo(b *models.Booking, next models.BookingStatus) error {
	if !b.CanTransitionTo(next) {
		return withDetail(ErrIllegalTransition,
			fmt.Sprintf("cannot move booking from %s to %s", b.Status, next), nil)
	}
	b.Status = next
	return nil
}

func isParty(b *models.Booking, actorID string) bool {
	return actorID != "" && (actorID == b.PatientID || actorID == b.ProfessionalID)
}

// undoable turns the result of an escrow call into a mutation result whose
// undo voids the call.
func (s *DefaultBookingService) undoable(b *models.Booking, receipt *escrow.Receipt, err error) (func(), error) {
	if err != nil {
		return nil, err
	}
	return s.voidOnFailure(b, receipt), nil
}

// voidOnFailure returns an undo that reverses the wallet calls an escrow step
// made during a transition that did not persist.
func (s *DefaultBookingService) voidOnFailure(b *models.Booking, receipt *escrow.Receipt) func() {
	return func() {
		if err := s.Escrow.Void(s.bg, b, receipt); err != nil {
			s.Logger.Error("Escrow void after failed transition did not complete",
				zap.String("bookingID", b.ID), zap.Error(err))
		}
	}
}

// recomputeQueue logs instead of failing: the transition is already durable
// and the next change on the same day resequences again.
func (s *DefaultBookingService) recomputeQueue(ctx context.Context, b *models.Booking) {
	if b.IsEmergency || b.Date == "" {
		return
	}
	if _, err := s.Queue.Recompute(ctx, b.ProfessionalID, b.Date); err != nil {
		s.Logger.Error("Queue recompute failed",
			zap.String("professionalID", b.ProfessionalID),
			zap.String("date", b.Date),
			zap.Error(err))
	}
}

func (s *DefaultBookingService) notify(ctx context.Context, userID string, payload models.PushPayload) {
	if s.Notifier == nil || userID == "" {
		return
	}
	if err := s.Notifier.SendToUser(ctx, userID, payload); err != nil {
		s.Logger.Warn("Push notification failed",
			zap.String("userID", userID), zap.String("title", payload.Title), zap.Error(err))
	}
}

func bookingData(b *models.Booking) map[string]string {
	return map[string]string{
		"bookingId": b.ID,
		"status":    string(b.Status),
	}
}

// refreshed returns the stored booking so callers see the queue position
// written by the resequence.
func (s *DefaultBookingService) refreshed(ctx context.Context, b *models.Booking) *models.Booking {
	fresh, err := s.Bookings.GetByID(ctx, b.ID)
	if err != nil {
		return b
	}
	return fresh
}

func (s *DefaultBookingService) observe(command string, err error) {
	s.Metrics.ObserveCommand(command, err)
}
