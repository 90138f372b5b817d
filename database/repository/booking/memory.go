package bookingRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"telecare/models"
)

// MemoryBookingRepo is a process-local BookingRepository used for STORE=memory
// and by service tests. A single mutex makes every method atomic.
type MemoryBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking

	bookingSubs map[string][]chan models.Booking
	queueSubs   map[string][]chan []models.Booking
}

var _ BookingRepository = (*MemoryBookingRepo)(nil)

func NewMemoryBookingRepo() *MemoryBookingRepo {
	return &MemoryBookingRepo{
		bookings:    make(map[string]*models.Booking),
		bookingSubs: make(map[string][]chan models.Booking),
		queueSubs:   make(map[string][]chan []models.Booking),
	}
}

func (repo *MemoryBookingRepo) CreateScheduled(ctx context.Context, booking *models.Booking, dailyCapacity int) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	slotKey := models.SlotHoldKey(booking.ProfessionalID, booking.Date, booking.Time)
	pairKey := models.PairHoldKey(booking.PatientID, booking.ProfessionalID)

	active := 0
	for _, b := range repo.bookings {
		if !b.Status.IsActive() {
			continue
		}
		if b.PatientID == booking.PatientID && b.ProfessionalID == booking.ProfessionalID {
			return ErrDuplicateActive
		}
		if b.SlotKey == slotKey {
			return ErrSlotTaken
		}
		if b.ProfessionalID == booking.ProfessionalID && b.Date == booking.Date {
			active++
		}
	}
	if active >= dailyCapacity {
		return ErrSlotTaken
	}

	booking.SlotKey = slotKey
	booking.PairKey = pairKey
	repo.store(booking)
	return nil
}

func (repo *MemoryBookingRepo) CreateEmergency(ctx context.Context, booking *models.Booking) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, b := range repo.bookings {
		if b.EmergencyKey != "" && b.EmergencyKey == booking.PatientID {
			return ErrDuplicateEmergency
		}
	}
	booking.EmergencyKey = booking.PatientID
	repo.store(booking)
	return nil
}

func (repo *MemoryBookingRepo) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	b, ok := repo.bookings[bookingID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (repo *MemoryBookingRepo) Update(ctx context.Context, booking *models.Booking, expectedVersion int) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	current, ok := repo.bookings[booking.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrStale
	}
	if booking.Status.IsTerminal() {
		booking.ReleaseHolds()
	}
	booking.Version = expectedVersion + 1
	booking.QueuePosition = current.QueuePosition
	repo.store(booking)
	return nil
}

func (repo *MemoryBookingRepo) CountActive(ctx context.Context, professionalID, date string) (int, error) {
	return len(repo.collect(func(b *models.Booking) bool {
		return b.ProfessionalID == professionalID && b.Date == date && b.Status.IsActive()
	})), nil
}

func (repo *MemoryBookingRepo) ListActiveByProfessionalDate(ctx context.Context, professionalID, date string) ([]models.Booking, error) {
	return repo.collect(func(b *models.Booking) bool {
		return b.ProfessionalID == professionalID && b.Date == date && b.Status.IsActive()
	}), nil
}

func (repo *MemoryBookingRepo) HasActiveWithProfessional(ctx context.Context, patientID, professionalID string) (bool, error) {
	return len(repo.collect(func(b *models.Booking) bool {
		return b.PatientID == patientID && b.ProfessionalID == professionalID && b.Status.IsActive()
	})) > 0, nil
}

func (repo *MemoryBookingRepo) HasActiveEmergency(ctx context.Context, patientID string) (bool, error) {
	return len(repo.collect(func(b *models.Booking) bool {
		return b.PatientID == patientID && b.IsEmergency && b.Status.IsActive()
	})) > 0, nil
}

func (repo *MemoryBookingRepo) ListQueue(ctx context.Context, professionalID, date string) ([]models.Booking, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.queueLocked(professionalID, date), nil
}

func (repo *MemoryBookingRepo) ResequenceQueue(ctx context.Context, professionalID, date string) ([]models.Booking, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var day []*models.Booking
	for _, b := range repo.bookings {
		if b.ProfessionalID == professionalID && b.Date == date && !b.IsEmergency {
			day = append(day, b)
		}
	}
	sortBookings(day)

	position := 0
	for _, b := range day {
		if b.Status.IsQueued() {
			position++
			b.QueuePosition = position
		} else {
			b.QueuePosition = 0
		}
	}
	queue := repo.queueLocked(professionalID, date)
	repo.notifyQueueLocked(professionalID, date)
	return queue, nil
}

func (repo *MemoryBookingRepo) ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return repo.collect(func(b *models.Booking) bool {
		return b.Status == models.StatusConfirmed && b.ScheduledAt.After(from) && !b.ScheduledAt.After(to)
	}), nil
}

func (repo *MemoryBookingRepo) ListReminderDue(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return repo.collect(func(b *models.Booking) bool {
		return b.Status == models.StatusConfirmed && !b.ReminderSent &&
			b.ScheduledAt.After(from) && !b.ScheduledAt.After(to)
	}), nil
}

func (repo *MemoryBookingRepo) ListExpiredEmergencies(ctx context.Context, now time.Time) ([]models.Booking, error) {
	return repo.collect(func(b *models.Booking) bool {
		return b.Status == models.StatusEmergencyPending && b.EmergencyDeadline != nil && b.EmergencyDeadline.Before(now)
	}), nil
}

func (repo *MemoryBookingRepo) WatchBooking(ctx context.Context, bookingID string) (<-chan models.Booking, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	b, ok := repo.bookings[bookingID]
	if !ok {
		return nil, ErrNotFound
	}
	ch := make(chan models.Booking, 1)
	ch <- *b
	repo.bookingSubs[bookingID] = append(repo.bookingSubs[bookingID], ch)

	go func() {
		<-ctx.Done()
		repo.mu.Lock()
		defer repo.mu.Unlock()
		repo.bookingSubs[bookingID] = removeChan(repo.bookingSubs[bookingID], ch)
		close(ch)
	}()
	return ch, nil
}

func (repo *MemoryBookingRepo) WatchQueue(ctx context.Context, professionalID, date string) (<-chan []models.Booking, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	key := models.CapacityKey(professionalID, date)
	ch := make(chan []models.Booking, 1)
	ch <- repo.queueLocked(professionalID, date)
	repo.queueSubs[key] = append(repo.queueSubs[key], ch)

	go func() {
		<-ctx.Done()
		repo.mu.Lock()
		defer repo.mu.Unlock()
		repo.queueSubs[key] = removeChan(repo.queueSubs[key], ch)
		close(ch)
	}()
	return ch, nil
}

func (repo *MemoryBookingRepo) EnsureIndexes(ctx context.Context) error { return nil }

// store saves a copy of booking and notifies its watchers. Callers hold mu.
func (repo *MemoryBookingRepo) store(booking *models.Booking) {
	clone := *booking
	repo.bookings[booking.ID] = &clone

	for _, ch := range repo.bookingSubs[booking.ID] {
		offerLatest(ch, clone)
	}
	if booking.Date != "" {
		repo.notifyQueueLocked(booking.ProfessionalID, booking.Date)
	}
}

func (repo *MemoryBookingRepo) notifyQueueLocked(professionalID, date string) {
	subs := repo.queueSubs[models.CapacityKey(professionalID, date)]
	if len(subs) == 0 {
		return
	}
	queue := repo.queueLocked(professionalID, date)
	for _, ch := range subs {
		offerLatest(ch, queue)
	}
}

func (repo *MemoryBookingRepo) queueLocked(professionalID, date string) []models.Booking {
	var queue []*models.Booking
	for _, b := range repo.bookings {
		if b.ProfessionalID == professionalID && b.Date == date && !b.IsEmergency && b.Status.IsQueued() {
			queue = append(queue, b)
		}
	}
	sortBookings(queue)
	out := make([]models.Booking, 0, len(queue))
	for _, b := range queue {
		out = append(out, *b)
	}
	return out
}

func (repo *MemoryBookingRepo) collect(match func(*models.Booking) bool) []models.Booking {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var matched []*models.Booking
	for _, b := range repo.bookings {
		if match(b) {
			matched = append(matched, b)
		}
	}
	sortBookings(matched)
	out := make([]models.Booking, 0, len(matched))
	for _, b := range matched {
		out = append(out, *b)
	}
	return out
}

func sortBookings(bookings []*models.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		if !bookings[i].ScheduledAt.Equal(bookings[j].ScheduledAt) {
			return bookings[i].ScheduledAt.Before(bookings[j].ScheduledAt)
		}
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
}

// offerLatest replaces any unread snapshot so slow readers only see the newest.
func offerLatest[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

func removeChan[T any](subs []chan T, ch chan T) []chan T {
	for i, s := range subs {
		if s == ch {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}
