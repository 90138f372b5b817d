package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	bookingRepo "telecare/database/repository/booking"
	professionalRepo "telecare/database/repository/professional"
	walletRepo "telecare/database/repository/wallet"
	"telecare/models"
	"telecare/services/availability"
	"telecare/services/callsession"
	"telecare/services/escrow"
	"telecare/services/queue"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 2025-06-02 is a Monday.
const testDate = "2025-06-02"

var dayStart = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return dayStart.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type sentPush struct {
	userID  string
	payload models.PushPayload
}

type recordingGateway struct {
	mu        sync.Mutex
	sent      []sentPush
	scheduled []models.ReminderPayload
	failSend  error
}

func (g *recordingGateway) SendToUser(ctx context.Context, userID string, payload models.PushPayload) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failSend != nil {
		return g.failSend
	}
	g.sent = append(g.sent, sentPush{userID: userID, payload: payload})
	return nil
}

func (g *recordingGateway) ScheduleLocal(ctx context.Context, reminder models.ReminderPayload) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scheduled = append(g.scheduled, reminder)
	return nil
}

func (g *recordingGateway) sentTo(userID, title string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, s := range g.sent {
		if s.userID == userID && s.payload.Title == title {
			n++
		}
	}
	return n
}

// scriptedProvider answers joins with the queued errors, then succeeds.
type scriptedProvider struct {
	mu       sync.Mutex
	created  int
	joinErrs []error
	joins    int
}

func (p *scriptedProvider) CreateCall(ctx context.Context, req callsession.CreateCallRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created++
	return fmt.Sprintf("sess-%d", p.created), nil
}

func (p *scriptedProvider) Join(ctx context.Context, sessionID string) (*callsession.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.joins++
	if p.joins <= len(p.joinErrs) && p.joinErrs[p.joins-1] != nil {
		return nil, p.joinErrs[p.joins-1]
	}
	return &callsession.Handle{SessionID: sessionID, URL: "https://video.test/" + sessionID}, nil
}

// failingBookings fails the next Update with the armed error. With commit set
// the write is applied first, like a timeout after the server accepted it.
type failingBookings struct {
	*bookingRepo.MemoryBookingRepo
	mu       sync.Mutex
	failNext error
	commit   bool
}

func (r *failingBookings) failUpdate(err error, commit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext, r.commit = err, commit
}

func (r *failingBookings) Update(ctx context.Context, booking *models.Booking, expectedVersion int) error {
	r.mu.Lock()
	err, commit := r.failNext, r.commit
	r.failNext, r.commit = nil, false
	r.mu.Unlock()

	if err == nil {
		return r.MemoryBookingRepo.Update(ctx, booking, expectedVersion)
	}
	if commit {
		if updateErr := r.MemoryBookingRepo.Update(ctx, booking, expectedVersion); updateErr != nil {
			return updateErr
		}
	}
	return err
}

type fixture struct {
	svc      *DefaultBookingService
	bookings *bookingRepo.MemoryBookingRepo
	store    *failingBookings
	pros     *professionalRepo.MemoryProfessionalRepo
	wallet   *walletRepo.MemoryWalletRepo
	provider *scriptedProvider
	push     *recordingGateway
	clock    *testClock
}

func newFixture(t *testing.T, mutate ...func(*Policy)) *fixture {
	t.Helper()
	f := &fixture{
		bookings: bookingRepo.NewMemoryBookingRepo(),
		pros:     professionalRepo.NewMemoryProfessionalRepo(),
		wallet:   walletRepo.NewMemoryWalletRepo(),
		provider: &scriptedProvider{},
		push:     &recordingGateway{},
		clock:    &testClock{now: at(8, 0)},
	}
	f.store = &failingBookings{MemoryBookingRepo: f.bookings}
	logger := zap.NewNop()

	policy := DefaultPolicy()
	policy.CallPropagationDelay = 100 * time.Millisecond
	for _, m := range mutate {
		m(&policy)
	}

	avail := availability.NewDefaultAvailabilityService(
		f.bookings, f.pros, availability.CapacityPolicy{Default: 10, Pharmacist: 20}, time.UTC, logger,
	).WithClock(f.clock.Now)

	f.svc = NewDefaultBookingService(Deps{
		Bookings:      f.store,
		Professionals: f.pros,
		Availability:  avail,
		Queue:         queue.NewDefaultQueueService(f.bookings, logger),
		Escrow:        escrow.NewDefaultEscrowCoordinator(f.wallet, logger),
		Bridge:        callsession.NewDefaultCallBridge(f.provider, 5, time.Millisecond, nil, logger),
		Notifier:      f.push,
		Logger:        logger,
	}, policy).WithClock(f.clock.Now)
	t.Cleanup(f.svc.Shutdown)

	require.NoError(t, f.pros.Upsert(context.Background(), &models.Professional{
		ID:               "pro-1",
		Name:             "Dr. Achieng",
		Type:             models.TypeDoctor,
		Online:           true,
		AcceptsEmergency: true,
		ConsultationFee:  3000,
		Availability: []models.AvailabilityEntry{
			{Day: "monday", Start: "09:00", End: "17:00", SlotDuration: 30, Enabled: true},
		},
	}))
	return f
}

func (f *fixture) deposit(t *testing.T, userID string, amount int64) {
	t.Helper()
	require.NoError(t, f.wallet.Deposit(context.Background(), userID, amount, "seed:"+uuid.NewString()))
}

func (f *fixture) balance(t *testing.T, userID string) walletRepo.Balance {
	t.Helper()
	b, err := f.wallet.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func (f *fixture) book(t *testing.T, patientID, label string) *models.Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), models.CreateBookingRequest{
		ProfessionalID: "pro-1",
		PatientID:      patientID,
		PatientName:    "Patient " + patientID,
		Date:           testDate,
		Time:           label,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) confirmed(t *testing.T, patientID, label string) *models.Booking {
	t.Helper()
	f.deposit(t, patientID, 10000)
	b := f.book(t, patientID, label)
	b, err := f.svc.Confirm(context.Background(), b.ID, "pro-1")
	require.NoError(t, err)
	return b
}

// inCall confirms a booking, starts its call and waits until it is joinable.
func (f *fixture) inCall(t *testing.T, patientID, label string) *models.Booking {
	t.Helper()
	b := f.confirmed(t, patientID, label)
	_, err := f.svc.InitiateCall(context.Background(), b.ID, "pro-1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return f.get(t, b.ID).CanStartCall
	}, 2*time.Second, 10*time.Millisecond)
	return f.get(t, b.ID)
}

func (f *fixture) get(t *testing.T, id string) *models.Booking {
	t.Helper()
	b, err := f.svc.GetBooking(context.Background(), id)
	require.NoError(t, err)
	return b
}
