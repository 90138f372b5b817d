package availability

import (
	"context"
	"fmt"
	"testing"
	"time"

	bookingRepo "telecare/database/repository/booking"
	professionalRepo "telecare/database/repository/professional"
	"telecare/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 2025-06-01 is a Sunday.
const testDate = "2025-06-01"

var clock = func() time.Time { return time.Date(2025, 5, 31, 12, 0, 0, 0, time.UTC) }

func setup(t *testing.T, proType models.ProfessionalType, entries ...models.AvailabilityEntry) (*DefaultAvailabilityService, *bookingRepo.MemoryBookingRepo) {
	t.Helper()
	bookings := bookingRepo.NewMemoryBookingRepo()
	professionals := professionalRepo.NewMemoryProfessionalRepo()
	require.NoError(t, professionals.Upsert(context.Background(), &models.Professional{
		ID: "pro-1", Name: "Dr. Test", Type: proType, Availability: entries,
	}))
	svc := NewDefaultAvailabilityService(bookings, professionals, CapacityPolicy{Default: 10, Pharmacist: 20}, time.UTC, zap.NewNop()).
		WithClock(clock)
	return svc, bookings
}

func sunday(start, end string, duration int) models.AvailabilityEntry {
	return models.AvailabilityEntry{Day: "sunday", Start: start, End: end, SlotDuration: duration, Enabled: true}
}

func book(t *testing.T, repo *bookingRepo.MemoryBookingRepo, i int, label string) {
	t.Helper()
	minutes, err := models.ParseClock(label)
	require.NoError(t, err)
	b := &models.Booking{
		ID:             fmt.Sprintf("b%d", i),
		ProfessionalID: "pro-1",
		PatientID:      fmt.Sprintf("pat-%d", i),
		Date:           testDate,
		Time:           label,
		ScheduledAt:    time.Date(2025, 6, 1, 0, minutes, 0, 0, time.UTC),
		Status:         models.StatusPendingConfirmation,
	}
	require.NoError(t, repo.CreateScheduled(context.Background(), b, 100))
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name  string
		entry models.AvailabilityEntry
		want  []string
	}{
		{"hourly", sunday("09:00", "12:00", 60), []string{"09:00", "10:00", "11:00"}},
		{"remainder dropped", sunday("09:00", "10:40", 30), []string{"09:00", "09:30", "10:00"}},
		{"single slot", sunday("09:00", "09:20", 20), []string{"09:00"}},
		{"too short", sunday("09:00", "09:10", 20), nil},
		{"bad label", sunday("9am", "10:00", 20), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Partition(tc.entry))
		})
	}
}

func TestGetAvailableSlots_SubtractsHeldLabels(t *testing.T) {
	svc, repo := setup(t, models.TypeDoctor, sunday("09:00", "12:00", 60))
	book(t, repo, 1, "10:00")

	resp, err := svc.GetAvailableSlots(context.Background(), "pro-1", testDate)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00"}, resp.Slots)
	assert.Equal(t, 9, resp.RemainingCapacity)
}

func TestGetAvailableSlots_EmptyAtCapacity(t *testing.T) {
	svc, repo := setup(t, models.TypeDoctor, sunday("08:00", "20:00", 30))
	for i := 0; i < 10; i++ {
		book(t, repo, i, models.FormatClock(8*60+i*30))
	}

	resp, err := svc.GetAvailableSlots(context.Background(), "pro-1", testDate)
	require.NoError(t, err)
	assert.Empty(t, resp.Slots)
	assert.Zero(t, resp.RemainingCapacity)
}

func TestGetAvailableSlots_TruncatedToRemainingCapacity(t *testing.T) {
	svc, repo := setup(t, models.TypeDoctor, sunday("08:00", "20:00", 30))
	for i := 0; i < 7; i++ {
		book(t, repo, i, models.FormatClock(8*60+i*30))
	}

	resp, err := svc.GetAvailableSlots(context.Background(), "pro-1", testDate)
	require.NoError(t, err)
	assert.Len(t, resp.Slots, 3)
	assert.Equal(t, "11:30", resp.Slots[0])

	full := Partition(sunday("08:00", "20:00", 30))
	for _, s := range resp.Slots {
		assert.Contains(t, full, s)
	}
}

func TestGetAvailableSlots_PharmacistHasHigherCap(t *testing.T) {
	svc, repo := setup(t, models.TypePharmacist, sunday("08:00", "20:00", 30))
	for i := 0; i < 10; i++ {
		book(t, repo, i, models.FormatClock(8*60+i*30))
	}

	resp, err := svc.GetAvailableSlots(context.Background(), "pro-1", testDate)
	require.NoError(t, err)
	assert.Equal(t, 10, resp.RemainingCapacity)
	assert.Len(t, resp.Slots, 10)
}

func TestGetAvailableSlots_NoEntryForWeekday(t *testing.T) {
	disabled := sunday("09:00", "12:00", 60)
	disabled.Enabled = false
	svc, _ := setup(t, models.TypeDoctor, disabled,
		models.AvailabilityEntry{Day: "monday", Start: "09:00", End: "12:00", SlotDuration: 60, Enabled: true})

	resp, err := svc.GetAvailableSlots(context.Background(), "pro-1", testDate)
	require.NoError(t, err)
	assert.Empty(t, resp.Slots)
}

func TestGetAvailableSlots_SkipsPastLabels(t *testing.T) {
	svc, _ := setup(t, models.TypeDoctor, sunday("09:00", "12:00", 60))
	svc.WithClock(func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) })

	resp, err := svc.GetAvailableSlots(context.Background(), "pro-1", testDate)
	require.NoError(t, err)
	assert.Equal(t, []string{"11:00"}, resp.Slots)
}

func TestGetAvailableSlots_Errors(t *testing.T) {
	svc, _ := setup(t, models.TypeDoctor)

	_, err := svc.GetAvailableSlots(context.Background(), "pro-1", "01/06/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = svc.GetAvailableSlots(context.Background(), "missing", testDate)
	assert.ErrorIs(t, err, ErrProfessionalNotFound)
}

func TestSetTemplate_Validation(t *testing.T) {
	svc, _ := setup(t, models.TypeDoctor)
	ctx := context.Background()

	_, err := svc.SetTemplate(ctx, "pro-1", []models.AvailabilityEntry{
		sunday("09:00", "12:00", 60),
		{Day: "Sunday", Start: "13:00", End: "15:00", SlotDuration: 30, Enabled: true},
	})
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	_, err = svc.SetTemplate(ctx, "pro-1", []models.AvailabilityEntry{sunday("12:00", "09:00", 60)})
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	saved, err := svc.SetTemplate(ctx, "pro-1", []models.AvailabilityEntry{
		{Day: "Monday", Start: "09:00", End: "12:00", SlotDuration: 45, Enabled: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "monday", saved[0].Day)

	got, err := svc.GetTemplate(ctx, "pro-1")
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestCapacityPolicy(t *testing.T) {
	p := CapacityPolicy{Default: 10, Pharmacist: 20}
	assert.Equal(t, 20, p.DailyCap(models.TypePharmacist))
	assert.Equal(t, 10, p.DailyCap(models.TypeLawyer))
	assert.Equal(t, 0, p.Remaining(models.TypeDoctor, 12))
}
