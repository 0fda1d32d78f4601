package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotello/internal/model"
	"github.com/iliyamo/hotello/internal/repository"
)

type fakeIntervals struct {
	intervals []repository.BookedInterval
}

func (f *fakeIntervals) ListActiveIntervals(ctx context.Context, roomIDs []uint64) ([]repository.BookedInterval, error) {
	return f.intervals, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	bookedIn := date(2026, 9, 10)
	bookedOut := date(2026, 9, 15)

	tests := []struct {
		name    string
		candIn  time.Time
		candOut time.Time
		want    bool
	}{
		{"entirely before", date(2026, 9, 1), date(2026, 9, 5), false},
		{"entirely after", date(2026, 9, 20), date(2026, 9, 25), false},
		{"checkout lands inside", date(2026, 9, 8), date(2026, 9, 12), true},
		{"checkin lands inside", date(2026, 9, 12), date(2026, 9, 20), true},
		{"candidate inside booked", date(2026, 9, 11), date(2026, 9, 13), true},
		{"candidate contains booked", date(2026, 9, 8), date(2026, 9, 20), true},
		{"identical interval", date(2026, 9, 10), date(2026, 9, 15), true},
		// Boundaries are inclusive: arriving the day the other guest
		// leaves still collides.
		{"checkin on booked checkout day", date(2026, 9, 15), date(2026, 9, 20), true},
		{"checkout on booked checkin day", date(2026, 9, 5), date(2026, 9, 10), true},
		{"checkin the day after checkout", date(2026, 9, 16), date(2026, 9, 20), false},
		{"checkout the day before checkin", date(2026, 9, 5), date(2026, 9, 9), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, overlaps(tt.candIn, tt.candOut, bookedIn, bookedOut))
		})
	}
}

func TestCheckAvailabilityPartitionsRooms(t *testing.T) {
	rooms := []model.Room{
		{ID: 1, PriceCents: 10000},
		{ID: 2, PriceCents: 20000, DiscountedPriceCents: 15000, DiscountPercentage: 25},
		{ID: 3, PriceCents: 30000},
	}
	store := &fakeIntervals{intervals: []repository.BookedInterval{
		{RoomID: 2, CheckIn: date(2026, 9, 10), CheckOut: date(2026, 9, 15)},
		// Room 3 is booked, but outside the candidate window.
		{RoomID: 3, CheckIn: date(2026, 10, 1), CheckOut: date(2026, 10, 5)},
	}}

	av, err := CheckAvailability(context.Background(), store, rooms, date(2026, 9, 12), date(2026, 9, 18))
	require.NoError(t, err)

	require.Len(t, av.Available, 2)
	assert.Equal(t, uint64(1), av.Available[0].ID)
	assert.Equal(t, uint64(3), av.Available[1].ID)

	require.Len(t, av.Unavailable, 1)
	assert.Equal(t, uint64(2), av.Unavailable[0].Room.ID)
	assert.Equal(t, uint32(15000), av.Unavailable[0].NightlyCents, "blocked rooms still show their billed rate")

	assert.False(t, av.AllAvailable)
}

func TestCheckAvailabilityAllFree(t *testing.T) {
	rooms := []model.Room{{ID: 1, PriceCents: 10000}}
	store := &fakeIntervals{}

	av, err := CheckAvailability(context.Background(), store, rooms, date(2026, 9, 1), date(2026, 9, 5))
	require.NoError(t, err)
	assert.True(t, av.AllAvailable)
	assert.Empty(t, av.Unavailable)
}

func TestCheckAvailabilityMultipleIntervalsSameRoom(t *testing.T) {
	rooms := []model.Room{{ID: 1, PriceCents: 10000}}
	store := &fakeIntervals{intervals: []repository.BookedInterval{
		{RoomID: 1, CheckIn: date(2026, 9, 1), CheckOut: date(2026, 9, 3)},
		{RoomID: 1, CheckIn: date(2026, 9, 20), CheckOut: date(2026, 9, 25)},
	}}

	// Candidate fits in the gap between the two bookings.
	av, err := CheckAvailability(context.Background(), store, rooms, date(2026, 9, 5), date(2026, 9, 18))
	require.NoError(t, err)
	assert.True(t, av.AllAvailable)
}

// The availability check is read-only: passing it reserves nothing.
// Two customers checking the same room and dates concurrently will
// both be told it is free, and whichever booking lands second wins
// anyway. The check must be re-run (and the interval re-read) inside
// whatever eventually closes that gap.
func TestCheckAvailabilityReservesNothing(t *testing.T) {
	rooms := []model.Room{{ID: 1, PriceCents: 10000}}
	store := &fakeIntervals{}

	first, err := CheckAvailability(context.Background(), store, rooms, date(2026, 9, 5), date(2026, 9, 10))
	require.NoError(t, err)
	second, err := CheckAvailability(context.Background(), store, rooms, date(2026, 9, 5), date(2026, 9, 10))
	require.NoError(t, err)

	assert.True(t, first.AllAvailable)
	assert.True(t, second.AllAvailable, "the first check must not block the second")
}
