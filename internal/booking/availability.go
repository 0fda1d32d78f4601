package booking

import (
    "context"
    "time"

    "github.com/iliyamo/hotello/internal/apperr"
    "github.com/iliyamo/hotello/internal/model"
    "github.com/iliyamo/hotello/internal/repository"
)

// IntervalStore supplies the booked intervals that still block
// availability (not canceled, customer not yet checked out).
type IntervalStore interface {
    ListActiveIntervals(ctx context.Context, roomIDs []uint64) ([]repository.BookedInterval, error)
}

// UnavailableRoom pairs a blocked room with its price so the UI can
// still display it.
type UnavailableRoom struct {
    Room         model.Room `json:"room"`
    NightlyCents uint32     `json:"nightlyCents"`
}

// Availability is the result of an availability check.
type Availability struct {
    Available    []model.Room      `json:"available"`
    Unavailable  []UnavailableRoom `json:"unavailable"`
    AllAvailable bool              `json:"allAvailable"`
}

// CheckAvailability partitions the requested rooms by whether any
// active booking overlaps the candidate interval. AllAvailable is true
// iff every requested room landed in the available set.
//
// Note the availability check and booking creation are not wrapped in
// one transaction: two customers racing for the same room and dates
// can both pass this check. Closing that gap needs a storage-level
// exclusion constraint.
func CheckAvailability(ctx context.Context, store IntervalStore, rooms []model.Room, checkIn, checkOut time.Time) (Availability, error) {
    ids := make([]uint64, len(rooms))
    for i, r := range rooms {
        ids[i] = r.ID
    }
    intervals, err := store.ListActiveIntervals(ctx, ids)
    if err != nil {
        return Availability{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    blocked := make(map[uint64]bool)
    for _, iv := range intervals {
        if overlaps(checkIn, checkOut, iv.CheckIn, iv.CheckOut) {
            blocked[iv.RoomID] = true
        }
    }
    out := Availability{Available: []model.Room{}, Unavailable: []UnavailableRoom{}}
    for _, r := range rooms {
        if blocked[r.ID] {
            out.Unavailable = append(out.Unavailable, UnavailableRoom{Room: r, NightlyCents: NightlyRateCents(r)})
        } else {
            out.Available = append(out.Available, r)
        }
    }
    out.AllAvailable = len(out.Unavailable) == 0 && len(out.Available) == len(rooms)
    return out, nil
}

// overlaps applies the inclusive-boundary overlap rule across its
// three cases: the candidate's checkout falls inside the booked
// interval, the candidate's checkin falls inside it, or the candidate
// fully contains it.
func overlaps(candIn, candOut, bookedIn, bookedOut time.Time) bool {
    within := func(t, from, to time.Time) bool {
        return !t.Before(from) && !t.After(to)
    }
    if within(candOut, bookedIn, bookedOut) {
        return true
    }
    if within(candIn, bookedIn, bookedOut) {
        return true
    }
    return !candIn.After(bookedIn) && !candOut.Before(bookedOut)
}
