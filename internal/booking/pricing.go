package booking

import (
    "time"

    "github.com/jinzhu/now"

    "github.com/iliyamo/hotello/internal/model"
)

// All monetary values are integers in minor currency units end-to-end;
// the *Display fields divide by 100 purely for presentation.

// RoomPrice is one room's billed nightly rate.
type RoomPrice struct {
    RoomID         uint64  `json:"roomId"`
    NightlyCents   uint32  `json:"nightlyCents"`
    NightlyDisplay float64 `json:"nightlyDisplay"`
}

// PriceBreakdown is the full computed price of a stay.
type PriceBreakdown struct {
    Rooms                  []RoomPrice `json:"rooms"`
    BaseNightlyCents       uint32      `json:"baseNightlyCents"`
    StayTotalCents         uint32      `json:"stayTotalCents"`
    ReservationHoldCents   uint32      `json:"reservationHoldCents"`
    BaseNightlyDisplay     float64     `json:"baseNightlyDisplay"`
    StayTotalDisplay       float64     `json:"stayTotalDisplay"`
    ReservationHoldDisplay float64     `json:"reservationHoldDisplay"`
}

// NightlyRateCents picks the billed nightly rate for a room: the
// discounted price applies only when both the discount percentage and
// the discounted price are non-zero.
func NightlyRateCents(r model.Room) uint32 {
    if r.DiscountPercentage > 0 && r.DiscountedPriceCents > 0 {
        return r.DiscountedPriceCents
    }
    return r.PriceCents
}

// CalculatePrices sums the billed nightly rates, multiplies by the
// stay length, and derives the fixed 25% non-refundable reservation
// hold, rounded to the nearest cent.
func CalculatePrices(rooms []model.Room, stayInDays uint32) PriceBreakdown {
    out := PriceBreakdown{Rooms: make([]RoomPrice, 0, len(rooms))}
    for _, r := range rooms {
        nightly := NightlyRateCents(r)
        out.Rooms = append(out.Rooms, RoomPrice{
            RoomID:         r.ID,
            NightlyCents:   nightly,
            NightlyDisplay: float64(nightly) / 100,
        })
        out.BaseNightlyCents += nightly
    }
    out.StayTotalCents = out.BaseNightlyCents * stayInDays
    // integer round-half-up of 25%
    out.ReservationHoldCents = (out.StayTotalCents*25 + 50) / 100
    out.BaseNightlyDisplay = float64(out.BaseNightlyCents) / 100
    out.StayTotalDisplay = float64(out.StayTotalCents) / 100
    out.ReservationHoldDisplay = float64(out.ReservationHoldCents) / 100
    return out
}

// StayInDays counts the nights between two dates by calendar day,
// never less than one.
func StayInDays(checkIn, checkOut time.Time) uint32 {
    in := now.New(checkIn.UTC()).BeginningOfDay()
    out := now.New(checkOut.UTC()).BeginningOfDay()
    days := int(out.Sub(in).Hours() / 24)
    if days < 1 {
        return 1
    }
    return uint32(days)
}
