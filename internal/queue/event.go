// Package queue defines message payloads exchanged over the message broker.
package queue

// Event names carried in BookingEvent.Type.
const (
    EventBookingCreated    = "booking.created"
    EventBookingCheckedIn  = "booking.checked_in"
    EventBookingCheckedOut = "booking.checked_out"
    EventBookingCanceled   = "booking.canceled"
)

// BookingEvent is published on every booking lifecycle transition. It
// contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type BookingEvent struct {
    Type                 string   `json:"type"`
    BookingID            uint64   `json:"booking_id"`
    UserID               uint64   `json:"user_id"`
    RoomIDs              []uint64 `json:"room_ids"`
    CheckIn              string   `json:"check_in"`
    CheckOut             string   `json:"check_out"`
    StayInDays           uint32   `json:"stay_in_days"`
    PaymentType          string   `json:"payment_type"`
    BasePriceCents       uint32   `json:"base_price_cents"`
    ReservationHoldCents uint32   `json:"reservation_hold_cents"`
    FulfillmentStatus    string   `json:"fulfillment_status"`
    OccurredAt           string   `json:"occurred_at"`
}
