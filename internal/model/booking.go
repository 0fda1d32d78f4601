package model

import "time"

// Payment statuses stored in bookings.payment_status. Full-upfront
// bookings are PAID from creation. Reservation holds start PENDING
// (only the hold was charged) and move to PAID when the remainder is
// collected at check-in, or FAILED when the booking is missed.
const (
    PaymentStatusPending = "PENDING"
    PaymentStatusPaid    = "PAID"
    PaymentStatusFailed  = "FAILED"
)

// Fulfillment statuses stored in bookings.fulfillment_status. The
// lifecycle runs NOT_YET_CHECKED_IN -> {MISSED | CHECKED_IN_ON_TIME |
// CHECKED_IN_LATE} -> {CHECKED_OUT_ON_TIME | CHECKED_OUT_EARLY}.
const (
    FulfillmentNotCheckedIn      = "NOT_YET_CHECKED_IN"
    FulfillmentMissed            = "MISSED"
    FulfillmentCheckedInOnTime   = "CUSTOMER_CHECKED_IN_ON_TIME"
    FulfillmentCheckedInLate     = "CUSTOMER_CHECKED_IN_LATE"
    FulfillmentCheckedOutOnTime  = "CUSTOMER_CHECKED_OUT_ON_TIME"
    FulfillmentCheckedOutEarly   = "CUSTOMER_CHECKED_OUT_EARLY"
)

// Booking is the final artifact derived from a completed checkout
// session, stored in the `bookings` table. Monetary fields are cents.
// Frozen JSON snapshots of the user row are retained for audit even if
// the live record changes later; per-room snapshots live on the
// booking_rooms rows.
//
// Fields:
//  ID                   – primary key identifier.
//  UserID               – customer who paid.
//  CheckoutSessionID    – originating checkout session.
//  BookedCheckIn        – check-in date agreed at booking time.
//  BookedCheckOut       – check-out date agreed at booking time.
//  ActualCheckIn        – when the customer physically checked in (nullable).
//  ActualCheckOut       – when the customer physically checked out (nullable).
//  StayInDays           – computed stay length in days.
//  BasePriceCents       – full stay total in cents.
//  ReservationHoldCents – 25% non-refundable hold in cents.
//  DueAtCheckInCents    – remainder payable at check-in (zero for full upfront).
//  PaymentType          – FULL_UPFRONT or RESERVATION_HOLD.
//  PaymentStatus        – PENDING, PAID or FAILED.
//  FulfillmentStatus    – check-in/check-out lifecycle state.
//  Canceled             – cancellation flag; canceled bookings never block availability.
//  PaymentIntentID      – external payment-provider charge reference.
//  UserSnapshot         – frozen JSON copy of the user row.
//  CreatedAt            – creation timestamp.
//  UpdatedAt            – last update timestamp.
type Booking struct {
    ID                   uint64     // bookings.id
    UserID               uint64     // bookings.user_id
    CheckoutSessionID    string     // bookings.checkout_session_id
    BookedCheckIn        time.Time  // bookings.booked_check_in
    BookedCheckOut       time.Time  // bookings.booked_check_out
    ActualCheckIn        *time.Time // bookings.actual_check_in (nullable)
    ActualCheckOut       *time.Time // bookings.actual_check_out (nullable)
    StayInDays           uint32     // bookings.stay_in_days
    BasePriceCents       uint32     // bookings.base_price_cents
    ReservationHoldCents uint32     // bookings.reservation_hold_cents
    DueAtCheckInCents    uint32     // bookings.due_at_check_in_cents
    PaymentType          string     // bookings.payment_type
    PaymentStatus        string     // bookings.payment_status
    FulfillmentStatus    string     // bookings.fulfillment_status
    Canceled             bool       // bookings.canceled
    PaymentIntentID      string     // bookings.payment_intent_id
    UserSnapshot         string     // bookings.user_snapshot (json)
    CreatedAt            time.Time  // bookings.created_at
    UpdatedAt            time.Time  // bookings.updated_at
}

// BookingRoom links a booking to one booked room, carrying the guest
// roster and a price/room snapshot taken at booking time.
//
// Fields:
//  ID             – primary key identifier.
//  BookingID      – owning booking.
//  RoomID         – booked room.
//  NightlyCents   – billed nightly rate snapshot in cents.
//  Guests         – JSON array of guest names for this room.
//  RoomSnapshot   – frozen JSON copy of the room row.
//  CreatedAt      – creation timestamp.
type BookingRoom struct {
    ID           uint64    // booking_rooms.id
    BookingID    uint64    // booking_rooms.booking_id
    RoomID       uint64    // booking_rooms.room_id
    NightlyCents uint32    // booking_rooms.nightly_cents
    Guests       []string  // booking_rooms.guests (json)
    RoomSnapshot string    // booking_rooms.room_snapshot (json)
    CreatedAt    time.Time // booking_rooms.created_at
}
