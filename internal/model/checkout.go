package model

import "time"

// CheckoutStep enumerates the fixed, ordered steps of the checkout
// flow. The order is part of the contract: Advance moves strictly to
// the next step, GoTo may jump to any step for editing.
type CheckoutStep string

const (
    StepPersonalDetails   CheckoutStep = "PERSONAL_DETAILS"
    StepBillingDetails    CheckoutStep = "BILLING_DETAILS"
    StepBookingDetails    CheckoutStep = "BOOKING_DETAILS"
    StepReviewInformation CheckoutStep = "REVIEW_INFORMATION"
    StepFinalPayment      CheckoutStep = "FINAL_PAYMENT"
)

// CheckoutStepOrder is the canonical step sequence.
var CheckoutStepOrder = []CheckoutStep{
    StepPersonalDetails,
    StepBillingDetails,
    StepBookingDetails,
    StepReviewInformation,
    StepFinalPayment,
}

// Valid reports whether s is one of the five named steps.
func (s CheckoutStep) Valid() bool {
    for _, v := range CheckoutStepOrder {
        if s == v {
            return true
        }
    }
    return false
}

// Next returns the step following s and true, or s and false when s is
// the terminal step.
func (s CheckoutStep) Next() (CheckoutStep, bool) {
    for i, v := range CheckoutStepOrder {
        if s == v && i+1 < len(CheckoutStepOrder) {
            return CheckoutStepOrder[i+1], true
        }
    }
    return s, false
}

// Payment types stored in checkout_sessions.payment_type and
// bookings. A reservation hold pays a non-refundable 25% of the stay
// upfront with the remainder due at check-in.
const (
    PaymentFullUpfront     = "FULL_UPFRONT"
    PaymentReservationHold = "RESERVATION_HOLD"
)

// CheckoutSession models a row in the `checkout_sessions` table. It
// tracks an in-progress purchase across the five ordered steps. The
// cart's room ids and a JSON copy of the room rows are frozen at
// session creation (refreshed only when the live cart's id-set size
// changes). Each step owns a disjoint set of columns; data captured
// for earlier steps is never cleared by navigation.
//
// Fields:
//  ID              – opaque UUID primary key.
//  Step            – current step in the fixed order.
//  RoomIDs         – JSON array of frozen cart room ids.
//  RoomsSnapshot   – JSON copy of the room rows at snapshot time.
//  PersonalDetails – step 1 fields (nil until captured).
//  BillingDetails  – step 2 fields (nil until captured).
//  BookingDetails  – step 3 fields (nil until captured).
//  PaymentIntentID – external payment-provider reference (nullable).
//  PaymentType     – FULL_UPFRONT or RESERVATION_HOLD.
//  CreatedBookingID– set once a Booking has been materialized (nullable).
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type CheckoutSession struct {
    ID              string           // checkout_sessions.id (uuid)
    Step            CheckoutStep     // checkout_sessions.step
    RoomIDs         []uint64         // checkout_sessions.room_ids (json)
    RoomsSnapshot   string           // checkout_sessions.rooms_snapshot (json)
    PersonalDetails *PersonalDetails // personal_* columns
    BillingDetails  *BillingDetails  // billing_* columns
    BookingDetails  *BookingDetails  // booking_* columns
    PaymentIntentID *string          // checkout_sessions.payment_intent_id (nullable)
    PaymentType     string           // checkout_sessions.payment_type
    CreatedBookingID *uint64         // checkout_sessions.created_booking_id (nullable)
    CreatedAt       time.Time        // checkout_sessions.created_at
    UpdatedAt       time.Time        // checkout_sessions.updated_at
}

// PersonalDetails holds the validated fields captured by the
// PERSONAL_DETAILS step.
type PersonalDetails struct {
    FirstName string `json:"firstName" validate:"required"`
    LastName  string `json:"lastName" validate:"required"`
    Email     string `json:"email" validate:"required,email"`
    PhoneNum  string `json:"phoneNum" validate:"required"`
    Age       uint8  `json:"age" validate:"required,gte=18,lte=104"`
}

// BillingDetails holds the validated fields captured by the
// BILLING_DETAILS step.
type BillingDetails struct {
    Country    string `json:"country" validate:"required"`
    State      string `json:"state" validate:"required"`
    City       string `json:"city" validate:"required"`
    Street     string `json:"street" validate:"required"`
    PostalCode string `json:"postalCode" validate:"required"`
}

// RoomGuests is the guest roster for one room on a booking.
type RoomGuests struct {
    RoomID uint64   `json:"roomId" validate:"required"`
    Guests []string `json:"guests" validate:"required,min=1,dive,required"`
}

// BookingDetails holds the validated fields captured by the
// BOOKING_DETAILS step. AllRoomsAvailable must have been confirmed
// true against the availability engine before the step can be left.
type BookingDetails struct {
    CheckIn           time.Time    `json:"checkIn" validate:"required"`
    CheckOut          time.Time    `json:"checkOut" validate:"required"`
    GuestInformation  []RoomGuests `json:"guestInformation" validate:"required,min=1,dive"`
    AllRoomsAvailable bool         `json:"allRoomsAvailable" validate:"eq=true"`
}

// StepData is the tagged union view of a checkout session's captured
// fields, keyed by step name. Only steps that have been submitted
// appear in the map.
type StepData map[CheckoutStep]any

// CapturedSteps assembles the tagged union of all step data captured
// so far.
func (s *CheckoutSession) CapturedSteps() StepData {
    out := StepData{}
    if s.PersonalDetails != nil {
        out[StepPersonalDetails] = s.PersonalDetails
    }
    if s.BillingDetails != nil {
        out[StepBillingDetails] = s.BillingDetails
    }
    if s.BookingDetails != nil {
        out[StepBookingDetails] = s.BookingDetails
    }
    return out
}
