package booking

import (
    "context"
    "database/sql"
    "encoding/json"
    "log/slog"
    "time"

    "github.com/jinzhu/now"

    "github.com/iliyamo/hotello/internal/apperr"
    "github.com/iliyamo/hotello/internal/mailer"
    "github.com/iliyamo/hotello/internal/model"
    "github.com/iliyamo/hotello/internal/payment"
    "github.com/iliyamo/hotello/internal/queue"
)

// CheckoutStore is the slice of the checkout repository the booking
// service needs.
type CheckoutStore interface {
    GetByID(ctx context.Context, id string) (model.CheckoutSession, error)
    SavePaymentConfig(ctx context.Context, id, paymentIntentID, paymentType string) error
    SetCreatedBooking(ctx context.Context, id string, bookingID uint64) error
}

// RoomStore resolves room ids into live rows for re-pricing.
type RoomStore interface {
    ListByIDs(ctx context.Context, ids []uint64) ([]model.Room, error)
}

// UserStore is the slice of the user repository the booking service
// needs.
type UserStore interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
    ClearNewUserFlag(ctx context.Context, id uint64) error
}

// BookingStore persists bookings and their lifecycle transitions.
// *repository.BookingRepo satisfies it.
type BookingStore interface {
    CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
    CreateRoomsBulkTx(ctx context.Context, tx *sql.Tx, rooms []model.BookingRoom) error
    GetByID(ctx context.Context, id uint64) (model.Booking, error)
    SetFulfillment(ctx context.Context, id uint64, status string, actualCheckIn, actualCheckOut *time.Time) error
    SetPaymentStatus(ctx context.Context, id uint64, status string) error
    SetCanceled(ctx context.Context, id uint64) error
}

// Service materializes bookings from completed checkout sessions and
// drives the fulfillment lifecycle.
type Service struct {
    DB        *sql.DB
    Bookings  BookingStore
    Checkouts CheckoutStore
    Rooms     RoomStore
    Intervals IntervalStore
    Users     UserStore
    Provider  payment.Provider
    Mailer    mailer.Mailer
    // Publish emits booking lifecycle events; failures are logged and
    // never fail the request.
    Publish  func(ctx context.Context, ev queue.BookingEvent) error
    Log      *slog.Logger
    Currency string
}

// ConfigurePayment computes the amount due under the chosen payment
// type and creates or updates the provider payment intent, persisting
// the reference on the checkout session.
func (s *Service) ConfigurePayment(ctx context.Context, sessionID, paymentType string) (payment.Intent, PriceBreakdown, error) {
    if paymentType != model.PaymentFullUpfront && paymentType != model.PaymentReservationHold {
        return payment.Intent{}, PriceBreakdown{}, apperr.NewValidation(map[string]string{"paymentType": "invalid value"})
    }
    sess, err := s.Checkouts.GetByID(ctx, sessionID)
    if err != nil {
        return payment.Intent{}, PriceBreakdown{}, apperr.New(apperr.NotFound, "checkout session not found")
    }
    if sess.BookingDetails == nil {
        return payment.Intent{}, PriceBreakdown{}, apperr.New(apperr.Conflict, "booking details not captured yet")
    }
    prices, _, err := s.priceSession(ctx, &sess)
    if err != nil {
        return payment.Intent{}, PriceBreakdown{}, err
    }
    due := dueAmountCents(prices, paymentType)

    var intent payment.Intent
    if sess.PaymentIntentID == nil {
        intent, err = s.Provider.CreatePaymentIntent(ctx, int64(due), s.Currency)
    } else {
        intent, err = s.Provider.UpdatePaymentIntent(ctx, *sess.PaymentIntentID, int64(due))
    }
    if err != nil {
        return payment.Intent{}, PriceBreakdown{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    if err := s.Checkouts.SavePaymentConfig(ctx, sessionID, intent.ID, paymentType); err != nil {
        return payment.Intent{}, PriceBreakdown{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    return intent, prices, nil
}

// CreateBooking turns a fully captured, paid-for checkout session into
// a Booking. The amount is reconciled first: the expected charge is
// re-derived from the persisted payment type and the currently priced
// cart, then compared against what the provider actually authorized on
// the intent. Any difference, even one cent, aborts with a conflict
// and writes nothing.
func (s *Service) CreateBooking(ctx context.Context, sessionID string, userID uint64) (model.Booking, error) {
    sess, err := s.Checkouts.GetByID(ctx, sessionID)
    if err != nil {
        return model.Booking{}, apperr.New(apperr.NotFound, "checkout session not found")
    }
    if sess.CreatedBookingID != nil {
        return model.Booking{}, apperr.New(apperr.Conflict, "booking already created for this checkout")
    }
    if sess.PersonalDetails == nil || sess.BookingDetails == nil || sess.PaymentIntentID == nil {
        return model.Booking{}, apperr.New(apperr.Conflict, "checkout is incomplete")
    }

    prices, rooms, err := s.priceSession(ctx, &sess)
    if err != nil {
        return model.Booking{}, err
    }
    expected := dueAmountCents(prices, sess.PaymentType)

    intent, err := s.Provider.RetrievePaymentIntent(ctx, *sess.PaymentIntentID)
    if err != nil {
        return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    if intent.AmountCents != int64(expected) {
        return model.Booking{}, apperr.New(apperr.Conflict, "amounts do not match, refresh and retry")
    }

    user, err := s.Users.GetByID(ctx, userID)
    if err != nil {
        return model.Booking{}, apperr.New(apperr.NotFound, "account not found")
    }
    userSnapshot, err := json.Marshal(user)
    if err != nil {
        return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }

    det := sess.BookingDetails
    stay := StayInDays(det.CheckIn, det.CheckOut)
    b := model.Booking{
        UserID:               user.ID,
        CheckoutSessionID:    sess.ID,
        BookedCheckIn:        det.CheckIn,
        BookedCheckOut:       det.CheckOut,
        StayInDays:           stay,
        BasePriceCents:       prices.StayTotalCents,
        ReservationHoldCents: prices.ReservationHoldCents,
        PaymentType:          sess.PaymentType,
        PaymentStatus:        model.PaymentStatusPaid,
        PaymentIntentID:      intent.ID,
        UserSnapshot:         string(userSnapshot),
    }
    if sess.PaymentType == model.PaymentReservationHold {
        // Only the hold has been charged; the remainder is collected
        // at the front desk, so the payment stays pending until then.
        b.DueAtCheckInCents = prices.StayTotalCents - prices.ReservationHoldCents
        b.PaymentStatus = model.PaymentStatusPending
    }

    guestsByRoom := make(map[uint64][]string)
    for _, rg := range det.GuestInformation {
        guestsByRoom[rg.RoomID] = rg.Guests
    }

    tx, err := s.DB.BeginTx(ctx, nil)
    if err != nil {
        return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := s.Bookings.CreateTx(ctx, tx, &b); err != nil {
        return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    bookingRooms := make([]model.BookingRoom, 0, len(rooms))
    for _, r := range rooms {
        snap, err := json.Marshal(r)
        if err != nil {
            return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
        }
        bookingRooms = append(bookingRooms, model.BookingRoom{
            BookingID:    b.ID,
            RoomID:       r.ID,
            NightlyCents: NightlyRateCents(r),
            Guests:       guestsByRoom[r.ID],
            RoomSnapshot: string(snap),
        })
    }
    if err := s.Bookings.CreateRoomsBulkTx(ctx, tx, bookingRooms); err != nil {
        return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    if err := tx.Commit(); err != nil {
        return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    committed = true

    if err := s.Checkouts.SetCreatedBooking(ctx, sess.ID, b.ID); err != nil {
        s.Log.Error("linking booking to checkout failed", "booking_id", b.ID, "checkout_id", sess.ID, "err", err)
    }
    if user.IsNewUser {
        if err := s.Users.ClearNewUserFlag(ctx, user.ID); err != nil {
            s.Log.Error("clearing new-user flag failed", "user_id", user.ID, "err", err)
        }
    }
    s.publish(ctx, queue.EventBookingCreated, &b, sess.RoomIDs)
    if err := s.Mailer.SendBookingConfirmation(user.Email, b.ID, uint32(intent.AmountCents)); err != nil {
        s.Log.Error("booking confirmation email failed", "booking_id", b.ID, "err", err)
    }
    return b, nil
}

// CheckIn records the customer's arrival. Comparisons are by calendar
// date, not exact timestamp. Attempting a check-in after the booked
// check-out date has fully elapsed flags the booking MISSED as a side
// effect and still fails.
func (s *Service) CheckIn(ctx context.Context, bookingID uint64) (model.Booking, error) {
    b, err := s.Bookings.GetByID(ctx, bookingID)
    if err != nil {
        return model.Booking{}, apperr.New(apperr.NotFound, "booking not found")
    }
    switch {
    case b.Canceled:
        return model.Booking{}, apperr.New(apperr.Conflict, "booking is canceled")
    case b.FulfillmentStatus == model.FulfillmentMissed:
        return model.Booking{}, apperr.New(apperr.Conflict, "booking was missed")
    case b.FulfillmentStatus == model.FulfillmentCheckedOutOnTime || b.FulfillmentStatus == model.FulfillmentCheckedOutEarly:
        return model.Booking{}, apperr.New(apperr.Conflict, "customer already checked out")
    case b.FulfillmentStatus != model.FulfillmentNotCheckedIn:
        return model.Booking{}, apperr.New(apperr.Conflict, "customer already checked in")
    }

    today := now.New(time.Now().UTC()).BeginningOfDay()
    inDay := now.New(b.BookedCheckIn.UTC()).BeginningOfDay()
    outDay := now.New(b.BookedCheckOut.UTC()).BeginningOfDay()

    if today.Before(inDay) {
        return model.Booking{}, apperr.New(apperr.Conflict, "check-in date has not arrived yet")
    }
    if today.After(outDay) {
        if err := s.Bookings.SetFulfillment(ctx, b.ID, model.FulfillmentMissed, nil, nil); err != nil {
            return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
        }
        if b.PaymentStatus == model.PaymentStatusPending {
            // The remainder due at check-in was never collected.
            if err := s.Bookings.SetPaymentStatus(ctx, b.ID, model.PaymentStatusFailed); err != nil {
                return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
            }
        }
        return model.Booking{}, apperr.New(apperr.Conflict, "booking was missed")
    }

    status := model.FulfillmentCheckedInOnTime
    if today.After(inDay) {
        status = model.FulfillmentCheckedInLate
    }
    ts := time.Now().UTC()
    if err := s.Bookings.SetFulfillment(ctx, b.ID, status, &ts, nil); err != nil {
        return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    b.FulfillmentStatus = status
    b.ActualCheckIn = &ts
    if b.PaymentStatus == model.PaymentStatusPending {
        // The front desk collects DueAtCheckInCents as part of
        // check-in; record the payment as settled.
        if err := s.Bookings.SetPaymentStatus(ctx, b.ID, model.PaymentStatusPaid); err != nil {
            return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
        }
        b.PaymentStatus = model.PaymentStatusPaid
    }
    s.publish(ctx, queue.EventBookingCheckedIn, &b, nil)
    return b, nil
}

// CheckOut records the customer's departure; "early" versus "on time"
// is decided by comparing today's calendar date against the booked
// checkout date.
func (s *Service) CheckOut(ctx context.Context, bookingID uint64) (model.Booking, error) {
    b, err := s.Bookings.GetByID(ctx, bookingID)
    if err != nil {
        return model.Booking{}, apperr.New(apperr.NotFound, "booking not found")
    }
    switch b.FulfillmentStatus {
    case model.FulfillmentCheckedInOnTime, model.FulfillmentCheckedInLate:
        // eligible
    case model.FulfillmentCheckedOutOnTime, model.FulfillmentCheckedOutEarly:
        return model.Booking{}, apperr.New(apperr.Conflict, "customer already checked out")
    default:
        return model.Booking{}, apperr.New(apperr.Conflict, "customer never checked in")
    }

    today := now.New(time.Now().UTC()).BeginningOfDay()
    outDay := now.New(b.BookedCheckOut.UTC()).BeginningOfDay()
    status := model.FulfillmentCheckedOutOnTime
    if today.Before(outDay) {
        status = model.FulfillmentCheckedOutEarly
    }
    ts := time.Now().UTC()
    if err := s.Bookings.SetFulfillment(ctx, b.ID, status, nil, &ts); err != nil {
        return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    b.FulfillmentStatus = status
    b.ActualCheckOut = &ts
    s.publish(ctx, queue.EventBookingCheckedOut, &b, nil)
    return b, nil
}

// Cancel flags a booking canceled, freeing its rooms immediately. A
// full-upfront payment is refunded through the provider; a reservation
// hold is non-refundable and kept.
func (s *Service) Cancel(ctx context.Context, bookingID uint64) (model.Booking, error) {
    b, err := s.Bookings.GetByID(ctx, bookingID)
    if err != nil {
        return model.Booking{}, apperr.New(apperr.NotFound, "booking not found")
    }
    if b.Canceled {
        return model.Booking{}, apperr.New(apperr.Conflict, "booking is already canceled")
    }
    if b.PaymentType == model.PaymentFullUpfront && b.PaymentStatus == model.PaymentStatusPaid {
        if _, err := s.Provider.Refund(ctx, b.PaymentIntentID); err != nil {
            return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
        }
    }
    if err := s.Bookings.SetCanceled(ctx, b.ID); err != nil {
        return model.Booking{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    b.Canceled = true
    s.publish(ctx, queue.EventBookingCanceled, &b, nil)
    return b, nil
}

// priceSession re-derives the price of a checkout session from the
// live room rows. Client-held cart contents are never trusted at rest;
// they are re-fetched, re-checked against the availability engine and
// re-priced on every use. The client's own allRoomsAvailable flag is a
// step-completion gate, never the authority.
func (s *Service) priceSession(ctx context.Context, sess *model.CheckoutSession) (PriceBreakdown, []model.Room, error) {
    rooms, err := s.Rooms.ListByIDs(ctx, sess.RoomIDs)
    if err != nil {
        return PriceBreakdown{}, nil, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    if len(rooms) != len(sess.RoomIDs) {
        return PriceBreakdown{}, nil, apperr.New(apperr.Conflict, "a selected room is no longer offered, refresh and retry")
    }
    stay := uint32(1)
    if sess.BookingDetails != nil {
        stay = StayInDays(sess.BookingDetails.CheckIn, sess.BookingDetails.CheckOut)
        av, err := CheckAvailability(ctx, s.Intervals, rooms, sess.BookingDetails.CheckIn, sess.BookingDetails.CheckOut)
        if err != nil {
            return PriceBreakdown{}, nil, err
        }
        if !av.AllAvailable {
            return PriceBreakdown{}, nil, apperr.New(apperr.Conflict, "a selected room is no longer available for these dates, refresh and retry")
        }
    }
    return CalculatePrices(rooms, stay), rooms, nil
}

func dueAmountCents(p PriceBreakdown, paymentType string) uint32 {
    if paymentType == model.PaymentReservationHold {
        return p.ReservationHoldCents
    }
    return p.StayTotalCents
}

func (s *Service) publish(ctx context.Context, eventType string, b *model.Booking, roomIDs []uint64) {
    if s.Publish == nil {
        return
    }
    ev := queue.BookingEvent{
        Type:                 eventType,
        BookingID:            b.ID,
        UserID:               b.UserID,
        RoomIDs:              roomIDs,
        CheckIn:              b.BookedCheckIn.UTC().Format(time.RFC3339),
        CheckOut:             b.BookedCheckOut.UTC().Format(time.RFC3339),
        StayInDays:           b.StayInDays,
        PaymentType:          b.PaymentType,
        BasePriceCents:       b.BasePriceCents,
        ReservationHoldCents: b.ReservationHoldCents,
        FulfillmentStatus:    b.FulfillmentStatus,
        OccurredAt:           time.Now().UTC().Format(time.RFC3339),
    }
    if err := s.Publish(ctx, ev); err != nil {
        s.Log.Error("booking event publish failed", "type", eventType, "booking_id", b.ID, "err", err)
    }
}
