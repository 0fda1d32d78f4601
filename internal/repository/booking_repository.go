package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "strings"
    "time"

    "github.com/iliyamo/hotello/internal/model"
)

// BookingRepo provides data access to the bookings and booking_rooms
// tables. Booking creation spans both tables and runs inside a
// transaction supplied by the caller.
type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingColumns = "id,user_id,checkout_session_id,booked_check_in,booked_check_out," +
    "actual_check_in,actual_check_out,stay_in_days,base_price_cents,reservation_hold_cents," +
    "due_at_check_in_cents,payment_type,payment_status,fulfillment_status,canceled," +
    "payment_intent_id,user_snapshot,created_at,updated_at"

// CreateTx inserts a booking within the given transaction and
// populates the generated id.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    res, err := tx.ExecContext(ctx,
        `INSERT INTO bookings
         (user_id, checkout_session_id, booked_check_in, booked_check_out, stay_in_days,
          base_price_cents, reservation_hold_cents, due_at_check_in_cents,
          payment_type, payment_status, fulfillment_status, payment_intent_id, user_snapshot)
         VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
        b.UserID, b.CheckoutSessionID, b.BookedCheckIn.UTC(), b.BookedCheckOut.UTC(), b.StayInDays,
        b.BasePriceCents, b.ReservationHoldCents, b.DueAtCheckInCents,
        b.PaymentType, b.PaymentStatus, model.FulfillmentNotCheckedIn, b.PaymentIntentID, b.UserSnapshot)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    b.FulfillmentStatus = model.FulfillmentNotCheckedIn
    return nil
}

// CreateRoomsBulkTx inserts the booking_rooms rows in one statement.
func (r *BookingRepo) CreateRoomsBulkTx(ctx context.Context, tx *sql.Tx, rooms []model.BookingRoom) error {
    if len(rooms) == 0 {
        return nil
    }
    q := "INSERT INTO booking_rooms (booking_id, room_id, nightly_cents, guests, room_snapshot) VALUES "
    args := make([]interface{}, 0, len(rooms)*5)
    for i, br := range rooms {
        if i > 0 {
            q += ","
        }
        q += "(?,?,?,?,?)"
        guests, err := json.Marshal(br.Guests)
        if err != nil {
            return err
        }
        args = append(args, br.BookingID, br.RoomID, br.NightlyCents, string(guests), br.RoomSnapshot)
    }
    _, err := tx.ExecContext(ctx, q, args...)
    return err
}

// BookedInterval is the slice of a booking the availability engine
// needs: which room, and the booked date range.
type BookedInterval struct {
    RoomID   uint64
    CheckIn  time.Time
    CheckOut time.Time
}

// ListActiveIntervals returns booked intervals for the given rooms
// from bookings that still block availability: not canceled and the
// customer has not yet checked out.
func (r *BookingRepo) ListActiveIntervals(ctx context.Context, roomIDs []uint64) ([]BookedInterval, error) {
    if len(roomIDs) == 0 {
        return []BookedInterval{}, nil
    }
    placeholders := strings.Repeat("?,", len(roomIDs))
    placeholders = placeholders[:len(placeholders)-1]
    args := make([]interface{}, len(roomIDs))
    for i, id := range roomIDs {
        args[i] = id
    }
    rows, err := r.DB.QueryContext(ctx,
        `SELECT br.room_id, b.booked_check_in, b.booked_check_out
         FROM booking_rooms br
         JOIN bookings b ON b.id = br.booking_id
         WHERE br.room_id IN (`+placeholders+`)
           AND b.canceled = 0
           AND b.actual_check_out IS NULL`, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []BookedInterval{}
    for rows.Next() {
        var iv BookedInterval
        if err := rows.Scan(&iv.RoomID, &iv.CheckIn, &iv.CheckOut); err != nil {
            return nil, err
        }
        out = append(out, iv)
    }
    return out, rows.Err()
}

func (r *BookingRepo) scanRow(row *sql.Row) (model.Booking, error) {
    var b model.Booking
    err := row.Scan(&b.ID, &b.UserID, &b.CheckoutSessionID, &b.BookedCheckIn, &b.BookedCheckOut,
        &b.ActualCheckIn, &b.ActualCheckOut, &b.StayInDays, &b.BasePriceCents, &b.ReservationHoldCents,
        &b.DueAtCheckInCents, &b.PaymentType, &b.PaymentStatus, &b.FulfillmentStatus, &b.Canceled,
        &b.PaymentIntentID, &b.UserSnapshot, &b.CreatedAt, &b.UpdatedAt)
    return b, err
}

// GetByID fetches a booking by primary key.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
    return r.scanRow(r.DB.QueryRowContext(ctx,
        "SELECT "+bookingColumns+" FROM bookings WHERE id=? LIMIT 1", id))
}

// ListForUser returns a customer's bookings, newest first.
func (r *BookingRepo) ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
    rows, err := r.DB.QueryContext(ctx,
        "SELECT "+bookingColumns+" FROM bookings WHERE user_id=? ORDER BY created_at DESC", userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanBookings(rows)
}

// ListAll returns every booking for the admin back-office, newest
// first.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.Booking, error) {
    rows, err := r.DB.QueryContext(ctx,
        "SELECT " + bookingColumns + " FROM bookings ORDER BY created_at DESC")
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanBookings(rows)
}

// ListRooms returns the booking_rooms rows for one booking.
func (r *BookingRepo) ListRooms(ctx context.Context, bookingID uint64) ([]model.BookingRoom, error) {
    rows, err := r.DB.QueryContext(ctx,
        `SELECT id, booking_id, room_id, nightly_cents, guests, room_snapshot, created_at
         FROM booking_rooms WHERE booking_id=?`, bookingID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.BookingRoom{}
    for rows.Next() {
        var br model.BookingRoom
        var guests string
        if err := rows.Scan(&br.ID, &br.BookingID, &br.RoomID, &br.NightlyCents, &guests, &br.RoomSnapshot, &br.CreatedAt); err != nil {
            return nil, err
        }
        if guests != "" {
            if err := json.Unmarshal([]byte(guests), &br.Guests); err != nil {
                return nil, err
            }
        }
        out = append(out, br)
    }
    return out, rows.Err()
}

// SetFulfillment records a fulfillment transition together with the
// matching actual check-in/out timestamp.
func (r *BookingRepo) SetFulfillment(ctx context.Context, id uint64, status string, actualCheckIn, actualCheckOut *time.Time) error {
    _, err := r.DB.ExecContext(ctx,
        `UPDATE bookings SET fulfillment_status=?,
           actual_check_in=COALESCE(?, actual_check_in),
           actual_check_out=COALESCE(?, actual_check_out)
         WHERE id=?`,
        status, actualCheckIn, actualCheckOut, id)
    return err
}

// SetPaymentStatus updates the payment state.
func (r *BookingRepo) SetPaymentStatus(ctx context.Context, id uint64, status string) error {
    _, err := r.DB.ExecContext(ctx, "UPDATE bookings SET payment_status=? WHERE id=?", status, id)
    return err
}

// SetCanceled flags the booking canceled; canceled bookings stop
// blocking availability immediately.
func (r *BookingRepo) SetCanceled(ctx context.Context, id uint64) error {
    _, err := r.DB.ExecContext(ctx, "UPDATE bookings SET canceled=1 WHERE id=?", id)
    return err
}

func scanBookings(rows *sql.Rows) ([]model.Booking, error) {
    out := []model.Booking{}
    for rows.Next() {
        var b model.Booking
        if err := rows.Scan(&b.ID, &b.UserID, &b.CheckoutSessionID, &b.BookedCheckIn, &b.BookedCheckOut,
            &b.ActualCheckIn, &b.ActualCheckOut, &b.StayInDays, &b.BasePriceCents, &b.ReservationHoldCents,
            &b.DueAtCheckInCents, &b.PaymentType, &b.PaymentStatus, &b.FulfillmentStatus, &b.Canceled,
            &b.PaymentIntentID, &b.UserSnapshot, &b.CreatedAt, &b.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}
