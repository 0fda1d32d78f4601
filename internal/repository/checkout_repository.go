package repository

import (
    "context"
    "database/sql"
    "encoding/json"

    "github.com/iliyamo/hotello/internal/model"
)

// CheckoutRepo provides data access to the checkout_sessions table.
// The table is a flattened record: each step owns a disjoint column
// prefix (personal_*, billing_*, booking_*) so a step submission only
// ever overwrites its own columns. The repo reassembles the flattened
// row into the per-step structs on read.
type CheckoutRepo struct{ DB *sql.DB }

func NewCheckoutRepo(db *sql.DB) *CheckoutRepo { return &CheckoutRepo{DB: db} }

// Create inserts a fresh session at PERSONAL_DETAILS with the frozen
// cart snapshot.
func (r *CheckoutRepo) Create(ctx context.Context, s *model.CheckoutSession) error {
    roomIDs, err := json.Marshal(s.RoomIDs)
    if err != nil {
        return err
    }
    _, err = r.DB.ExecContext(ctx,
        `INSERT INTO checkout_sessions (id, step, room_ids, rooms_snapshot, payment_type)
         VALUES (?,?,?,?,?)`,
        s.ID, string(model.StepPersonalDetails), string(roomIDs), s.RoomsSnapshot, s.PaymentType)
    return err
}

// GetByID loads a checkout session and unflattens its step columns.
func (r *CheckoutRepo) GetByID(ctx context.Context, id string) (model.CheckoutSession, error) {
    var (
        s        model.CheckoutSession
        step     string
        roomIDs  string
        pFirst, pLast, pEmail, pPhone sql.NullString
        pAge     sql.NullInt64
        bCountry, bState, bCity, bStreet, bPostal sql.NullString
        bkIn, bkOut sql.NullTime
        bkGuests sql.NullString
        bkAvail  sql.NullBool
    )
    err := r.DB.QueryRowContext(ctx,
        `SELECT id, step, room_ids, rooms_snapshot,
                personal_first_name, personal_last_name, personal_email, personal_phone_num, personal_age,
                billing_country, billing_state, billing_city, billing_street, billing_postal_code,
                booking_check_in, booking_check_out, booking_guest_information, booking_all_rooms_available,
                payment_intent_id, payment_type, created_booking_id, created_at, updated_at
         FROM checkout_sessions WHERE id=? LIMIT 1`, id).Scan(
        &s.ID, &step, &roomIDs, &s.RoomsSnapshot,
        &pFirst, &pLast, &pEmail, &pPhone, &pAge,
        &bCountry, &bState, &bCity, &bStreet, &bPostal,
        &bkIn, &bkOut, &bkGuests, &bkAvail,
        &s.PaymentIntentID, &s.PaymentType, &s.CreatedBookingID, &s.CreatedAt, &s.UpdatedAt)
    if err != nil {
        return s, err
    }
    s.Step = model.CheckoutStep(step)
    if err := json.Unmarshal([]byte(roomIDs), &s.RoomIDs); err != nil {
        return s, err
    }
    if pFirst.Valid {
        s.PersonalDetails = &model.PersonalDetails{
            FirstName: pFirst.String,
            LastName:  pLast.String,
            Email:     pEmail.String,
            PhoneNum:  pPhone.String,
            Age:       uint8(pAge.Int64),
        }
    }
    if bCountry.Valid {
        s.BillingDetails = &model.BillingDetails{
            Country:    bCountry.String,
            State:      bState.String,
            City:       bCity.String,
            Street:     bStreet.String,
            PostalCode: bPostal.String,
        }
    }
    if bkIn.Valid {
        det := &model.BookingDetails{
            CheckIn:           bkIn.Time,
            CheckOut:          bkOut.Time,
            AllRoomsAvailable: bkAvail.Bool,
        }
        if bkGuests.Valid && bkGuests.String != "" {
            if err := json.Unmarshal([]byte(bkGuests.String), &det.GuestInformation); err != nil {
                return s, err
            }
        }
        s.BookingDetails = det
    }
    return s, nil
}

// UpdateStep overwrites only the step column (GoTo navigation).
func (r *CheckoutRepo) UpdateStep(ctx context.Context, id string, step model.CheckoutStep) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE checkout_sessions SET step=? WHERE id=?", string(step), id)
    return err
}

// RefreshSnapshot replaces the frozen cart ids and room rows. Invoked
// only when the live cart's id-set size changed since the snapshot.
func (r *CheckoutRepo) RefreshSnapshot(ctx context.Context, id string, roomIDs []uint64, snapshot string) error {
    ids, err := json.Marshal(roomIDs)
    if err != nil {
        return err
    }
    _, err = r.DB.ExecContext(ctx,
        "UPDATE checkout_sessions SET room_ids=?, rooms_snapshot=? WHERE id=?",
        string(ids), snapshot, id)
    return err
}

// SavePersonalDetails persists step-1 fields and advances the step.
func (r *CheckoutRepo) SavePersonalDetails(ctx context.Context, id string, d *model.PersonalDetails, next model.CheckoutStep) error {
    _, err := r.DB.ExecContext(ctx,
        `UPDATE checkout_sessions SET
           personal_first_name=?, personal_last_name=?, personal_email=?, personal_phone_num=?, personal_age=?, step=?
         WHERE id=?`,
        d.FirstName, d.LastName, d.Email, d.PhoneNum, d.Age, string(next), id)
    return err
}

// SaveBillingDetails persists step-2 fields and advances the step.
func (r *CheckoutRepo) SaveBillingDetails(ctx context.Context, id string, d *model.BillingDetails, next model.CheckoutStep) error {
    _, err := r.DB.ExecContext(ctx,
        `UPDATE checkout_sessions SET
           billing_country=?, billing_state=?, billing_city=?, billing_street=?, billing_postal_code=?, step=?
         WHERE id=?`,
        d.Country, d.State, d.City, d.Street, d.PostalCode, string(next), id)
    return err
}

// SaveBookingDetails persists step-3 fields and advances the step.
func (r *CheckoutRepo) SaveBookingDetails(ctx context.Context, id string, d *model.BookingDetails, next model.CheckoutStep) error {
    guests, err := json.Marshal(d.GuestInformation)
    if err != nil {
        return err
    }
    _, err = r.DB.ExecContext(ctx,
        `UPDATE checkout_sessions SET
           booking_check_in=?, booking_check_out=?, booking_guest_information=?, booking_all_rooms_available=?, step=?
         WHERE id=?`,
        d.CheckIn.UTC(), d.CheckOut.UTC(), string(guests), d.AllRoomsAvailable, string(next), id)
    return err
}

// AdvanceStep moves past a step that captures no fields of its own
// (REVIEW_INFORMATION).
func (r *CheckoutRepo) AdvanceStep(ctx context.Context, id string, next model.CheckoutStep) error {
    return r.UpdateStep(ctx, id, next)
}

// SavePaymentConfig stores the provider reference and the chosen
// payment type once the payment form has been configured.
func (r *CheckoutRepo) SavePaymentConfig(ctx context.Context, id, paymentIntentID, paymentType string) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE checkout_sessions SET payment_intent_id=?, payment_type=? WHERE id=?",
        paymentIntentID, paymentType, id)
    return err
}

// SetCreatedBooking links the materialized booking. It refuses to
// overwrite an existing link so a checkout session can only ever
// produce one booking.
func (r *CheckoutRepo) SetCreatedBooking(ctx context.Context, id string, bookingID uint64) error {
    res, err := r.DB.ExecContext(ctx,
        "UPDATE checkout_sessions SET created_booking_id=? WHERE id=? AND created_booking_id IS NULL",
        bookingID, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrConflict
    }
    return nil
}
