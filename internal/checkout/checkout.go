// Package checkout implements the multi-step purchase state machine.
// A checkout session is server-persisted and bound to the client by a
// signed token; steps advance strictly forward through the fixed
// order, backward navigation is an explicit jump, and data captured
// for earlier steps survives any navigation.
package checkout

import (
    "context"
    "encoding/json"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
    "github.com/google/uuid"

    "github.com/iliyamo/hotello/internal/apperr"
    "github.com/iliyamo/hotello/internal/model"
)

// Store is the slice of the checkout repository the service needs.
type Store interface {
    Create(ctx context.Context, s *model.CheckoutSession) error
    GetByID(ctx context.Context, id string) (model.CheckoutSession, error)
    UpdateStep(ctx context.Context, id string, step model.CheckoutStep) error
    RefreshSnapshot(ctx context.Context, id string, roomIDs []uint64, snapshot string) error
    SavePersonalDetails(ctx context.Context, id string, d *model.PersonalDetails, next model.CheckoutStep) error
    SaveBillingDetails(ctx context.Context, id string, d *model.BillingDetails, next model.CheckoutStep) error
    SaveBookingDetails(ctx context.Context, id string, d *model.BookingDetails, next model.CheckoutStep) error
    AdvanceStep(ctx context.Context, id string, next model.CheckoutStep) error
}

// RoomStore resolves cart ids into live room rows for snapshotting.
type RoomStore interface {
    ListByIDs(ctx context.Context, ids []uint64) ([]model.Room, error)
}

// Service drives the state machine.
type Service struct {
    Sessions Store
    Rooms    RoomStore
    validate *validator.Validate
}

func NewService(sessions Store, rooms RoomStore) *Service {
    v := validator.New()
    // report field names by their json tag so validation errors line
    // up with what the client actually sent
    v.RegisterTagNameFunc(func(fld reflect.StructField) string {
        name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return &Service{Sessions: sessions, Rooms: rooms, validate: v}
}

// GetOrCreate resolves an existing session by id (from a verified
// binding token) or snapshots the current cart into a new one starting
// at PERSONAL_DETAILS. When the existing session's frozen id-set size
// differs from the live cart, the snapshot is refreshed.
func (s *Service) GetOrCreate(ctx context.Context, existingID string, cartRoomIDs []uint64) (model.CheckoutSession, error) {
    if existingID != "" {
        sess, err := s.Sessions.GetByID(ctx, existingID)
        if err == nil {
            if len(sess.RoomIDs) != len(cartRoomIDs) {
                snapshot, err := s.snapshotRooms(ctx, cartRoomIDs)
                if err != nil {
                    return model.CheckoutSession{}, err
                }
                if err := s.Sessions.RefreshSnapshot(ctx, sess.ID, cartRoomIDs, snapshot); err != nil {
                    return model.CheckoutSession{}, apperr.Wrap(apperr.Upstream, "try again later", err)
                }
                sess.RoomIDs = cartRoomIDs
                sess.RoomsSnapshot = snapshot
            }
            return sess, nil
        }
        // fall through: a stale binding token degrades to a new session
    }
    if len(cartRoomIDs) == 0 {
        return model.CheckoutSession{}, apperr.New(apperr.Validation, "cart is empty")
    }
    snapshot, err := s.snapshotRooms(ctx, cartRoomIDs)
    if err != nil {
        return model.CheckoutSession{}, err
    }
    sess := model.CheckoutSession{
        ID:            uuid.NewString(),
        Step:          model.StepPersonalDetails,
        RoomIDs:       cartRoomIDs,
        RoomsSnapshot: snapshot,
        PaymentType:   model.PaymentFullUpfront,
    }
    if err := s.Sessions.Create(ctx, &sess); err != nil {
        return model.CheckoutSession{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    return sess, nil
}

// Advance validates formData against the current step's schema,
// persists the step's fields and moves to the next step in the fixed
// order. Calling it on the terminal step is a conflict.
func (s *Service) Advance(ctx context.Context, sessionID string, formData json.RawMessage) (model.CheckoutSession, error) {
    sess, err := s.Sessions.GetByID(ctx, sessionID)
    if err != nil {
        return model.CheckoutSession{}, apperr.New(apperr.NotFound, "checkout session not found")
    }
    next, ok := sess.Step.Next()
    if !ok {
        return model.CheckoutSession{}, apperr.New(apperr.Conflict, "checkout is already at the final step")
    }

    switch sess.Step {
    case model.StepPersonalDetails:
        var d model.PersonalDetails
        if err := s.decodeAndValidate(formData, &d); err != nil {
            return model.CheckoutSession{}, err
        }
        if err := s.Sessions.SavePersonalDetails(ctx, sessionID, &d, next); err != nil {
            return model.CheckoutSession{}, apperr.Wrap(apperr.Upstream, "try again later", err)
        }
        sess.PersonalDetails = &d
    case model.StepBillingDetails:
        var d model.BillingDetails
        if err := s.decodeAndValidate(formData, &d); err != nil {
            return model.CheckoutSession{}, err
        }
        if err := s.Sessions.SaveBillingDetails(ctx, sessionID, &d, next); err != nil {
            return model.CheckoutSession{}, apperr.Wrap(apperr.Upstream, "try again later", err)
        }
        sess.BillingDetails = &d
    case model.StepBookingDetails:
        var d model.BookingDetails
        if err := s.decodeAndValidate(formData, &d); err != nil {
            return model.CheckoutSession{}, err
        }
        if !d.CheckOut.After(d.CheckIn) {
            return model.CheckoutSession{}, apperr.NewValidation(map[string]string{
                "checkOut": "check-out must be after check-in",
            })
        }
        if err := s.Sessions.SaveBookingDetails(ctx, sessionID, &d, next); err != nil {
            return model.CheckoutSession{}, apperr.Wrap(apperr.Upstream, "try again later", err)
        }
        sess.BookingDetails = &d
    case model.StepReviewInformation:
        // review captures nothing of its own
        if err := s.Sessions.AdvanceStep(ctx, sessionID, next); err != nil {
            return model.CheckoutSession{}, apperr.Wrap(apperr.Upstream, "try again later", err)
        }
    }
    sess.Step = next
    return sess, nil
}

// GoTo overwrites the step unconditionally for "edit a previous step"
// navigation. Stored data is neither re-validated nor cleared.
func (s *Service) GoTo(ctx context.Context, sessionID string, target model.CheckoutStep) (model.CheckoutSession, error) {
    if !target.Valid() {
        return model.CheckoutSession{}, apperr.NewValidation(map[string]string{"step": "unknown step"})
    }
    sess, err := s.Sessions.GetByID(ctx, sessionID)
    if err != nil {
        return model.CheckoutSession{}, apperr.New(apperr.NotFound, "checkout session not found")
    }
    if err := s.Sessions.UpdateStep(ctx, sessionID, target); err != nil {
        return model.CheckoutSession{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    sess.Step = target
    return sess, nil
}

func (s *Service) decodeAndValidate(formData json.RawMessage, out any) error {
    if err := json.Unmarshal(formData, out); err != nil {
        return apperr.New(apperr.Validation, "malformed form data")
    }
    if err := s.validate.Struct(out); err != nil {
        verrs, ok := err.(validator.ValidationErrors)
        if !ok {
            return apperr.New(apperr.Validation, "validation failed")
        }
        fields := make(map[string]string, len(verrs))
        for _, fe := range verrs {
            fields[fe.Field()] = fieldMessage(fe)
        }
        return apperr.NewValidation(fields)
    }
    return nil
}

func fieldMessage(fe validator.FieldError) string {
    switch fe.Tag() {
    case "required":
        return "this field is required"
    case "email":
        return "must be a valid email address"
    case "gte":
        return "must be at least " + fe.Param()
    case "lte":
        return "must be at most " + fe.Param()
    case "min":
        return "needs at least " + fe.Param() + " entries"
    case "eq":
        if fe.Param() == "true" {
            return "must be confirmed"
        }
        return "must equal " + fe.Param()
    }
    return "invalid value"
}

func (s *Service) snapshotRooms(ctx context.Context, ids []uint64) (string, error) {
    rooms, err := s.Rooms.ListByIDs(ctx, ids)
    if err != nil {
        return "", apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    raw, err := json.Marshal(rooms)
    if err != nil {
        return "", apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    return string(raw), nil
}
