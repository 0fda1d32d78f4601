package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotello/internal/booking"
    "github.com/iliyamo/hotello/internal/middleware"
    "github.com/iliyamo/hotello/internal/model"
    "github.com/iliyamo/hotello/internal/repository"
)

// BookingHandler exposes the customer's booking history and the
// front-desk lifecycle operations (check-in, check-out, cancel).
type BookingHandler struct {
    Bookings *repository.BookingRepo
    Service  *booking.Service
}

func NewBookingHandler(repo *repository.BookingRepo, svc *booking.Service) *BookingHandler {
    return &BookingHandler{Bookings: repo, Service: svc}
}

// bookingPart is the public JSON shape of a booking.
type bookingPart struct {
    ID                   uint64     `json:"id"`
    BookedCheckIn        time.Time  `json:"bookedCheckIn"`
    BookedCheckOut       time.Time  `json:"bookedCheckOut"`
    ActualCheckIn        *time.Time `json:"actualCheckIn,omitempty"`
    ActualCheckOut       *time.Time `json:"actualCheckOut,omitempty"`
    StayInDays           uint32     `json:"stayInDays"`
    BasePriceCents       uint32     `json:"basePriceCents"`
    BasePrice            float64    `json:"basePrice"`
    ReservationHoldCents uint32     `json:"reservationHoldCents"`
    DueAtCheckInCents    uint32     `json:"dueAtCheckInCents"`
    PaymentType          string     `json:"paymentType"`
    PaymentStatus        string     `json:"paymentStatus"`
    FulfillmentStatus    string     `json:"fulfillmentStatus"`
    Canceled             bool       `json:"canceled"`
}

func toBookingPart(b model.Booking) bookingPart {
    return bookingPart{
        ID:                   b.ID,
        BookedCheckIn:        b.BookedCheckIn,
        BookedCheckOut:       b.BookedCheckOut,
        ActualCheckIn:        b.ActualCheckIn,
        ActualCheckOut:       b.ActualCheckOut,
        StayInDays:           b.StayInDays,
        BasePriceCents:       b.BasePriceCents,
        BasePrice:            float64(b.BasePriceCents) / 100,
        ReservationHoldCents: b.ReservationHoldCents,
        DueAtCheckInCents:    b.DueAtCheckInCents,
        PaymentType:          b.PaymentType,
        PaymentStatus:        b.PaymentStatus,
        FulfillmentStatus:    b.FulfillmentStatus,
        Canceled:             b.Canceled,
    }
}

func toBookingParts(bs []model.Booking) []bookingPart {
    out := make([]bookingPart, 0, len(bs))
    for _, b := range bs {
        out = append(out, toBookingPart(b))
    }
    return out
}

// Mine lists the authenticated user's bookings, newest first.
func (h *BookingHandler) Mine(c echo.Context) error {
    uid, ok := c.Get(middleware.CtxUserID).(uint64)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    bs, err := h.Bookings.ListForUser(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "listing bookings failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingParts(bs)})
}

// Get returns one booking with its rooms. Customers can only read
// their own rows; admins reach any booking through the admin routes.
func (h *BookingHandler) Get(c echo.Context) error {
    uid, ok := c.Get(middleware.CtxUserID).(uint64)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    b, err := h.Bookings.GetByID(ctx, id)
    if err != nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
    }
    if b.UserID != uid {
        // Do not reveal that the row exists.
        return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
    }
    rooms, err := h.Bookings.ListRooms(ctx, b.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "loading booking failed"})
    }
    roomViews := make([]echo.Map, 0, len(rooms))
    for _, r := range rooms {
        roomViews = append(roomViews, echo.Map{
            "roomId":       r.RoomID,
            "nightlyCents": r.NightlyCents,
            "guests":       r.Guests,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": toBookingPart(b), "rooms": roomViews})
}

// ----- admin (front desk) -----

// ListAll returns every booking, newest first.
func (h *BookingHandler) ListAll(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()

    bs, err := h.Bookings.ListAll(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "listing bookings failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingParts(bs)})
}

// CheckIn marks the customer arrived.
func (h *BookingHandler) CheckIn(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Service.CheckIn(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": toBookingPart(b)})
}

// CheckOut marks the customer departed.
func (h *BookingHandler) CheckOut(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Service.CheckOut(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": toBookingPart(b)})
}

// Cancel cancels the booking, refunding a full-upfront payment.
func (h *BookingHandler) Cancel(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Service.Cancel(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"booking": toBookingPart(b)})
}
