package handler

import (
    "encoding/json"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotello/internal/booking"
    "github.com/iliyamo/hotello/internal/cart"
    "github.com/iliyamo/hotello/internal/checkout"
    "github.com/iliyamo/hotello/internal/middleware"
    "github.com/iliyamo/hotello/internal/model"
    "github.com/iliyamo/hotello/internal/token"
)

// CheckoutHandler drives the five-step checkout flow. The client holds
// a signed binding token naming its persisted checkout session; every
// response echoes a fresh one so the binding outlives token expiry as
// long as the flow is active.
type CheckoutHandler struct {
    Checkout  *checkout.Service
    Booking   *booking.Service
    JWTSecret string
}

func NewCheckoutHandler(co *checkout.Service, b *booking.Service, jwtSecret string) *CheckoutHandler {
    return &CheckoutHandler{Checkout: co, Booking: b, JWTSecret: jwtSecret}
}

type checkoutStartReq struct {
    Cart     string `json:"cart"`
    Checkout string `json:"checkout"` // previous binding token, may be empty or stale
}
type checkoutAdvanceReq struct {
    Checkout string          `json:"checkout"`
    FormData json.RawMessage `json:"formData"`
}
type checkoutGoToReq struct {
    Checkout string `json:"checkout"`
    Step     string `json:"step"`
}
type checkoutPaymentReq struct {
    Checkout    string `json:"checkout"`
    PaymentType string `json:"paymentType"`
}
type checkoutCompleteReq struct {
    Checkout string `json:"checkout"`
}

// sessionView is the JSON shape of a checkout session. Captured step
// data is keyed by step name; steps not yet submitted are absent.
type sessionView struct {
    Step     model.CheckoutStep `json:"step"`
    Steps    model.StepData     `json:"steps"`
    RoomIDs  []uint64           `json:"roomIds"`
    Terminal bool               `json:"terminal"`
}

func toSessionView(s model.CheckoutSession) sessionView {
    return sessionView{
        Step:     s.Step,
        Steps:    s.CapturedSteps(),
        RoomIDs:  s.RoomIDs,
        Terminal: s.Step == model.StepFinalPayment,
    }
}

// bindingFor re-issues the checkout binding token for a session.
func (h *CheckoutHandler) bindingFor(sessionID string) (string, error) {
    return token.Issue(h.JWTSecret, token.PurposeCheckout, sessionID, token.CheckoutTTL)
}

// sessionID extracts the bound session id from a binding token, empty
// when the token is missing or fails verification.
func (h *CheckoutHandler) sessionID(raw string) string {
    if raw == "" {
        return ""
    }
    id, ok := token.Verify(h.JWTSecret, raw, token.PurposeCheckout)
    if !ok {
        return ""
    }
    return id
}

// Start resolves the client's checkout session, creating one from the
// current cart when none is bound or the bound one is stale.
func (h *CheckoutHandler) Start(c echo.Context) error {
    var req checkoutStartReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    sess, err := h.Checkout.GetOrCreate(ctx, h.sessionID(req.Checkout), cart.Read(h.JWTSecret, req.Cart))
    if err != nil {
        return respondError(c, err)
    }
    bind, err := h.bindingFor(sess.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "try again later"})
    }
    return c.JSON(http.StatusOK, echo.Map{"checkout": bind, "session": toSessionView(sess)})
}

// Advance validates the submitted form against the current step and
// moves one step forward.
func (h *CheckoutHandler) Advance(c echo.Context) error {
    var req checkoutAdvanceReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    id := h.sessionID(req.Checkout)
    if id == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid checkout token"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    sess, err := h.Checkout.Advance(ctx, id, req.FormData)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"session": toSessionView(sess)})
}

// GoTo jumps to any named step for editing. Captured data is kept.
func (h *CheckoutHandler) GoTo(c echo.Context) error {
    var req checkoutGoToReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    id := h.sessionID(req.Checkout)
    if id == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid checkout token"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    sess, err := h.Checkout.GoTo(ctx, id, model.CheckoutStep(req.Step))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"session": toSessionView(sess)})
}

// ConfigurePayment chooses full-upfront or reservation-hold and
// answers with the provider client secret plus the price breakdown.
func (h *CheckoutHandler) ConfigurePayment(c echo.Context) error {
    var req checkoutPaymentReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    id := h.sessionID(req.Checkout)
    if id == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid checkout token"})
    }

    intent, prices, err := h.Booking.ConfigurePayment(c.Request().Context(), id, req.PaymentType)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "clientSecret": intent.ClientSecret,
        "amountCents":  intent.AmountCents,
        "prices":       prices,
    })
}

// Complete reconciles the authorized amount and materializes the
// booking.
func (h *CheckoutHandler) Complete(c echo.Context) error {
    uid, ok := c.Get(middleware.CtxUserID).(uint64)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
    }
    var req checkoutCompleteReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    id := h.sessionID(req.Checkout)
    if id == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid checkout token"})
    }

    b, err := h.Booking.CreateBooking(c.Request().Context(), id, uid)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"booking": toBookingPart(b)})
}
