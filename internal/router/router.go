package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotello/internal/auth"
    "github.com/iliyamo/hotello/internal/handler"
    "github.com/iliyamo/hotello/internal/middleware"
    "github.com/iliyamo/hotello/internal/model"
    "github.com/iliyamo/hotello/internal/repository"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance. Currently it exposes only a health
// check.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the identity endpoints. Code-challenge operations
// live under /v1/auth and carry no session; profile and logout
// endpoints require the signed session credential.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, svc *auth.Service) {
    g := e.Group("/v1/auth")
    g.POST("/signup", a.Signup)
    g.POST("/login", a.Login)
    g.POST("/verify", a.Verify)
    g.POST("/resend", a.Resend)
    // The cookie endpoint is unauthenticated on purpose: its input is
    // the short-lived cookie-write token, not a session.
    g.POST("/cookie", a.WriteCookie)
    g.GET("/email-change/confirm", a.ConfirmEmailChange)

    authed := e.Group("/v1")
    authed.Use(middleware.SessionAuth(svc))
    authed.GET("/me", a.Me)
    authed.PATCH("/me", a.UpdateMe)
    authed.POST("/me/email-change", a.RequestEmailChange)
    authed.POST("/logout", a.Logout)
    authed.POST("/logout-all", a.LogoutAll)
}

// RegisterPublic registers the guest-facing catalogue endpoints: room
// browsing, availability checks, the suggestion assistant and the
// stateless cart. None of them require a session.
func RegisterPublic(e *echo.Echo, r *handler.RoomHandler, cart *handler.CartHandler) {
    e.GET("/v1/rooms", r.List)
    e.GET("/v1/rooms/:id", r.Get)
    e.POST("/v1/rooms/availability", r.CheckAvailability)
    e.POST("/v1/rooms/suggest", r.Suggest)

    e.POST("/v1/cart/add", cart.Add)
    e.POST("/v1/cart/remove", cart.Remove)
    e.POST("/v1/cart", cart.Read)
}

// RegisterCheckout wires the checkout flow and booking endpoints. All
// of them require a session; the front-desk lifecycle additionally
// requires the ADMIN role.
func RegisterCheckout(e *echo.Echo, co *handler.CheckoutHandler, b *handler.BookingHandler, svc *auth.Service, users *repository.UserRepo) {
    authed := e.Group("/v1")
    authed.Use(middleware.SessionAuth(svc))

    authed.POST("/checkout", co.Start)
    authed.POST("/checkout/advance", co.Advance)
    authed.POST("/checkout/goto", co.GoTo)
    authed.POST("/checkout/payment", co.ConfigurePayment)
    authed.POST("/checkout/complete", co.Complete)

    authed.GET("/bookings", b.Mine)
    authed.GET("/bookings/:id", b.Get)

    admin := e.Group("/v1/admin")
    admin.Use(middleware.SessionAuth(svc))
    admin.Use(middleware.RequireRole(users, model.RoleAdmin))
    admin.GET("/bookings", b.ListAll)
    admin.POST("/bookings/:id/check-in", b.CheckIn)
    admin.POST("/bookings/:id/check-out", b.CheckOut)
    admin.POST("/bookings/:id/cancel", b.Cancel)
}
