package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotello/internal/cart"
    "github.com/iliyamo/hotello/internal/repository"
)

// CartHandler manages the client-held cart token. The server stores
// nothing; every request carries the current token and every mutation
// answers with a re-signed replacement.
type CartHandler struct {
    Rooms     *repository.RoomRepo
    JWTSecret string
}

func NewCartHandler(rooms *repository.RoomRepo, jwtSecret string) *CartHandler {
    return &CartHandler{Rooms: rooms, JWTSecret: jwtSecret}
}

type cartMutateReq struct {
    Cart   string `json:"cart"` // current cart token, may be empty on first add
    RoomID uint64 `json:"roomId"`
}
type cartReadReq struct {
    Cart string `json:"cart"`
}

// Add unions a room into the cart and returns the re-signed token. The
// room must exist and be on sale; a stale or tampered incoming token
// silently degrades to an empty cart.
func (h *CartHandler) Add(c echo.Context) error {
    var req cartMutateReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.RoomID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "roomId required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    room, err := h.Rooms.GetByID(ctx, req.RoomID)
    if err != nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
    }
    if !room.IsAvailable {
        return c.JSON(http.StatusConflict, echo.Map{"error": "room is not on sale"})
    }

    tok, err := cart.Add(h.JWTSecret, req.Cart, req.RoomID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "try again later"})
    }
    return c.JSON(http.StatusOK, echo.Map{"cart": tok, "roomIds": cart.Read(h.JWTSecret, tok)})
}

// Remove filters a room out of the cart and returns the re-signed
// token. Removing the last room still yields a valid signed empty
// cart.
func (h *CartHandler) Remove(c echo.Context) error {
    var req cartMutateReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.RoomID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "roomId required"})
    }
    tok, err := cart.Remove(h.JWTSecret, req.Cart, req.RoomID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "try again later"})
    }
    return c.JSON(http.StatusOK, echo.Map{"cart": tok, "roomIds": cart.Read(h.JWTSecret, tok)})
}

// Read resolves the cart's room ids into live room rows, re-fetched
// and re-priced on every call.
func (h *CartHandler) Read(c echo.Context) error {
    var req cartReadReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ids := cart.Read(h.JWTSecret, req.Cart)
    if len(ids) == 0 {
        return c.JSON(http.StatusOK, echo.Map{"rooms": []roomPart{}})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    rooms, err := h.Rooms.ListByIDs(ctx, ids)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "loading rooms failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"rooms": toRoomParts(rooms)})
}
