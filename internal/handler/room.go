package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotello/internal/assistant"
    "github.com/iliyamo/hotello/internal/booking"
    "github.com/iliyamo/hotello/internal/model"
    "github.com/iliyamo/hotello/internal/repository"
)

// roomPart is the public JSON shape of a room. Prices are exposed in
// cents alongside display values so clients never do float math on
// money.
type roomPart struct {
    ID                   uint64  `json:"id"`
    Name                 string  `json:"name"`
    Description          string  `json:"description"`
    Category             string  `json:"category"`
    PriceCents           uint32  `json:"priceCents"`
    Price                float64 `json:"price"`
    DiscountedPriceCents uint32  `json:"discountedPriceCents,omitempty"`
    DiscountedPrice      float64 `json:"discountedPrice,omitempty"`
    DiscountPercentage   uint8   `json:"discountPercentage,omitempty"`
    MaxGuests            uint8   `json:"maxGuests"`
    IsAvailable          bool    `json:"isAvailable"`
}

func toRoomPart(r model.Room) roomPart {
    return roomPart{
        ID:                   r.ID,
        Name:                 r.Name,
        Description:          r.Description,
        Category:             r.Category,
        PriceCents:           r.PriceCents,
        Price:                float64(r.PriceCents) / 100,
        DiscountedPriceCents: r.DiscountedPriceCents,
        DiscountedPrice:      float64(r.DiscountedPriceCents) / 100,
        DiscountPercentage:   r.DiscountPercentage,
        MaxGuests:            r.MaxGuests,
        IsAvailable:          r.IsAvailable,
    }
}

func toRoomParts(rooms []model.Room) []roomPart {
    out := make([]roomPart, 0, len(rooms))
    for _, r := range rooms {
        out = append(out, toRoomPart(r))
    }
    return out
}

// RoomHandler exposes the public room catalogue: browsing with
// filters, single-room detail, date-range availability and the
// AI-assisted suggestion endpoint. None of these require a session.
type RoomHandler struct {
    Rooms     *repository.RoomRepo
    Bookings  *repository.BookingRepo
    Suggester assistant.RoomSuggester // nil disables the suggest endpoint
}

func NewRoomHandler(rooms *repository.RoomRepo, bookings *repository.BookingRepo, s assistant.RoomSuggester) *RoomHandler {
    return &RoomHandler{Rooms: rooms, Bookings: bookings, Suggester: s}
}

// List returns rooms matching the optional query filters: category,
// minPrice/maxPrice (cents) and available=true.
func (h *RoomHandler) List(c echo.Context) error {
    var f repository.RoomFilter
    f.Category = strings.TrimSpace(c.QueryParam("category"))
    if v := c.QueryParam("minPrice"); v != "" {
        n, err := strconv.ParseUint(v, 10, 32)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid minPrice"})
        }
        f.MinPriceCents = uint32(n)
    }
    if v := c.QueryParam("maxPrice"); v != "" {
        n, err := strconv.ParseUint(v, 10, 32)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid maxPrice"})
        }
        f.MaxPriceCents = uint32(n)
    }
    f.OnlyAvailable = c.QueryParam("available") == "true"

    ctx, cancel := reqCtx(c)
    defer cancel()

    rooms, err := h.Rooms.List(ctx, f)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "listing rooms failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"rooms": toRoomParts(rooms)})
}

// Get returns one room by id.
func (h *RoomHandler) Get(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    room, err := h.Rooms.GetByID(ctx, id)
    if err != nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
    }
    return c.JSON(http.StatusOK, toRoomPart(room))
}

type availabilityReq struct {
    RoomIDs  []uint64  `json:"roomIds"`
    CheckIn  time.Time `json:"checkIn"`
    CheckOut time.Time `json:"checkOut"`
}

// CheckAvailability partitions the requested rooms into available and
// unavailable for the candidate date range. The verdict reflects the
// instant it was computed; the authoritative check runs again when
// payment is configured and when the booking is created.
func (h *RoomHandler) CheckAvailability(c echo.Context) error {
    var req availabilityReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if len(req.RoomIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "roomIds required"})
    }
    if !req.CheckOut.After(req.CheckIn) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "checkOut must be after checkIn"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    rooms, err := h.Rooms.ListByIDs(ctx, req.RoomIDs)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "loading rooms failed"})
    }
    if len(rooms) != len(req.RoomIDs) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "a requested room does not exist"})
    }
    av, err := booking.CheckAvailability(ctx, h.Bookings, rooms, req.CheckIn, req.CheckOut)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
    }
    unavailable := make([]echo.Map, 0, len(av.Unavailable))
    for _, u := range av.Unavailable {
        unavailable = append(unavailable, echo.Map{
            "room":         toRoomPart(u.Room),
            "nightlyCents": u.NightlyCents,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{
        "available":    toRoomParts(av.Available),
        "unavailable":  unavailable,
        "allAvailable": av.AllAvailable,
    })
}

type suggestReq struct {
    Wishes string `json:"wishes"`
}

// Suggest asks the room suggester to pick rooms for a free-text wish
// list, grounded on the current catalogue.
func (h *RoomHandler) Suggest(c echo.Context) error {
    if h.Suggester == nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "suggestions are not enabled"})
    }
    var req suggestReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Wishes = strings.TrimSpace(req.Wishes)
    if req.Wishes == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "wishes required"})
    }

    ctx, cancel := reqCtx(c)
    defer cancel()

    rooms, err := h.Rooms.List(ctx, repository.RoomFilter{OnlyAvailable: true})
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "listing rooms failed"})
    }
    answer, err := h.Suggester.Suggest(c.Request().Context(), req.Wishes, rooms)
    if err != nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "suggestion failed, try again later"})
    }
    return c.JSON(http.StatusOK, echo.Map{"suggestion": answer})
}
