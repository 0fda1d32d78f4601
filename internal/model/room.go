package model

import "time"

// Room represents a bookable hotel room as stored in the `rooms`
// table. Prices are integers in minor currency units (cents). A room
// is billed at its discounted price only when both DiscountedPriceCents
// and DiscountPercentage are non-zero; otherwise the listed price
// applies.
//
// Fields:
//  ID                   – primary key identifier.
//  Name                 – display name of the room.
//  Description          – marketing description.
//  Category             – category label (e.g. STANDARD, DELUXE, SUITE).
//  PriceCents           – listed nightly price in cents.
//  DiscountedPriceCents – discounted nightly price in cents, zero when no discount.
//  DiscountPercentage   – advertised discount percentage, zero when no discount.
//  MaxGuests            – guest capacity.
//  IsAvailable          – manual availability switch for taking a room off sale.
//  CreatedAt            – creation timestamp.
//  UpdatedAt            – last update timestamp.
type Room struct {
    ID                   uint64    // rooms.id
    Name                 string    // rooms.name
    Description          string    // rooms.description
    Category             string    // rooms.category
    PriceCents           uint32    // rooms.price_cents
    DiscountedPriceCents uint32    // rooms.discounted_price_cents
    DiscountPercentage   uint8     // rooms.discount_percentage
    MaxGuests            uint8     // rooms.max_guests
    IsAvailable          bool      // rooms.is_available
    CreatedAt            time.Time // rooms.created_at
    UpdatedAt            time.Time // rooms.updated_at
}
