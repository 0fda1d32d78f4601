package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/hotello/internal/model"
)

// RoomRepo provides read access to the rooms table. Room browsing
// filters (category, price bounds) are expressed as an explicit
// filter struct owned by the request scope rather than shared state.
type RoomRepo struct{ DB *sql.DB }

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{DB: db} }

const roomColumns = "id,name,description,category,price_cents,discounted_price_cents," +
    "discount_percentage,max_guests,is_available,created_at,updated_at"

// RoomFilter narrows List results. Zero values mean "no constraint".
type RoomFilter struct {
    Category      string
    MinPriceCents uint32
    MaxPriceCents uint32
    OnlyAvailable bool
}

// List returns rooms matching the filter, cheapest first.
func (r *RoomRepo) List(ctx context.Context, f RoomFilter) ([]model.Room, error) {
    q := "SELECT " + roomColumns + " FROM rooms WHERE 1=1"
    args := []interface{}{}
    if f.Category != "" {
        q += " AND category=?"
        args = append(args, strings.ToUpper(strings.TrimSpace(f.Category)))
    }
    if f.MinPriceCents > 0 {
        q += " AND price_cents >= ?"
        args = append(args, f.MinPriceCents)
    }
    if f.MaxPriceCents > 0 {
        q += " AND price_cents <= ?"
        args = append(args, f.MaxPriceCents)
    }
    if f.OnlyAvailable {
        q += " AND is_available=1"
    }
    q += " ORDER BY price_cents ASC"

    rows, err := r.DB.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanRooms(rows)
}

// GetByID fetches a single room.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
    var m model.Room
    err := r.DB.QueryRowContext(ctx,
        "SELECT "+roomColumns+" FROM rooms WHERE id=? LIMIT 1", id).Scan(
        &m.ID, &m.Name, &m.Description, &m.Category, &m.PriceCents, &m.DiscountedPriceCents,
        &m.DiscountPercentage, &m.MaxGuests, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt)
    return m, err
}

// ListByIDs fetches the rooms for a set of ids. Unknown ids are simply
// absent from the result; callers re-deriving cart contents treat that
// as the room having been removed from sale.
func (r *RoomRepo) ListByIDs(ctx context.Context, ids []uint64) ([]model.Room, error) {
    if len(ids) == 0 {
        return []model.Room{}, nil
    }
    placeholders := strings.Repeat("?,", len(ids))
    placeholders = placeholders[:len(placeholders)-1]
    args := make([]interface{}, len(ids))
    for i, id := range ids {
        args[i] = id
    }
    rows, err := r.DB.QueryContext(ctx,
        "SELECT "+roomColumns+" FROM rooms WHERE id IN ("+placeholders+")", args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanRooms(rows)
}

func scanRooms(rows *sql.Rows) ([]model.Room, error) {
    out := []model.Room{}
    for rows.Next() {
        var m model.Room
        if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Category, &m.PriceCents,
            &m.DiscountedPriceCents, &m.DiscountPercentage, &m.MaxGuests, &m.IsAvailable,
            &m.CreatedAt, &m.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, m)
    }
    return out, rows.Err()
}
