// Package cart implements the client-held shopping cart: a signed
// token carrying a set of room ids and nothing else. There is no
// server-side cart record, so the contents are re-fetched and
// re-priced on every use and the only way to invalidate a cart is
// expiry or explicit removal.
package cart

import "github.com/iliyamo/hotello/internal/token"

// Add unions roomID into the cart carried by existingToken and
// re-signs with a fresh 7-day expiry. A missing, malformed or expired
// existing token degrades to an empty cart rather than an error.
// Duplicate ids are collapsed.
func Add(secret, existingToken string, roomID uint64) (string, error) {
    ids := Read(secret, existingToken)
    found := false
    for _, id := range ids {
        if id == roomID {
            found = true
            break
        }
    }
    if !found {
        ids = append(ids, roomID)
    }
    return token.IssueCart(secret, ids)
}

// Remove filters roomID out of the cart and re-signs. An empty signed
// token is a valid result, distinct from having no token at all.
func Remove(secret, tokenStr string, roomID uint64) (string, error) {
    ids := Read(secret, tokenStr)
    kept := make([]uint64, 0, len(ids))
    for _, id := range ids {
        if id != roomID {
            kept = append(kept, id)
        }
    }
    return token.IssueCart(secret, kept)
}

// Read returns the cart's room ids, or nil when the token is absent or
// fails verification.
func Read(secret, tokenStr string) []uint64 {
    if tokenStr == "" {
        return nil
    }
    ids, ok := token.VerifyCart(secret, tokenStr)
    if !ok {
        return nil
    }
    return dedupe(ids)
}

func dedupe(ids []uint64) []uint64 {
    seen := make(map[uint64]struct{}, len(ids))
    out := make([]uint64, 0, len(ids))
    for _, id := range ids {
        if _, ok := seen[id]; ok {
            continue
        }
        seen[id] = struct{}{}
        out = append(out, id)
    }
    return out
}
