// Package token implements the symmetric signed-token scheme used for
// every transient piece of client-held state: a purpose discriminator,
// a subject and an expiry, signed with HS256. Verifiers reject
// malformed tokens, expired tokens and purpose or subject mismatches,
// and report all of these identically as a bare failure.
package token

import (
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// Purpose discriminates what a token authorizes. A verifier only
// accepts tokens carrying its own purpose, so a cart token can never
// be replayed as, say, an email-change authorization.
type Purpose string

const (
    // PurposeCookieWrite authorizes setting one specific cookie name
    // through the cookie-write endpoint.
    PurposeCookieWrite Purpose = "cookie-write"
    // PurposeEmailVerification binds a pending code challenge to a user.
    PurposeEmailVerification Purpose = "email-verification"
    // PurposeEmailChange binds a confirmed email change to a user.
    PurposeEmailChange Purpose = "email-change"
    // PurposeCart signs the client-held cart contents.
    PurposeCart Purpose = "cart"
    // PurposeCheckout binds a client to its persisted checkout session.
    PurposeCheckout Purpose = "checkout"
)

// Token lifetimes. Cookie-write tokens are deliberately near-instant:
// they exist only to carry authorization from one response to the very
// next request.
const (
    CookieWriteTTL       = time.Minute
    EmailVerificationTTL = 30 * time.Minute
    EmailChangeTTL       = 12 * time.Hour
    CartTTL              = 7 * 24 * time.Hour
    CheckoutTTL          = 7 * 24 * time.Hour
)

// Issue builds and signs an HS256 token with the given purpose,
// subject and TTL. The exp claim is Unix seconds.
func Issue(secret string, purpose Purpose, subject string, ttl time.Duration) (string, error) {
    nowUTC := time.Now().UTC()
    claims := jwt.MapClaims{
        "purpose": string(purpose),
        "sub":     subject,
        "exp":     nowUTC.Add(ttl).Unix(),
        "iat":     nowUTC.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return t.SignedString([]byte(secret))
}

// Verify parses raw and returns its subject. It fails (empty string,
// false) on any of: bad signature, wrong signing method, missing or
// past exp, or a purpose other than the one requested. Callers never
// learn which check failed.
func Verify(secret, raw string, purpose Purpose) (string, bool) {
    claims, ok := parse(secret, raw, purpose)
    if !ok {
        return "", false
    }
    sub, _ := claims["sub"].(string)
    if sub == "" {
        return "", false
    }
    return sub, true
}

// IssueCart signs the cart's room id list with a 7-day expiry.
func IssueCart(secret string, roomIDs []uint64) (string, error) {
    nowUTC := time.Now().UTC()
    claims := jwt.MapClaims{
        "purpose": string(PurposeCart),
        "rooms":   roomIDs,
        "exp":     nowUTC.Add(CartTTL).Unix(),
        "iat":     nowUTC.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return t.SignedString([]byte(secret))
}

// VerifyCart decodes a cart token back into its room id list.
func VerifyCart(secret, raw string) ([]uint64, bool) {
    claims, ok := parse(secret, raw, PurposeCart)
    if !ok {
        return nil, false
    }
    arr, ok := claims["rooms"].([]interface{})
    if !ok {
        return nil, false
    }
    ids := make([]uint64, 0, len(arr))
    for _, v := range arr {
        f, ok := v.(float64)
        if !ok || f < 0 {
            return nil, false
        }
        ids = append(ids, uint64(f))
    }
    return ids, true
}

// IssueEmailChange binds a user id and the new address they confirmed.
func IssueEmailChange(secret string, userID uint64, newEmail string) (string, error) {
    nowUTC := time.Now().UTC()
    claims := jwt.MapClaims{
        "purpose": string(PurposeEmailChange),
        "sub":     strconv.FormatUint(userID, 10),
        "email":   newEmail,
        "exp":     nowUTC.Add(EmailChangeTTL).Unix(),
        "iat":     nowUTC.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return t.SignedString([]byte(secret))
}

// VerifyEmailChange returns the user id and new address carried by an
// email-change token.
func VerifyEmailChange(secret, raw string) (uint64, string, bool) {
    claims, ok := parse(secret, raw, PurposeEmailChange)
    if !ok {
        return 0, "", false
    }
    sub, _ := claims["sub"].(string)
    uid, err := strconv.ParseUint(sub, 10, 64)
    if err != nil || uid == 0 {
        return 0, "", false
    }
    email, _ := claims["email"].(string)
    if email == "" {
        return 0, "", false
    }
    return uid, email, true
}

// parse validates signature, method, expiry and purpose, returning the
// claims when all checks pass.
func parse(secret, raw string, purpose Purpose) (jwt.MapClaims, bool) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, jwt.ErrSignatureInvalid
        }
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
    if err != nil || !tok.Valid {
        return nil, false
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return nil, false
    }
    if p, _ := claims["purpose"].(string); p != string(purpose) {
        return nil, false
    }
    return claims, true
}
