// Package ratelimit implements the cooldown gates in front of
// outbound-email-triggering actions. Timestamps live in redis keyed by
// client IP (or user id for the finer code-entry cooldown); the
// cooldown comparison is computed in-process from the stored value, so
// no key expiry is relied upon.
package ratelimit

import (
    "context"
    "math"
    "strconv"
    "time"

    "github.com/redis/go-redis/v9"
)

// Cooldown windows. EmailWindow guards login/signup/resend; UserWindow
// is the finer per-user gate that blunts brute-forcing of the 6-digit
// code space.
const (
    EmailWindow = 30 * time.Second
    UserWindow  = 5 * time.Second
)

// Limiter stores last-action timestamps in redis. A nil client
// disables limiting entirely, mirroring how the service degrades when
// redis is unreachable at startup.
type Limiter struct {
    rdb *redis.Client
}

// New returns a Limiter backed by the given redis client (may be nil).
func New(rdb *redis.Client) *Limiter { return &Limiter{rdb: rdb} }

// Check reports whether the IP is still inside the email cooldown
// window and, when blocked, how many seconds remain. An empty or
// unknown IP is never blocked: failing open here is an intentional
// tradeoff so clients behind address-stripping proxies are not locked
// out of login entirely.
func (l *Limiter) Check(ctx context.Context, ip string) (bool, int) {
    if ip == "" {
        return false, 0
    }
    return l.check(ctx, "cooldown:ip:"+ip, EmailWindow)
}

// Record overwrites the IP's last-action timestamp with now. Callers
// invoke it only after the triggering email has actually been sent.
func (l *Limiter) Record(ctx context.Context, ip string) {
    if ip == "" {
        return
    }
    l.record(ctx, "cooldown:ip:"+ip)
}

// CheckUser is the per-user cooldown applied to code consumption.
func (l *Limiter) CheckUser(ctx context.Context, userID uint64) (bool, int) {
    return l.check(ctx, "cooldown:user:"+strconv.FormatUint(userID, 10), UserWindow)
}

// RecordUser stamps the user's last code-entry attempt.
func (l *Limiter) RecordUser(ctx context.Context, userID uint64) {
    l.record(ctx, "cooldown:user:"+strconv.FormatUint(userID, 10))
}

func (l *Limiter) check(ctx context.Context, key string, window time.Duration) (bool, int) {
    if l.rdb == nil {
        return false, 0
    }
    val, err := l.rdb.Get(ctx, key).Result()
    if err != nil {
        // absent key or redis failure both mean "not blocked"
        return false, 0
    }
    last, err := strconv.ParseInt(val, 10, 64)
    if err != nil {
        return false, 0
    }
    elapsed := time.Now().UTC().Sub(time.Unix(last, 0).UTC())
    if elapsed >= window {
        return false, 0
    }
    remaining := int(math.Ceil((window - elapsed).Seconds()))
    if remaining < 1 {
        remaining = 1
    }
    return true, remaining
}

func (l *Limiter) record(ctx context.Context, key string) {
    if l.rdb == nil {
        return
    }
    _ = l.rdb.Set(ctx, key, strconv.FormatInt(time.Now().UTC().Unix(), 10), 0).Err()
}
