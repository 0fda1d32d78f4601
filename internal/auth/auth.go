// Package auth implements the session security layer: code-based
// login and signup, the per-session signature scheme, IP-anomaly
// detection with forced reverification, and logout. It owns no HTTP
// concerns; handlers translate its structured errors into responses.
package auth

import (
    "context"
    "log/slog"
    "math/rand/v2"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/hotello/internal/apperr"
    "github.com/iliyamo/hotello/internal/keys"
    "github.com/iliyamo/hotello/internal/mailer"
    "github.com/iliyamo/hotello/internal/model"
    "github.com/iliyamo/hotello/internal/ratelimit"
    "github.com/iliyamo/hotello/internal/repository"
)

// Session and code lifetimes.
const (
    SessionTTL = 6 * time.Hour
    CodeTTL    = 15 * time.Minute

    // ipChangeThreshold is the number of distinct-IP observations that
    // flips a session into forced reverification. A heuristic, not a
    // hard security boundary: a lost increment under concurrency is
    // acceptable.
    ipChangeThreshold = 3
)

// UserStore is the slice of the user repository the service needs.
type UserStore interface {
    Create(ctx context.Context, email string, phone *string, firstName, lastName string, age uint8) (uint64, error)
    GetByEmail(ctx context.Context, email string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
    UpdateEmail(ctx context.Context, id uint64, email string) error
}

// SessionStore is the slice of the session repository the service needs.
type SessionStore interface {
    Create(ctx context.Context, s *model.UserSession) error
    GetByToken(ctx context.Context, sessionToken string) (model.UserSession, error)
    GetByID(ctx context.Context, id uint64) (model.UserSession, error)
    RecordIPChange(ctx context.Context, id uint64, ipHash string, numChanges uint8, requiresVerification bool) error
    ClearVerification(ctx context.Context, id uint64) error
    DeleteByToken(ctx context.Context, sessionToken string) error
    DeleteAllForUser(ctx context.Context, userID uint64) error
}

// CodeStore is the slice of the code repository the service needs.
type CodeStore interface {
    Create(ctx context.Context, c *model.EmailVerificationCode) error
    GetUnused(ctx context.Context, userID uint64, code string) (model.EmailVerificationCode, error)
    MarkUsed(ctx context.Context, id uint64) error
    MarkAllUsedForUser(ctx context.Context, userID uint64) error
}

// Service bundles the collaborators of the security layer.
type Service struct {
    Users    UserStore
    Sessions SessionStore
    Codes    CodeStore
    Limiter  *ratelimit.Limiter
    Mailer   mailer.Mailer
    // KeyPassphrase is the process-wide secret sealing session private
    // keys at rest.
    KeyPassphrase string
    Log           *slog.Logger
}

func NewService(users UserStore, sessions SessionStore, codes CodeStore, limiter *ratelimit.Limiter, m mailer.Mailer, keyPassphrase string, log *slog.Logger) *Service {
    return &Service{
        Users:         users,
        Sessions:      sessions,
        Codes:         codes,
        Limiter:       limiter,
        Mailer:        m,
        KeyPassphrase: keyPassphrase,
        Log:           log,
    }
}

// Authenticate validates a presented "sessionToken:signature"
// credential for a request arriving from clientIP and returns the
// usable session. The order of checks is deliberate and must not be
// rearranged:
//
//  1. malformed credentials are rejected before touching storage;
//  2. a flagged session is rejected with the structured reverify
//     signal before anything else leaks;
//  3. the IP comparison runs next, so authorization checks double as
//     anomaly detectors (a read path that mutates state, by intent);
//  4. expiry;
//  5. the signature is verified last, so an expired or flagged session
//     never reveals whether its signature was even well-formed.
func (s *Service) Authenticate(ctx context.Context, credential, clientIP string) (model.UserSession, error) {
    sessionToken, signature, ok := strings.Cut(credential, ":")
    if !ok || sessionToken == "" || signature == "" {
        return model.UserSession{}, apperr.New(apperr.Unauthorized, "invalid token")
    }

    sess, err := s.Sessions.GetByToken(ctx, sessionToken)
    if err != nil {
        if err == repository.ErrSessionNotFound {
            return model.UserSession{}, apperr.New(apperr.Unauthorized, "session does not exist")
        }
        return model.UserSession{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }

    if sess.RequiresVerification {
        return model.UserSession{}, apperr.NewReverify(sess.ID, sess.UserID)
    }

    // A missing stored hash or an unknown incoming IP both count as a
    // change: unknown is treated as different.
    incoming := ""
    if clientIP != "" {
        incoming = keys.HashIP(clientIP)
    }
    ipEqual := sess.CurrentIPHash != nil && incoming != "" && *sess.CurrentIPHash == incoming
    if !ipEqual {
        n := sess.NumOfIPChanges + 1
        if n >= ipChangeThreshold {
            if err := s.Sessions.RecordIPChange(ctx, sess.ID, incoming, n, true); err != nil {
                return model.UserSession{}, apperr.Wrap(apperr.Upstream, "try again later", err)
            }
            // Trigger the code challenge for the owner; delivery failure
            // is logged but the request is rejected either way.
            if _, err := s.issueAndMailCode(ctx, sess.UserID); err != nil {
                s.Log.Error("reverification code delivery failed", "session_id", sess.ID, "err", err)
            }
            return model.UserSession{}, apperr.NewReverify(sess.ID, sess.UserID)
        }
        if err := s.Sessions.RecordIPChange(ctx, sess.ID, incoming, n, false); err != nil {
            return model.UserSession{}, apperr.Wrap(apperr.Upstream, "try again later", err)
        }
        sess.NumOfIPChanges = n
        sess.CurrentIPHash = &incoming
    }

    if !time.Now().UTC().Before(sess.ExpiresOn) {
        return model.UserSession{}, apperr.New(apperr.Unauthorized, "session expired")
    }

    if !keys.Verify(sessionToken, signature, sess.PublicVerificationToken) {
        return model.UserSession{}, apperr.New(apperr.Unauthorized, "invalid token")
    }
    return sess, nil
}

// Login looks the user up and emails a fresh code. It is gated by the
// IP cooldown; the timestamp is recorded only after the email has
// actually gone out.
func (s *Service) Login(ctx context.Context, email, clientIP string) (model.User, error) {
    if blocked, remaining := s.Limiter.Check(ctx, clientIP); blocked {
        return model.User{}, apperr.NewRateLimited(remaining)
    }
    u, err := s.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
    if err != nil {
        return model.User{}, apperr.New(apperr.NotFound, "account not found")
    }
    if _, err := s.issueAndMailCode(ctx, u.ID); err != nil {
        return model.User{}, err
    }
    s.Limiter.Record(ctx, clientIP)
    return u, nil
}

// SignupInput carries the fields collected on signup.
type SignupInput struct {
    Email     string
    PhoneNum  *string
    FirstName string
    LastName  string
    Age       uint8
}

// Signup creates the user and emails the first code, under the same
// cooldown as Login.
func (s *Service) Signup(ctx context.Context, in SignupInput, clientIP string) (uint64, error) {
    if blocked, remaining := s.Limiter.Check(ctx, clientIP); blocked {
        return 0, apperr.NewRateLimited(remaining)
    }
    uid, err := s.Users.Create(ctx, in.Email, in.PhoneNum, in.FirstName, in.LastName, in.Age)
    if err != nil {
        switch err {
        case repository.ErrEmailExists:
            return 0, apperr.New(apperr.Conflict, "email already exists")
        case repository.ErrPhoneExists:
            return 0, apperr.New(apperr.Conflict, "phone number already exists")
        }
        return 0, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    if _, err := s.issueAndMailCode(ctx, uid); err != nil {
        return 0, err
    }
    s.Limiter.Record(ctx, clientIP)
    return uid, nil
}

// Resend emails a fresh code without touching previously issued ones;
// a still-live old code and the new one coexist until either is
// consumed or expires.
func (s *Service) Resend(ctx context.Context, userID uint64, clientIP string) error {
    if blocked, remaining := s.Limiter.Check(ctx, clientIP); blocked {
        return apperr.NewRateLimited(remaining)
    }
    if _, err := s.issueAndMailCode(ctx, userID); err != nil {
        return err
    }
    s.Limiter.Record(ctx, clientIP)
    return nil
}

// VerifyResult is returned by ConsumeCode. Credential is only set on
// the fresh-login branch.
type VerifyResult struct {
    // Credential is the "sessionToken:signature" compound stored as a
    // cookie; empty when an existing session was reverified instead.
    Credential string
    SessionID  uint64
    UserID     uint64
}

// ConsumeCode validates a submitted code. With a target session id it
// restores that flagged session (reverification); without one it
// establishes a brand-new session, invalidating every outstanding code
// for the user on the way.
func (s *Service) ConsumeCode(ctx context.Context, userID uint64, code string, reverifySessionID *uint64, clientIP string) (VerifyResult, error) {
    // Finer per-user cooldown, distinct from the IP limiter, to blunt
    // rapid brute-force of the 6-digit space.
    if blocked, remaining := s.Limiter.CheckUser(ctx, userID); blocked {
        return VerifyResult{}, apperr.NewRateLimited(remaining)
    }
    s.Limiter.RecordUser(ctx, userID)

    rec, err := s.Codes.GetUnused(ctx, userID, strings.TrimSpace(code))
    if err != nil {
        if err == repository.ErrCodeNotFound {
            return VerifyResult{}, apperr.New(apperr.Unauthorized, "invalid code")
        }
        return VerifyResult{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    if !time.Now().UTC().Before(rec.ExpiresOn) {
        return VerifyResult{}, apperr.New(apperr.Unauthorized, "code expired")
    }

    if reverifySessionID != nil {
        // Reverification: restore the flagged session. Other
        // outstanding codes stay live and no new session is created.
        sess, err := s.Sessions.GetByID(ctx, *reverifySessionID)
        if err != nil {
            return VerifyResult{}, apperr.New(apperr.Unauthorized, "session does not exist")
        }
        if sess.UserID != userID {
            return VerifyResult{}, apperr.New(apperr.Unauthorized, "invalid code")
        }
        if err := s.Sessions.ClearVerification(ctx, sess.ID); err != nil {
            return VerifyResult{}, apperr.Wrap(apperr.Upstream, "try again later", err)
        }
        if err := s.Codes.MarkUsed(ctx, rec.ID); err != nil {
            return VerifyResult{}, apperr.Wrap(apperr.Upstream, "try again later", err)
        }
        return VerifyResult{SessionID: sess.ID, UserID: userID}, nil
    }

    // Fresh login: every outstanding code dies with the new session so
    // a stale code can never be replayed later.
    if err := s.Codes.MarkAllUsedForUser(ctx, userID); err != nil {
        return VerifyResult{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }

    pair, err := keys.GenerateKeyPair(s.KeyPassphrase)
    if err != nil {
        return VerifyResult{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    sessionToken := uuid.NewString()
    signature, err := keys.Sign(sessionToken, pair, s.KeyPassphrase)
    if err != nil {
        return VerifyResult{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }

    sess := model.UserSession{
        UserID:                  userID,
        SessionToken:            sessionToken,
        PublicVerificationToken: pair.PublicKeyPEM,
        EncryptedPrivateKey:     pair.EncryptedPrivateKey,
        ExpiresOn:               time.Now().UTC().Add(SessionTTL),
    }
    if clientIP != "" {
        h := keys.HashIP(clientIP)
        sess.CurrentIPHash = &h
    }
    if err := s.Sessions.Create(ctx, &sess); err != nil {
        return VerifyResult{}, apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    return VerifyResult{
        Credential: sessionToken + ":" + signature,
        SessionID:  sess.ID,
        UserID:     userID,
    }, nil
}

// Logout deletes exactly the presenting session.
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
    if err := s.Sessions.DeleteByToken(ctx, sessionToken); err != nil {
        if err == repository.ErrSessionNotFound {
            return apperr.New(apperr.Unauthorized, "session does not exist")
        }
        return apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    return nil
}

// LogoutAll deletes every session the user owns; requests from other
// devices fail with "session does not exist" immediately afterwards.
func (s *Service) LogoutAll(ctx context.Context, userID uint64) error {
    if err := s.Sessions.DeleteAllForUser(ctx, userID); err != nil {
        return apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    return nil
}

// ConfirmEmailChange applies a verified email-change binding.
func (s *Service) ConfirmEmailChange(ctx context.Context, userID uint64, newEmail string) error {
    if err := s.Users.UpdateEmail(ctx, userID, newEmail); err != nil {
        if err == repository.ErrEmailExists {
            return apperr.New(apperr.Conflict, "email already exists")
        }
        return apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    return nil
}

// GenerateCode draws six digits from 1 to 9 with repetition. Not
// cryptographically strong by construction; acceptable because a code
// is single-use, expires in fifteen minutes and sits behind two rate
// limiters.
func GenerateCode() string {
    var b [6]byte
    for i := range b {
        b[i] = byte('1' + rand.IntN(9))
    }
    return string(b[:])
}

// issueAndMailCode persists a fresh code and emails it to the user.
func (s *Service) issueAndMailCode(ctx context.Context, userID uint64) (string, error) {
    u, err := s.Users.GetByID(ctx, userID)
    if err != nil {
        return "", apperr.New(apperr.NotFound, "account not found")
    }
    code := model.EmailVerificationCode{
        UserID:    userID,
        Code:      GenerateCode(),
        ExpiresOn: time.Now().UTC().Add(CodeTTL),
    }
    if err := s.Codes.Create(ctx, &code); err != nil {
        return "", apperr.Wrap(apperr.Upstream, "try again later", err)
    }
    if err := s.Mailer.SendVerificationCode(u.Email, code.Code); err != nil {
        return "", apperr.Wrap(apperr.Upstream, "could not send email, try again later", err)
    }
    return code.Code, nil
}
