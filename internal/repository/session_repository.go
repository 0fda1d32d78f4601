package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/hotello/internal/model"
)

// SessionRepo provides data access to the user_sessions table. All
// timestamps are stored in UTC. Sessions are deleted on logout rather
// than soft-revoked; a missing row and a revoked session are the same
// condition from the caller's point of view.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const sessionColumns = "id,user_id,session_token,public_verification_token,encrypted_private_key," +
    "current_ip_hash,num_of_ip_changes,requires_verification,expires_on,created_at"

// Create inserts a session row and returns its id.
func (r *SessionRepo) Create(ctx context.Context, s *model.UserSession) error {
    res, err := r.DB.ExecContext(ctx,
        `INSERT INTO user_sessions
         (user_id, session_token, public_verification_token, encrypted_private_key, current_ip_hash, expires_on)
         VALUES (?,?,?,?,?,?)`,
        s.UserID, s.SessionToken, s.PublicVerificationToken, s.EncryptedPrivateKey, s.CurrentIPHash, s.ExpiresOn.UTC())
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    return nil
}

func (r *SessionRepo) scanRow(row *sql.Row) (model.UserSession, error) {
    var s model.UserSession
    err := row.Scan(&s.ID, &s.UserID, &s.SessionToken, &s.PublicVerificationToken,
        &s.EncryptedPrivateKey, &s.CurrentIPHash, &s.NumOfIPChanges,
        &s.RequiresVerification, &s.ExpiresOn, &s.CreatedAt)
    if err == sql.ErrNoRows {
        return s, ErrSessionNotFound
    }
    return s, err
}

// GetByToken loads a session by its opaque token.
func (r *SessionRepo) GetByToken(ctx context.Context, sessionToken string) (model.UserSession, error) {
    return r.scanRow(r.DB.QueryRowContext(ctx,
        "SELECT "+sessionColumns+" FROM user_sessions WHERE session_token=? LIMIT 1", sessionToken))
}

// GetByID loads a session by primary key.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (model.UserSession, error) {
    return r.scanRow(r.DB.QueryRowContext(ctx,
        "SELECT "+sessionColumns+" FROM user_sessions WHERE id=? LIMIT 1", id))
}

// RecordIPChange persists a new IP hash together with the bumped
// counter and, when the threshold was hit, the verification flag. The
// write is a single statement; concurrent authentications of the same
// session may lose an increment, which the 3-strikes heuristic
// tolerates.
func (r *SessionRepo) RecordIPChange(ctx context.Context, id uint64, ipHash string, numChanges uint8, requiresVerification bool) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE user_sessions SET current_ip_hash=?, num_of_ip_changes=?, requires_verification=? WHERE id=?",
        ipHash, numChanges, requiresVerification, id)
    return err
}

// ClearVerification restores a flagged session: the flag is dropped
// and the IP-change counter starts over.
func (r *SessionRepo) ClearVerification(ctx context.Context, id uint64) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE user_sessions SET requires_verification=0, num_of_ip_changes=0 WHERE id=?", id)
    return err
}

// DeleteByToken removes exactly the presenting session (single logout).
func (r *SessionRepo) DeleteByToken(ctx context.Context, sessionToken string) error {
    res, err := r.DB.ExecContext(ctx,
        "DELETE FROM user_sessions WHERE session_token=?", sessionToken)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrSessionNotFound
    }
    return nil
}

// DeleteAllForUser removes every session the user owns (logout from
// all devices).
func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID uint64) error {
    _, err := r.DB.ExecContext(ctx, "DELETE FROM user_sessions WHERE user_id=?", userID)
    return err
}

// DeleteExpired prunes sessions whose expiry has passed. Expired
// sessions already fail authentication; this is housekeeping only.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
    res, err := r.DB.ExecContext(ctx,
        "DELETE FROM user_sessions WHERE expires_on <= ?", time.Now().UTC())
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
