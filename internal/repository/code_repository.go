package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/hotello/internal/model"
)

// CodeRepo provides data access to the email_verification_codes
// table. Codes are never physically deleted; consumption and replay
// defense both work by flipping already_used.
type CodeRepo struct{ DB *sql.DB }

func NewCodeRepo(db *sql.DB) *CodeRepo { return &CodeRepo{DB: db} }

// Create inserts a fresh code row.
func (r *CodeRepo) Create(ctx context.Context, c *model.EmailVerificationCode) error {
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO email_verification_codes (user_id, code, expires_on) VALUES (?,?,?)",
        c.UserID, c.Code, c.ExpiresOn.UTC())
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    c.ID = uint64(id)
    return nil
}

// GetUnused finds the unused code matching (userID, code). Expiry is
// deliberately not filtered here: the caller distinguishes "invalid
// code" from "code expired" and needs the row back in both cases.
func (r *CodeRepo) GetUnused(ctx context.Context, userID uint64, code string) (model.EmailVerificationCode, error) {
    var c model.EmailVerificationCode
    err := r.DB.QueryRowContext(ctx,
        `SELECT id,user_id,code,already_used,expires_on,created_at
         FROM email_verification_codes
         WHERE user_id=? AND code=? AND already_used=0
         ORDER BY created_at DESC LIMIT 1`,
        userID, code).Scan(&c.ID, &c.UserID, &c.Code, &c.AlreadyUsed, &c.ExpiresOn, &c.CreatedAt)
    if err == sql.ErrNoRows {
        return c, ErrCodeNotFound
    }
    return c, err
}

// MarkUsed flips a single code to used.
func (r *CodeRepo) MarkUsed(ctx context.Context, id uint64) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE email_verification_codes SET already_used=1 WHERE id=?", id)
    return err
}

// MarkAllUsedForUser bulk-marks every outstanding code for the user.
// Called whenever a new session is established so stale codes cannot
// be replayed afterwards.
func (r *CodeRepo) MarkAllUsedForUser(ctx context.Context, userID uint64) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE email_verification_codes SET already_used=1 WHERE user_id=? AND already_used=0", userID)
    return err
}
