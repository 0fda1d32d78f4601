package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/hotello/internal/model"
)

// UserRepo provides data access to the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,phone_num,first_name,last_name,age,role,admin_access_level,is_new_user,created_at,updated_at"

// Create inserts a user and returns its ID. Duplicate email or phone
// collisions are mapped to sentinel errors by inspecting the MySQL
// duplicate-key message for the violated index name.
func (r *UserRepo) Create(ctx context.Context, email string, phone *string, firstName, lastName string, age uint8) (uint64, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO users (email, phone_num, first_name, last_name, age, role) VALUES (?,?,?,?,?,?)",
        email, phone, firstName, lastName, age, model.RoleCustomer)
    if err != nil {
        low := strings.ToLower(err.Error())
        if strings.Contains(low, "1062") {
            if strings.Contains(low, "phone") {
                return 0, ErrPhoneExists
            }
            return 0, ErrEmailExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

func (r *UserRepo) scanRow(row *sql.Row) (model.User, error) {
    var u model.User
    err := row.Scan(&u.ID, &u.Email, &u.PhoneNum, &u.FirstName, &u.LastName,
        &u.Age, &u.Role, &u.AdminAccessLevel, &u.IsNewUser, &u.CreatedAt, &u.UpdatedAt)
    return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    return r.scanRow(r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    return r.scanRow(r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdateDetails mutates the mutable identity fields.
func (r *UserRepo) UpdateDetails(ctx context.Context, id uint64, firstName, lastName string, age uint8, phone *string) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE users SET first_name=?, last_name=?, age=?, phone_num=? WHERE id=?",
        firstName, lastName, age, phone, id)
    if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
        return ErrPhoneExists
    }
    return err
}

// UpdateEmail changes a user's email after an email-change token has
// been verified.
func (r *UserRepo) UpdateEmail(ctx context.Context, id uint64, email string) error {
    email = strings.ToLower(strings.TrimSpace(email))
    _, err := r.DB.ExecContext(ctx, "UPDATE users SET email=? WHERE id=?", email, id)
    if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
        return ErrEmailExists
    }
    return err
}

// ClearNewUserFlag drops is_new_user after the first completed booking.
func (r *UserRepo) ClearNewUserFlag(ctx context.Context, id uint64) error {
    _, err := r.DB.ExecContext(ctx, "UPDATE users SET is_new_user=0 WHERE id=?", id)
    return err
}
