package model

import "time"

// Role names stored in users.role.
const (
    RoleCustomer = "CUSTOMER"
    RoleAdmin    = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table. Users are created on signup and never hard-deleted;
// email and phone number are unique (phone may be null). There is no
// password column: authentication is performed exclusively through
// one-time email codes.
//
// Fields:
//  ID               – primary key identifier of the user.
//  Email            – unique email address.
//  PhoneNum         – unique phone number (nullable).
//  FirstName        – given name.
//  LastName         – family name.
//  Age              – stated age in years.
//  Role             – CUSTOMER or ADMIN.
//  AdminAccessLevel – back-office access tier, zero for customers.
//  IsNewUser        – true until the first completed booking.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type User struct {
    ID               uint64    // users.id
    Email            string    // users.email
    PhoneNum         *string   // users.phone_num (nullable)
    FirstName        string    // users.first_name
    LastName         string    // users.last_name
    Age              uint8     // users.age
    Role             string    // users.role
    AdminAccessLevel uint8     // users.admin_access_level
    IsNewUser        bool      // users.is_new_user
    CreatedAt        time.Time // users.created_at
    UpdatedAt        time.Time // users.updated_at
}

// UserSession models a row in the `user_sessions` table. Each row
// represents one authenticated browser/device. The session token is
// random and opaque; its authenticity is proven by an ECDSA signature
// validated against PublicVerificationToken, whose private half is
// stored passphrase-encrypted. A session is usable only while
// RequiresVerification is false, the expiry has not passed and the
// presented signature verifies.
//
// Fields:
//  ID                      – primary key identifier.
//  UserID                  – owner of the session.
//  SessionToken            – opaque random token presented by the client.
//  PublicVerificationToken – PEM public key unique to this session.
//  EncryptedPrivateKey     – passphrase-encrypted private key (hex).
//  CurrentIPHash           – SHA-256 hash of the last seen client IP (nullable).
//  NumOfIPChanges          – distinct-IP counter, reset on reverification.
//  RequiresVerification    – true once the IP-anomaly threshold is hit.
//  ExpiresOn               – absolute expiry timestamp.
//  CreatedAt               – creation timestamp.
type UserSession struct {
    ID                      uint64    // user_sessions.id
    UserID                  uint64    // user_sessions.user_id
    SessionToken            string    // user_sessions.session_token
    PublicVerificationToken string    // user_sessions.public_verification_token
    EncryptedPrivateKey     string    // user_sessions.encrypted_private_key
    CurrentIPHash           *string   // user_sessions.current_ip_hash (nullable)
    NumOfIPChanges          uint8     // user_sessions.num_of_ip_changes
    RequiresVerification    bool      // user_sessions.requires_verification
    ExpiresOn               time.Time // user_sessions.expires_on
    CreatedAt               time.Time // user_sessions.created_at
}

// EmailVerificationCode models a row in the `email_verification_codes`
// table. Codes are six digits (1–9), valid for fifteen minutes and
// single-use. They are marked used on consumption and in bulk whenever
// a new session is established, which prevents replay of stale codes.
// Rows are never physically deleted.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – owner of the code.
//  Code        – six-digit numeric string.
//  AlreadyUsed – consumption flag.
//  ExpiresOn   – expiry timestamp (15 minutes after issuance).
//  CreatedAt   – creation timestamp.
type EmailVerificationCode struct {
    ID          uint64    // email_verification_codes.id
    UserID      uint64    // email_verification_codes.user_id
    Code        string    // email_verification_codes.code
    AlreadyUsed bool      // email_verification_codes.already_used
    ExpiresOn   time.Time // email_verification_codes.expires_on
    CreatedAt   time.Time // email_verification_codes.created_at
}
