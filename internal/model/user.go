package model

import "time"

// Role names stored in users.role and in the JWT role claim.
const (
    RoleMember = "MEMBER"
    RoleAdmin  = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table.  ConsentAt is stamped the first time the member accepts the
// studio's consent form; nil means consent has not been given.
type User struct {
    ID           uint64     // users.id
    Email        string     // users.email
    Name         string     // users.name
    PasswordHash string     // users.password_hash
    Role         string     // users.role (MEMBER or ADMIN)
    IsActive     bool       // users.is_active
    ConsentAt    *time.Time // users.consent_at (nullable)
    CreatedAt    time.Time  // users.created_at
    UpdatedAt    time.Time  // users.updated_at
}

// HasConsent reports whether the user already accepted the consent form.
func (u User) HasConsent() bool { return u.ConsentAt != nil }

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token value is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
