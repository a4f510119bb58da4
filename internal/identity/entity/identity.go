package entity

import (
	"strings"
	"time"
)

// User is a portal account. The email is the identity claim; ID is an
// internal surrogate key.
type User struct {
	ID              int64
	Email           string
	Name            string
	PasswordHash    string // empty means no usable password
	IsActive        bool
	IsStaff         bool
	IsSuperuser     bool
	TOTPSecret      []byte // AES-GCM ciphertext
	TOTPEnabled     bool
	LastLoginAt     *time.Time
	LastLoginIP     string
	LastLoginDevice string
	DateJoined      time.Time
	UpdatedAt       time.Time
}

// Role maps the account flags to the role carried in access tokens.
func (u User) Role() string {
	switch {
	case u.IsSuperuser:
		return RoleSuperuser
	case u.IsStaff:
		return RoleStaff
	default:
		return RoleMember
	}
}

func (u User) HasUsablePassword() bool { return u.PasswordHash != "" }

func (u User) HasTOTP() bool { return u.TOTPEnabled && len(u.TOTPSecret) > 0 }

// PendingUser is a signup that has not become an account yet.
type PendingUser struct {
	Email       string
	Name        string
	OTPVerified bool
	CreatedAt   time.Time
}

// OTP is a stored one-time code. Only the HMAC of the code is kept.
type OTP struct {
	ID        int64
	Email     string
	CodeHash  string
	Purpose   OTPPurpose
	IsUsed    bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// ConsumeOTP selects the newest unused code matching Email, CodeHash and
// Purpose. Codes created before NotBefore are expired.
type ConsumeOTP struct {
	Email     string
	CodeHash  string
	Purpose   OTPPurpose
	NotBefore time.Time
	Now       time.Time
	// VerifyPending flips the pending registration to verified in the same
	// transaction.
	VerifyPending bool
}

// ResetPassword replaces a password after checking a reset code that is
// either unused or was consumed earlier, as long as it is not expired.
type ResetPassword struct {
	UserID       int64
	Email        string
	CodeHash     string
	NotBefore    time.Time
	Now          time.Time
	PasswordHash string
}

// NewAccount creates a user from a verified pending registration together
// with its first refresh session.
type NewAccount struct {
	User    User
	Session *RefreshToken
}

type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// UserRefreshToken is a refresh session joined with its account.
type UserRefreshToken struct {
	RefreshID    int64
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	ReplacedByID *int64
	User         User
}

func (t UserRefreshToken) Revoked() bool { return t.RevokedAt != nil }

type RotateRefreshToken struct {
	OldID        int64
	NewID        int64
	UserID       int64
	NewTokenHash string
	NewExpiresAt time.Time
	Now          time.Time
}

// LoginRecord is written after every successful authentication.
type LoginRecord struct {
	UserID int64
	At     time.Time
	IP     string
	Device string
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailInDomain reports whether email belongs to domain. An empty domain
// accepts every address.
func EmailInDomain(email, domain string) bool {
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))
	if domain == "" {
		return true
	}
	_, host, ok := strings.Cut(NormalizeEmail(email), "@")
	return ok && host == domain
}
