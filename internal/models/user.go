package models

import (
	"strings"
	"time"
)

// Role is the single role a user holds
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleBuyer   Role = "buyer"
)

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleBuyer:
		return true
	}
	return false
}

// ParseRole normalizes and validates a role string
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// AccountStatus is the admin-controlled state of a user account
type AccountStatus string

const (
	AccountStatusPending   AccountStatus = "pending"
	AccountStatusApproved  AccountStatus = "approved"
	AccountStatusSuspended AccountStatus = "suspended"
)

// IsValid reports whether s is one of the known account statuses
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountStatusPending, AccountStatusApproved, AccountStatusSuspended:
		return true
	}
	return false
}

// ParseAccountStatus normalizes and validates an account status string
func ParseAccountStatus(s string) (AccountStatus, bool) {
	st := AccountStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.IsValid()
}

// User represents an account holder of any role
type User struct {
	ID            string        `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	Email         string        `db:"email" json:"email"`
	PasswordHash  string        `db:"password_hash" json:"-"`
	Role          Role          `db:"role" json:"role"`
	Status        AccountStatus `db:"status" json:"status"`
	SuspendReason *string       `db:"suspend_reason" json:"suspend_reason,omitempty"`
	PhotoURL      *string       `db:"photo_url" json:"photo_url,omitempty"`
	Phone         *string       `db:"phone" json:"phone,omitempty"`
	Address       *string       `db:"address" json:"address,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// NewUser creates a user awaiting admin approval
func NewUser(name, email, passwordHash string, role Role) *User {
	now := GetCurrentTime()

	return &User{
		ID:           GenerateID("usr"),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         role,
		Status:       AccountStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CanPlaceOrders reports whether the account may create orders
func (u *User) CanPlaceOrders() bool {
	return u.Role == RoleBuyer && u.Status == AccountStatusApproved
}
