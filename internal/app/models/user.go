package models

import (
	"time"
)

// User is a row of the users table
type User struct {
	ID           int64      `json:"id" db:"id" example:"1"`
	Email        string     `json:"email" db:"email" example:"ada@uni.edu"`
	Password     string     `json:"-" db:"password_hash"`
	FirstName    string     `json:"firstName" db:"first_name" example:"Ada"`
	LastName     string     `json:"lastName" db:"last_name" example:"Obi"`
	RoleType     RoleType   `json:"roleType" db:"role_type" example:"STUDENT"`
	ProgramID    *int64     `json:"programId,omitempty" db:"program_id" example:"3"`
	Department   *string    `json:"department,omitempty" db:"department" example:"Computer Science"`
	MatricNumber *string    `json:"matricNumber,omitempty" db:"matric_number" example:"CSC/2021/001"`
	IsActive     bool       `json:"isActive" db:"is_active" example:"true"`
	LastSeenAt   *time.Time `json:"lastSeenAt,omitempty" db:"last_seen_at"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// PasswordResetToken is a single-use credential mailed to a user
type PasswordResetToken struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	Token      string    `db:"token"`
	ExpiryDate time.Time `db:"expiry_date"`
	Used       bool      `db:"used"`
	CreatedAt  time.Time `db:"created_at"`
}

// Expired reports whether the token can no longer be redeemed at now.
func (t *PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiryDate)
}
