package dto

import "github.com/yigit/studentportal/internal/app/models"

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignupRequest registers a new student account
type SignupRequest struct {
	Email        string `json:"email" binding:"required,email" example:"ada@uni.edu"`
	Password     string `json:"password" binding:"required,min=8,max=72" example:"s3cretPass"`
	FirstName    string `json:"firstName" binding:"required,max=100" example:"Ada"`
	LastName     string `json:"lastName" binding:"required,max=100" example:"Obi"`
	ProgramID    int64  `json:"programId" binding:"required,min=1" example:"3"`
	MatricNumber string `json:"matricNumber" binding:"required,max=50" example:"CSC/2021/001"`
}

// ForgotPasswordRequest asks for a reset link
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest redeems a reset token
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=72"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType" example:"Bearer"`
	ExpiresIn   int64  `json:"expiresIn" example:"86400"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID           int64           `json:"id"`
	Email        string          `json:"email"`
	FirstName    string          `json:"firstName"`
	LastName     string          `json:"lastName"`
	Role         models.RoleType `json:"role"`
	ProgramID    *int64          `json:"programId,omitempty"`
	Department   *string         `json:"department,omitempty"`
	MatricNumber *string         `json:"matricNumber,omitempty"`
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token TokenResponse `json:"token"`
	User  UserResponse  `json:"user"`
}

// NewUserResponse projects a user onto its public fields
func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.RoleType,
		ProgramID:    u.ProgramID,
		Department:   u.Department,
		MatricNumber: u.MatricNumber,
	}
}
