package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/auth"
	"github.com/yigit/studentportal/internal/pkg/email"
)

// presenceRecorder is the part of PresenceService the auth flow drives
type presenceRecorder interface {
	Heartbeat(ctx context.Context, userID int64, role models.RoleType) error
	MarkOffline(ctx context.Context, userID int64) error
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo      userStore
	tokenRepo     resetTokenStore
	programRepo   programStore
	jwtService    *auth.JWTService
	emailService  email.EmailService
	presence      presenceRecorder
	resetTokenTTL time.Duration
	now           func() time.Time
	logger        zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo userStore,
	tokenRepo resetTokenStore,
	programRepo programStore,
	jwtService *auth.JWTService,
	emailService email.EmailService,
	presence presenceRecorder,
	resetTokenTTL time.Duration,
	logger zerolog.Logger,
) *AuthService {
	if resetTokenTTL <= 0 {
		resetTokenTTL = time.Hour
	}
	return &AuthService{
		userRepo:      userRepo,
		tokenRepo:     tokenRepo,
		programRepo:   programRepo,
		jwtService:    jwtService,
		emailService:  emailService,
		presence:      presence,
		resetTokenTTL: resetTokenTTL,
		now:           time.Now,
		logger:        logger,
	}
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// validatePassword checks if password meets requirements
func validatePassword(password, field string) error {
	if !auth.PasswordStrong(password) {
		return apperrors.NewValidationError("password must be at least 8 characters and contain a letter and a digit").WithField(field)
	}
	return nil
}

// SignupStudent registers a new student account under an existing program
func (s *AuthService) SignupStudent(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error) {
	if err := validatePassword(req.Password, "password"); err != nil {
		return nil, err
	}
	matric := strings.TrimSpace(req.MatricNumber)
	if matric == "" {
		return nil, apperrors.NewValidationError("matricNumber is required").WithField("matricNumber")
	}

	program, err := s.programRepo.GetByID(ctx, req.ProgramID)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	programID := program.ID
	department := program.Name
	user := &models.User{
		Email:        normalizeEmail(req.Email),
		Password:     hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		RoleType:     models.RoleStudent,
		ProgramID:    &programID,
		Department:   &department,
		MatricNumber: &matric,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("userID", user.ID).Int64("programID", programID).Msg("Student signed up")
	return s.issue(ctx, user)
}

// Login authenticates a user by email and password
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to record last login")
	}
	return s.issue(ctx, user)
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	token, expiresIn, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	if err := s.presence.Heartbeat(ctx, user.ID, user.RoleType); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to record presence")
	}

	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   expiresIn,
		},
		User: dto.NewUserResponse(user),
	}, nil
}

// Logout marks the user offline. Access tokens are stateless and simply expire.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	return s.presence.MarkOffline(ctx, userID)
}

// ForgotPassword mails a reset link. Unknown addresses succeed silently so the
// endpoint cannot be used to probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			s.logger.Info().Msg("Password reset requested for unknown email")
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}

	token, err := auth.GenerateResetToken()
	if err != nil {
		return err
	}
	if err := s.tokenRepo.Create(ctx, user.ID, token, s.now().Add(s.resetTokenTTL)); err != nil {
		return err
	}

	if err := s.emailService.SendPasswordResetEmail(ctx, user.Email, user.FullName(), token, s.resetTokenTTL); err != nil {
		s.logger.Error().Err(err).Int64("userID", user.ID).Msg("Failed to send password reset email")
		return apperrors.NewUpstreamError("could not send the password reset email, please try again later", err)
	}
	return nil
}

// ResetPassword redeems a reset token and stores the new password
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	invalid := apperrors.NewValidationError("reset token is invalid or has expired").WithField("token")

	token, err := s.tokenRepo.Get(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		if errors.Is(err, apperrors.ErrResetTokenNotFound) {
			return invalid
		}
		return err
	}
	if token.Used || token.Expired(s.now()) {
		return invalid
	}
	if err := validatePassword(req.NewPassword, "newPassword"); err != nil {
		return err
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	claimed, err := s.tokenRepo.MarkUsed(ctx, token.Token)
	if err != nil {
		return err
	}
	if !claimed {
		return invalid
	}

	if err := s.userRepo.UpdatePassword(ctx, token.UserID, hash); err != nil {
		return err
	}
	s.logger.Info().Int64("userID", token.UserID).Msg("Password reset")
	return nil
}

// GetProfile returns the public view of a user
func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}
