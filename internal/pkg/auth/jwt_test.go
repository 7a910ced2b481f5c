package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
)

func newTestJWT() *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "studentportal-test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestJWT()
	user := &models.User{ID: 7, Email: "ada@uni.edu", RoleType: models.RoleStudent}

	token, expiresIn, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), expiresIn)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "ada@uni.edu", claims.Email)
	assert.Equal(t, models.RoleStudent, claims.Role())
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newTestJWT()
	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }

	token, _, err := svc.GenerateAccessToken(&models.User{ID: 1, Email: "a@b.c", RoleType: models.RoleAdmin})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "studentportal-test"})
	token, _, err := other.GenerateAccessToken(&models.User{ID: 1, Email: "a@b.c"})
	require.NoError(t, err)

	_, err = newTestJWT().ValidateToken(token)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	_, err = newTestJWT().ValidateToken("")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = ExtractBearerToken("abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	_, err = ExtractBearerToken("  ")
	assert.Error(t, err)
}

func TestPasswordHelpers(t *testing.T) {
	BcryptCost = 4
	hash, err := HashPassword("s3cretPass")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cretPass"))
	assert.False(t, CheckPassword(hash, "wrong"))

	assert.True(t, PasswordStrong("abcdefg1"))
	assert.False(t, PasswordStrong("abcdefgh"))
	assert.False(t, PasswordStrong("1234567"))

	tok, err := GenerateResetToken()
	require.NoError(t, err)
	assert.Len(t, tok, 32)
}
