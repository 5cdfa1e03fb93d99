package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"messaging-backend/internal/utils"
)

func TestServiceToken_Roundtrip(t *testing.T) {
	req := require.New(t)

	token, err := GenerateServiceToken("billing")
	req.NoError(err)

	claims, err := ValidateServiceToken(token)
	req.NoError(err)
	req.Equal("billing", claims["name"])
}

func TestIssueToken_CredentialOutcomes(t *testing.T) {
	req := require.New(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	req.NoError(err)

	token, err := issueToken("billing", "hunter2", string(hash), nil)
	req.NoError(err)
	req.NotEmpty(token)

	_, err = issueToken("billing", "wrong", string(hash), nil)
	req.ErrorIs(err, ErrWrongPassword)

	_, err = issueToken("billing", "hunter2", "", pgx.ErrNoRows)
	req.ErrorIs(err, ErrUnknownService)
}

func TestIssueToken_StoreFailureIsNotWrongName(t *testing.T) {
	req := require.New(t)

	// A down or timing-out store must surface as a failure, never as a
	// credential rejection.
	storeErr := errors.New("connection refused")
	_, err := issueToken("billing", "hunter2", "", storeErr)
	req.NotErrorIs(err, ErrUnknownService)
	req.NotErrorIs(err, ErrWrongPassword)
	req.ErrorIs(err, storeErr)
}

func TestValidateServiceToken_Expired(t *testing.T) {
	req := require.New(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name": "billing",
		"exp":  time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString([]byte(utils.GetEnv("JWT_SECRET", "secret")))
	req.NoError(err)

	_, err = ValidateServiceToken(signed)
	req.ErrorIs(err, ErrTokenExpired)
}

func TestValidateServiceToken_Garbage(t *testing.T) {
	req := require.New(t)

	_, err := ValidateServiceToken("not-a-token")
	req.ErrorIs(err, ErrTokenInvalid)
}

func TestValidateServiceToken_WrongKey(t *testing.T) {
	req := require.New(t)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name": "billing",
		"exp":  time.Now().Add(time.Minute).Unix(),
	})
	signed, err := forged.SignedString([]byte("some-other-secret"))
	req.NoError(err)

	_, err = ValidateServiceToken(signed)
	req.ErrorIs(err, ErrTokenInvalid)
}
