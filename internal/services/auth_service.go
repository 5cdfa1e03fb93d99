package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"messaging-backend/internal/db"
	"messaging-backend/internal/utils"
)

var (
	ErrUnknownService = errors.New("wrong name")
	ErrWrongPassword  = errors.New("wrong password")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
)

// Tokens are short-lived: consuming services re-authenticate often.
const tokenTTL = 2 * time.Minute

type AuthService struct{}

func NewAuthService() *AuthService {
	return &AuthService{}
}

// Login checks the approved-service credentials and issues a service token.
func (s *AuthService) Login(ctx context.Context, name, password string) (string, error) {
	var hash string
	query := `SELECT password_hash FROM approved_services WHERE name = $1`
	err := db.Pool.QueryRow(ctx, query, name).Scan(&hash)
	return issueToken(name, password, hash, err)
}

// issueToken maps the credential lookup outcome to the auth taxonomy. Only
// an absent row means a wrong name; any other lookup failure is a store
// failure and propagates as-is.
func issueToken(name, password, hash string, lookupErr error) (string, error) {
	if lookupErr != nil {
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return "", ErrUnknownService
		}
		return "", lookupErr
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrWrongPassword
	}

	return GenerateServiceToken(name)
}

func GenerateServiceToken(name string) (string, error) {
	claims := jwt.MapClaims{
		"name": name,
		"exp":  time.Now().Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(utils.GetEnv("JWT_SECRET", "secret")))
}

// ValidateServiceToken parses and verifies a service token, mapping failures
// to the distinguishable expired/invalid pair the HTTP layer reports.
func ValidateServiceToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(utils.GetEnv("JWT_SECRET", "secret")), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrTokenInvalid
}
