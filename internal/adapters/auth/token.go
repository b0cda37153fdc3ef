package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"eventregistry/internal/domain"
)

type jwtClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

type jwtIssuer struct {
	secret []byte
	nowFn  func() time.Time
}

// JWTIssuer issues and verifies HS256 session tokens.
type JWTIssuer interface {
	domain.TokenIssuer
	domain.TokenVerifier
}

// NewJWTIssuer returns a JWTIssuer signing with the given secret.
func NewJWTIssuer(secret string) JWTIssuer {
	return &jwtIssuer{secret: []byte(secret), nowFn: time.Now}
}

func (i *jwtIssuer) Issue(userID, email string, expiry time.Duration) (string, string, error) {
	now := i.nowFn()
	tokenID := uuid.NewString()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Email: email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, tokenID, nil
}

func (i *jwtIssuer) Verify(tokenString string) (string, string, error) {
	claims := &jwtClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.nowFn))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", fmt.Errorf("token expired: %w", domain.ErrInvalidCredentials)
		}
		return "", "", fmt.Errorf("invalid token: %w", domain.ErrInvalidCredentials)
	}
	return claims.Subject, claims.ID, nil
}
