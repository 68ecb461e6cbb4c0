package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token purposes. One secret signs all of them, so every consumer must check
// the Type claim, not just the signature.
const (
	PurposeAccess        = "access"
	PurposeRemember      = "remember"
	PurposeVerification  = "verification"
	PurposePasswordReset = "password_reset"
)

const (
	AccessTokenTTL = 8 * time.Hour
	// Short access tokens paired with a remember token, refreshed on demand.
	ShortAccessTokenTTL   = 1 * time.Hour
	RememberTokenTTL      = 30 * 24 * time.Hour
	VerificationTokenTTL  = 48 * time.Hour
	PasswordResetTokenTTL = 1 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongPurpose = errors.New("token not valid for this purpose")
)

type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies the signed claims used for sessions,
// email verification and password resets. Tokens are never persisted.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

func (s *TokenService) sign(claims *Claims) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// NewAccessToken issues a session token. With rememberMe the token is
// short-lived because the client holds a 30-day remember token to refresh it.
func (s *TokenService) NewAccessToken(userID uuid.UUID, email string, rememberMe bool) (string, error) {
	ttl := AccessTokenTTL
	if rememberMe {
		ttl = ShortAccessTokenTTL
	}
	return s.sign(&Claims{
		UserID: userID.String(),
		Email:  email,
		Type:   PurposeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
}

func (s *TokenService) NewRememberToken(userID uuid.UUID, email string) (string, error) {
	return s.sign(&Claims{
		UserID: userID.String(),
		Email:  email,
		Type:   PurposeRemember,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(RememberTokenTTL)),
		},
	})
}

func (s *TokenService) NewVerificationToken(email string) (string, error) {
	return s.sign(&Claims{
		Email: email,
		Type:  PurposeVerification,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(VerificationTokenTTL)),
		},
	})
}

func (s *TokenService) NewPasswordResetToken(email string) (string, error) {
	return s.sign(&Claims{
		Email: email,
		Type:  PurposePasswordReset,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(PasswordResetTokenTTL)),
		},
	})
}

// Verify checks signature and expiry, then enforces the purpose tag.
func (s *TokenService) Verify(tokenString, purpose string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}
