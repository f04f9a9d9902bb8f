package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"milorg-admin/apperr"
)

// DefaultTokenTTL is the lifetime of a session token unless configured otherwise.
const DefaultTokenTTL = time.Hour

// CustomClaims is the session token payload.
type CustomClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokens fails when secret is empty; the process must not start without one.
func NewTokens(secret []byte, ttl time.Duration, issuer string) (*Tokens, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is not configured")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: secret, ttl: ttl, issuer: issuer, now: time.Now}, nil
}

// TTL returns the token lifetime.
func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for userID and returns it with its expiry.
func (t *Tokens) Issue(userID uint) (string, time.Time, error) {
	if userID == 0 {
		return "", time.Time{}, errors.New("userID is required")
	}
	now := t.now()
	expiresAt := now.Add(t.ttl)
	id := strconv.FormatUint(uint64(userID), 10)
	claims := &CustomClaims{
		UserID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse checks signature, expiry and issuer and returns the embedded user id.
// Expired tokens yield apperr.ErrTokenExpired, everything else apperr.ErrTokenInvalid.
func (t *Tokens) Parse(tokenString string) (uint, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return 0, apperr.ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 && ve.Errors&jwt.ValidationErrorSignatureInvalid == 0 {
			return 0, apperr.ErrTokenExpired.Wrap(err)
		}
		return 0, apperr.ErrTokenInvalid.Wrap(err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return 0, apperr.ErrTokenInvalid
	}
	if t.issuer != "" && !claims.VerifyIssuer(t.issuer, true) {
		return 0, apperr.ErrTokenInvalid.WithMessage("token was issued by another service")
	}
	id, err := strconv.ParseUint(claims.UserID, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.ErrTokenInvalid.WithMessage("token does not identify a user")
	}
	return uint(id), nil
}
