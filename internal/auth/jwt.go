package auth

// UI SESSION COOKIE:
// The login state itself lives in package session, in memory. The browser
// window showing the UI needs a way to prove it is the one that logged in, so
// on login we hand it a signed JWT in an HttpOnly cookie:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"sub":"alice","role":"user","iss":"weatherly","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
//
// The secret is random per process unless configured, so restarting the app
// invalidates every cookie, matching the in-memory session.

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/session"
)

const (
	tokenIssuer = "weatherly"

	// DefaultTokenTTL bounds how long a UI cookie is honored. The session
	// itself ends at logout or process exit, whichever comes first.
	DefaultTokenTTL = 12 * time.Hour
)

// TokenService signs and validates UI session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret. An empty
// secret is replaced by 32 random bytes.
func NewTokenService(secret string) (*TokenService, error) {
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("auth: generating session secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
	}
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), ttl: DefaultTokenTTL}, nil
}

// claims is the JWT payload. "sub" carries the username.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Generate signs a token for id, valid for the service's TTL.
func (s *TokenService) Generate(id session.Identity) (string, error) {
	return s.GenerateWithDuration(id, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to get an already-expired token.
func (s *TokenService) GenerateWithDuration(id session.Identity, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token and returns the identity it names.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer is "weatherly"
//   - Algorithm is HS256 (no "none" or algorithm confusion)
func (s *TokenService) Validate(tokenStr string) (session.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return session.Identity{}, fmt.Errorf("auth: token expired")
		}
		return session.Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return session.Identity{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return session.Identity{}, fmt.Errorf("auth: token has no subject")
	}

	role, err := model.ParseRole(c.Role)
	if err != nil {
		return session.Identity{}, fmt.Errorf("auth: token role: %w", err)
	}
	return session.Identity{Username: c.Subject, Role: role}, nil
}
