// Package middleware contains HTTP middleware for the roster API.
// Middleware sits between the HTTP server and route handlers, so it is the place for
// cross-cutting concerns like session tokens and request deadlines.
package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/trentd187/fifa-roster/internal/apperr"
)

// Claims is the payload of a session token. Subject holds the user id as a decimal string.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Tokens issues and verifies HS256 session tokens.
// The API never required tokens (clients just keep the returned userId), so they are an
// optional convenience: a nil *Tokens means issuance is switched off.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

const issuer = "fifa-roster"

// NewTokens returns nil when secret is empty.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if secret == "" {
		return nil
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the user.
func (t *Tokens) Issue(userID uint, username string) (string, error) {
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Username: username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies the signature, issuer and expiry and returns the user id.
func (t *Tokens) Parse(raw string) (uint, *Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return 0, nil, err
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, nil, errors.New("token subject is not a user id")
	}
	return uint(id), claims, nil
}

// RequireToken rejects requests without a valid "Authorization: Bearer <token>" header
// and stores the token's user id in c.Locals("userID") for the handler.
func RequireToken(tokens *Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokens == nil {
			return apperr.New(apperr.Unauthorized, "Token authentication is disabled")
		}

		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return apperr.New(apperr.Unauthorized, "Missing or invalid authorization header")
		}

		userID, _, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return apperr.Wrap(apperr.Unauthorized, "Invalid token", err)
		}

		c.Locals("userID", userID)
		return c.Next()
	}
}

// UserID reads the id stored by RequireToken.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok
}
