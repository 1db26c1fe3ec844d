package http

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleAdmin may manage communities and trigger assignments.
const RoleAdmin = "admin"

const claimsLocal = "claims"

var errInvalidToken = errors.New("invalid token")

// Claims are the access token claims issued by the account service. The
// subject is the numeric user id.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the token subject.
func (c *Claims) UserID() (int64, bool) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	return id, err == nil
}

// TokenVerifier validates HS256 bearer tokens.
type TokenVerifier struct {
	key    []byte
	issuer string
}

// NewTokenVerifier returns nil for an empty secret, which disables
// authentication: optional auth becomes a no-op and admin routes reject
// every request.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	if secret == "" {
		return nil
	}
	return &TokenVerifier{key: []byte(secret), issuer: issuer}
}

// Issue signs a token for subject. Used by tooling and tests.
func (v *TokenVerifier) Issue(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(v.key)
}

// Verify parses and validates a raw token.
func (v *TokenVerifier) Verify(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token has expired")
		}
		return nil, errInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	const prefix = "Bearer "
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// OptionalAuth attaches claims when a bearer token is present. A malformed
// or expired token is still rejected.
func OptionalAuth(v *TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c)
		if !ok || v == nil {
			return c.Next()
		}
		claims, err := v.Verify(raw)
		if err != nil {
			return errUnauthorized(c, err.Error())
		}
		c.Locals(claimsLocal, claims)
		return c.Next()
	}
}

// RequireRole rejects requests without a valid token carrying role.
func RequireRole(v *TokenVerifier, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if v == nil {
			return errUnauthorized(c, "authentication is not configured")
		}
		raw, ok := bearerToken(c)
		if !ok {
			return errUnauthorized(c, "missing bearer token")
		}
		claims, err := v.Verify(raw)
		if err != nil {
			return errUnauthorized(c, err.Error())
		}
		if claims.Role != role {
			return errForbidden(c, "requires role "+role)
		}
		c.Locals(claimsLocal, claims)
		return c.Next()
	}
}

func claimsFrom(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(claimsLocal).(*Claims)
	return claims
}
