package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"libraryCirculation/internal/policy"
	"libraryCirculation/models"
)

// Principal represents the authenticated caller from JWT.
type Principal struct {
	ID     int64
	Name   string
	Role   models.Role
	Campus string
}

// Caller converts the principal into the identity the access policy works with.
func (p *Principal) Caller() policy.Caller {
	return policy.Caller{ID: p.ID, Name: p.Name, Role: p.Role, Campus: p.Campus}
}

// PrincipalFor builds the principal of a stored user.
func PrincipalFor(u *models.User) *Principal {
	return &Principal{ID: u.ID, Name: u.Name, Role: u.Role, Campus: u.Campus}
}

type principalKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from context (if any).
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

type claims struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Campus string `json:"campus"`
	jwt.RegisteredClaims
}

// Issue signs a session token for p valid for ttl from now.
func Issue(secret string, p *Principal, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	if p == nil || p.ID == 0 {
		return "", errors.New("principal is required")
	}
	c := claims{
		ID:     p.ID,
		Name:   p.Name,
		Role:   string(p.Role),
		Campus: p.Campus,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseBearer extracts the token from an "Authorization: Bearer <token>" value.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// Parse validates a token and extracts its principal.
func Parse(tokenStr string, secret string) (*Principal, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}
	c, _ := tok.Claims.(*claims)
	if c == nil || c.ID == 0 || c.Name == "" || !models.Role(c.Role).Valid() {
		return nil, errors.New("invalid claims")
	}
	return &Principal{ID: c.ID, Name: c.Name, Role: models.Role(c.Role), Campus: c.Campus}, nil
}
