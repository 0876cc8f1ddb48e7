package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"libraryCirculation/internal/liberr"
)

// CookieName is the cookie carrying the session token.
const CookieName = "token"

// TokenFromRequest returns the session token from the cookie or, failing that,
// from the Authorization header.
func TokenFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return ParseBearer(r.Header.Get("Authorization"))
}

// Middleware validates the session token and stores the principal in the
// request context. Requests without a valid token are rejected with 401.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := TokenFromRequest(c.Request)
		if err != nil {
			abort(c, liberr.Unauthenticated("authentication required"))
			return
		}
		p, err := Parse(tok, secret)
		if err != nil {
			abort(c, liberr.Unauthenticated("invalid or expired token"))
			return
		}
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// AdminOnly rejects callers that are not admins with 403. It must run after
// Middleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := RequireAdmin(c.Request.Context()); err != nil {
			abort(c, err)
			return
		}
		c.Next()
	}
}

// RequirePrincipal returns the authenticated principal or an Unauthenticated error.
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, liberr.Unauthenticated("authentication required")
	}
	return p, nil
}

// RequireAdmin returns the principal if it is an admin.
func RequireAdmin(ctx context.Context) (*Principal, error) {
	p, err := RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if !p.Caller().IsAdmin() {
		return nil, liberr.Forbidden("admin access required")
	}
	return p, nil
}

func abort(c *gin.Context, err error) {
	status := http.StatusUnauthorized
	if liberr.Is(err, liberr.KindForbidden) {
		status = http.StatusForbidden
	}
	c.AbortWithStatusJSON(status, gin.H{"error": liberr.ReasonOf(err), "kind": liberr.KindOf(err).String()})
}
