package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"libraryCirculation/internal/testutil"
	"libraryCirculation/models"
)

const testSecret = "test-secret"

func TestIssueAndParse(t *testing.T) {
	p := &Principal{ID: 3, Name: "alice", Role: models.RoleStaff, Campus: "Diani"}
	tok, err := Issue(testSecret, p, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := Parse(tok, testSecret)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if *got != *p {
		t.Fatalf("principal mismatch: %+v", got)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, 1, "bob", "admin", "Kamulu", time.Hour)
	if _, err := Parse(tok, "wrong"); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestParse_Expired(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, 1, "bob", "admin", "Kamulu", -time.Minute)
	if _, err := Parse(tok, testSecret); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestParse_ClaimsValidation(t *testing.T) {
	// Missing name and an unknown role are both rejected.
	tok := testutil.GenerateJWTHS256(t, testSecret, 1, "", "admin", "Kamulu", time.Hour)
	if _, err := Parse(tok, testSecret); err == nil {
		t.Fatalf("expected invalid claims error for empty name")
	}
	tok = testutil.GenerateJWTHS256(t, testSecret, 1, "eve", "root", "Kamulu", time.Hour)
	if _, err := Parse(tok, testSecret); err == nil {
		t.Fatalf("expected invalid claims error for unknown role")
	}
}

func TestParseBearer(t *testing.T) {
	if tok, err := ParseBearer("Bearer abc"); err != nil || tok != "abc" {
		t.Fatalf("ParseBearer: %q %v", tok, err)
	}
	if _, err := ParseBearer(""); err == nil {
		t.Fatalf("expected error for missing header")
	}
	if _, err := ParseBearer("Basic abc"); err == nil {
		t.Fatalf("expected error for non-bearer scheme")
	}
}

func TestRequireAdmin(t *testing.T) {
	if _, err := RequireAdmin(context.Background()); err == nil {
		t.Fatalf("expected error without principal")
	}
	staff := WithPrincipal(context.Background(), &Principal{ID: 2, Name: "s", Role: models.RoleStaff})
	if _, err := RequireAdmin(staff); err == nil {
		t.Fatalf("expected forbidden for staff")
	}
	admin := WithPrincipal(context.Background(), &Principal{ID: 1, Name: "a", Role: models.RoleAdmin})
	if p, err := RequireAdmin(admin); err != nil || p.ID != 1 {
		t.Fatalf("RequireAdmin(admin): %+v %v", p, err)
	}
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(h, "s3cret") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(h, "other") {
		t.Fatalf("expected mismatch")
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", Middleware(testSecret))
	g.GET("/me", func(c *gin.Context) {
		p, _ := FromContext(c.Request.Context())
		c.String(http.StatusOK, p.Name)
	})
	g.GET("/admin", AdminOnly(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestMiddleware(t *testing.T) {
	r := newTestRouter()
	staffTok := testutil.GenerateJWTHS256(t, testSecret, 2, "sam", "staff", "Diani", time.Hour)
	adminTok := testutil.GenerateJWTHS256(t, testSecret, 1, "ada", "admin", "Diani", time.Hour)

	cases := []struct {
		name   string
		path   string
		cookie string
		bearer string
		want   int
	}{
		{"no token", "/me", "", "", http.StatusUnauthorized},
		{"garbage token", "/me", "nope", "", http.StatusUnauthorized},
		{"cookie", "/me", staffTok, "", http.StatusOK},
		{"bearer", "/me", "", staffTok, http.StatusOK},
		{"staff on admin route", "/admin", staffTok, "", http.StatusForbidden},
		{"admin on admin route", "/admin", "", adminTok, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tc.cookie})
			}
			if tc.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tc.bearer)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}
