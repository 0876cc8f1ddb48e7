package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libraryCirculation/internal/accounts"
	"libraryCirculation/internal/auth"
	"libraryCirculation/internal/liberr"
	"libraryCirculation/models"
)

type registerRequest struct {
	accounts.NewUser
	AdminCode string `json:"adminCode"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Campus   string `json:"campus" binding:"required"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	u, err := h.Accounts.Register(c.Request.Context(), req.NewUser, req.AdminCode)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.startSession(c, u)
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	u, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password, req.Campus)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.startSession(c, u)
}

// startSession issues a token for u, sets it as an HTTP-only cookie and
// echoes the token and user in the body.
func (h *handler) startSession(c *gin.Context, u *models.User) {
	ttl := h.Config.Auth.TokenTTL
	tok, err := auth.Issue(h.Config.Auth.JWTSecret, auth.PrincipalFor(u), ttl, h.Now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, tok, int(ttl.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u, "token": tok})
}

func (h *handler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handler) me(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		h.fail(c, liberr.Unauthenticated("authentication required"))
		return
	}
	u, err := h.Accounts.Me(c.Request.Context(), who)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *handler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.Accounts.ResetPassword(c.Request.Context(), req.Email, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successfully"})
}

func (h *handler) listUsers(c *gin.Context) {
	who, _ := caller(c)
	users, err := h.Accounts.ListUsers(c.Request.Context(), who, c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *handler) createUser(c *gin.Context) {
	var req accounts.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	who, _ := caller(c)
	u, err := h.Accounts.CreateUser(c.Request.Context(), who, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}
