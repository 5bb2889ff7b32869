package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/energydatahub/energyhub/internal/auth"
	"github.com/energydatahub/energyhub/pkg/validation"
)

// AuthHandler authenticates the single admin account configured under
// api.admin_username / api.admin_password_hash.
type AuthHandler struct {
	authService  *auth.Service
	username     string
	passwordHash string
}

func NewAuthHandler(authService *auth.Service, username, passwordHash string) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		username:     username,
		passwordHash: passwordHash,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Username  string `json:"username"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	req.Username = validation.SanitizeString(req.Username)
	if err := validation.ValidateUsername(req.Username); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.passwordHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin account not configured"})
		return
	}

	if req.Username != h.username || !auth.CheckPassword(req.Password, h.passwordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.authService.GenerateToken(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	expiresIn := int(h.authService.TokenDuration().Seconds())

	// Set secure HTTP-only cookie with the token, same lifetime as the JWT
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		"auth_token", // name
		token,        // value
		expiresIn,    // maxAge
		"/",          // path
		"",           // domain (empty = current domain)
		true,         // secure (HTTPS only)
		true,         // httpOnly (not accessible via JavaScript)
	)

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: expiresIn,
		Username:  req.Username,
	})
}
