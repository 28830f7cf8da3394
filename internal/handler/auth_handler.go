package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	contracts "mailsorter/contracts/api"
	"mailsorter/pkg/util"
)

const (
	SessionCookie = "mailsorter_session"
	stateCookie   = "mailsorter_oauth_state"
	stateMaxAge   = 10 * 60
)

var errStateMismatch = errors.New("oauth state mismatch")

type SessionReader interface {
	Session(token string) (*util.SessionClaims, error)
}

type AuthService interface {
	SessionReader
	NewState() string
	LoginURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

type AuthHandler struct {
	auth         AuthService
	secure       bool
	redirectPath string
	logger       *zap.Logger
}

func NewAuthHandler(auth AuthService, secureCookies bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, secure: secureCookies, redirectPath: "/", logger: logger}
}

// Login handles GET /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	state := h.auth.NewState()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, stateMaxAge, "/", "", h.secure, true)
	c.Redirect(http.StatusFound, h.auth.LoginURL(state))
}

// Callback handles GET /api/auth/callback
func (h *AuthHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		abortWithError(c, h.logger, fmt.Errorf("consent denied (%s): %w", errParam, util.ErrUnauthorized), "Sign-in was cancelled")
		return
	}

	want, err := c.Cookie(stateCookie)
	if err != nil || want == "" || want != c.Query("state") {
		abortWithError(c, h.logger, fmt.Errorf("%w: %w", errStateMismatch, util.ErrInvalidInput), "Invalid sign-in state")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", h.secure, true)

	session, err := h.auth.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		abortWithError(c, h.logger, err, fallbackFor(err, "Sign-in failed", "Invalid sign-in request", "Sign-in failed"))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, session, 0, "/", "", h.secure, true)
	c.Redirect(http.StatusFound, h.redirectPath)
}

// Session handles GET /api/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	claims, err := h.auth.Session(sessionToken(c))
	if err != nil {
		abortWithError(c, h.logger, err, "Not authenticated")
		return
	}

	resp := contracts.SessionResponse{
		AccessToken: claims.AccessToken,
		Email:       claims.Email,
	}
	if claims.ExpiresAt != nil {
		resp.Expires = claims.ExpiresAt.Time.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", h.secure, true)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// sessionToken reads the session from the cookie, then the bearer header.
func sessionToken(c *gin.Context) string {
	if v, err := c.Cookie(SessionCookie); err == nil && v != "" {
		return v
	}
	return util.ExtractToken(c.Request)
}
