package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	contracts "mailsorter/contracts/api"
	"mailsorter/internal/model"
	"mailsorter/pkg/util"
)

type EmailFetcher interface {
	Fetch(ctx context.Context, accessToken string, maxResults *int) ([]model.Email, error)
}

type EmailHandler struct {
	emails   EmailFetcher
	sessions SessionReader
	logger   *zap.Logger
}

func NewEmailHandler(emails EmailFetcher, sessions SessionReader, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{emails: emails, sessions: sessions, logger: logger}
}

// FetchEmails handles POST /api/emails
func (h *EmailHandler) FetchEmails(c *gin.Context) {
	var req contracts.FetchEmailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.logger, fmt.Errorf("decode request: %w: %w", util.ErrInvalidInput, err), "Invalid request body")
		return
	}

	// 请求体未携带 token 时回退到会话 cookie
	if req.AccessToken == "" {
		if claims, err := h.sessions.Session(sessionToken(c)); err == nil {
			req.AccessToken = claims.AccessToken
		}
	}

	emails, err := h.emails.Fetch(c.Request.Context(), req.AccessToken, req.MaxResults)
	if err != nil {
		abortWithError(c, h.logger, err, fallbackFor(err, "Not authenticated", "Invalid request", "Failed to fetch emails"))
		return
	}

	c.JSON(http.StatusOK, contracts.EmailsResponse{Emails: emails})
}

// fallbackFor picks the client-facing text by status class.
func fallbackFor(err error, unauthorized, invalid, internal string) string {
	switch status, _ := util.ClassifyError(err); status {
	case http.StatusUnauthorized:
		return unauthorized
	case http.StatusBadRequest:
		return invalid
	default:
		return internal
	}
}
