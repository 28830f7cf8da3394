package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	contracts "mailsorter/contracts/api"
	"mailsorter/internal/model"
	"mailsorter/pkg/util"
)

type EmailClassifier interface {
	Classify(ctx context.Context, emails []model.Email, apiKey string) ([]model.Email, error)
}

type ClassifyHandler struct {
	classifier EmailClassifier
	logger     *zap.Logger
}

func NewClassifyHandler(classifier EmailClassifier, logger *zap.Logger) *ClassifyHandler {
	return &ClassifyHandler{classifier: classifier, logger: logger}
}

// classifyRequest defers decoding the list so the key can be checked first.
type classifyRequest struct {
	Emails    json.RawMessage `json:"emails"`
	OpenAIKey string          `json:"openaiKey"`
}

// Classify handles POST /api/classify. The key is checked before the email
// list so a missing key is always reported as 401.
func (h *ClassifyHandler) Classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.logger, fmt.Errorf("decode request: %w: %w", util.ErrInvalidInput, err), "Invalid request body")
		return
	}

	if req.OpenAIKey == "" {
		abortWithError(c, h.logger, fmt.Errorf("missing model key: %w", util.ErrUnauthorized), "OpenAI API key is required")
		return
	}

	emails, err := decodeEmails(req.Emails)
	if err != nil {
		abortWithError(c, h.logger, err, "Emails array is required")
		return
	}

	out, err := h.classifier.Classify(c.Request.Context(), emails, req.OpenAIKey)
	if err != nil {
		abortWithError(c, h.logger, err, fallbackFor(err, "Invalid OpenAI API key", "Invalid request", "Failed to classify emails"))
		return
	}

	c.JSON(http.StatusOK, contracts.EmailsResponse{Emails: out})
}

func decodeEmails(raw json.RawMessage) ([]model.Email, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("emails missing: %w", util.ErrInvalidInput)
	}
	var emails []model.Email
	if err := json.Unmarshal(raw, &emails); err != nil {
		return nil, fmt.Errorf("emails is not an email array: %w: %w", util.ErrInvalidInput, err)
	}
	for i, e := range emails {
		if e.ID == "" {
			return nil, fmt.Errorf("email %d has no id: %w", i, util.ErrInvalidInput)
		}
	}
	return emails, nil
}
