// Package classify assigns one of the six fixed categories to each email by
// asking a hosted model, one request per email.
package classify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailsorter/internal/model"
	"mailsorter/pkg/logger"
	"mailsorter/pkg/metrics"
	"mailsorter/pkg/util"
)

var ErrMissingAPIKey = fmt.Errorf("model API key is required: %w", util.ErrUnauthorized)

// Completer sends a single prompt to a hosted model and returns its raw reply.
type Completer interface {
	Complete(ctx context.Context, apiKey, prompt string) (string, error)
}

type Classifier struct {
	completer Completer
	logger    *zap.Logger
}

func NewClassifier(completer Completer, logger *zap.Logger) *Classifier {
	return &Classifier{
		completer: completer,
		logger:    logger,
	}
}

// Classify labels every email concurrently and returns them in input order,
// each with IsClassified set. A failure for one email downgrades that email
// to General and never fails the batch.
func (c *Classifier) Classify(ctx context.Context, emails []model.Email, apiKey string) ([]model.Email, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	out := make([]model.Email, len(emails))
	if len(emails) == 0 {
		return out, nil
	}

	log := logger.WithTrace(ctx, c.logger)

	// 每个 goroutine 只写自己的下标，结果顺序与输入一致
	var g errgroup.Group
	for i := range emails {
		g.Go(func() error {
			out[i] = c.classifyOne(ctx, log, emails[i], apiKey)
			return nil
		})
	}
	_ = g.Wait()

	return out, nil
}

func (c *Classifier) classifyOne(ctx context.Context, log *zap.Logger, email model.Email, apiKey string) model.Email {
	email.IsClassified = true

	reply, err := c.completer.Complete(ctx, apiKey, BuildPrompt(email))
	if err != nil {
		_, errType := util.ClassifyError(err)
		log.Warn("Failed to classify email, defaulting to General",
			zap.String("email_id", email.ID),
			zap.String("error_type", errType),
			zap.Error(err),
		)
		metrics.IncrementEmailClassified(string(model.CategoryGeneral), "failed")
		email.Category = model.CategoryGeneral
		return email
	}

	category, ok := ResolveCategory(reply)
	if !ok {
		log.Debug("Model reply is not a category, defaulting to General",
			zap.String("email_id", email.ID),
			zap.String("reply", truncateForLog(reply)),
		)
		metrics.IncrementEmailClassified(string(category), "invalid_reply")
	} else {
		metrics.IncrementEmailClassified(string(category), "success")
	}
	email.Category = category
	return email
}

// ResolveCategory trims the reply and matches it exactly against the six
// labels. Anything else becomes General; ok reports whether it matched.
func ResolveCategory(reply string) (model.Category, bool) {
	if c, ok := model.ParseCategory(strings.TrimSpace(reply)); ok {
		return c, true
	}
	return model.CategoryGeneral, false
}

func truncateForLog(s string) string {
	const max = 80
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

