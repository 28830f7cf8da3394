package email

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	gmailv1 "google.golang.org/api/gmail/v1"

	"mailsorter/internal/model"
	"mailsorter/internal/service/normalize"
	"mailsorter/pkg/metrics"
	"mailsorter/pkg/util"
)

const (
	DefaultMaxResults = 15
	// Gmail 的 messages.list 单页上限
	MaxMaxResults = 500
)

// Fetcher returns full-format provider messages in recency order.
type Fetcher interface {
	FetchRecent(ctx context.Context, accessToken string, maxResults int64) ([]*gmailv1.Message, error)
}

type Service struct {
	fetcher    Fetcher
	defaultMax int
	logger     *zap.Logger
}

// NewService builds the retrieval service. defaultMax <= 0 falls back to 15.
func NewService(fetcher Fetcher, defaultMax int, logger *zap.Logger) *Service {
	if defaultMax <= 0 {
		defaultMax = DefaultMaxResults
	}
	return &Service{fetcher: fetcher, defaultMax: defaultMax, logger: logger}
}

// Fetch retrieves and normalizes the most recent messages. A nil or
// non-positive maxResults uses the default.
func (s *Service) Fetch(ctx context.Context, accessToken string, maxResults *int) ([]model.Email, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("missing access token: %w", util.ErrUnauthorized)
	}

	limit := s.defaultMax
	if maxResults != nil && *maxResults > 0 {
		limit = *maxResults
	}
	if limit > MaxMaxResults {
		return nil, fmt.Errorf("maxResults %d exceeds %d: %w", limit, MaxMaxResults, util.ErrInvalidInput)
	}

	msgs, err := s.fetcher.FetchRecent(ctx, accessToken, int64(limit))
	if err != nil {
		metrics.AddEmailFetched("failed", 1)
		return nil, err
	}

	emails := make([]model.Email, 0, len(msgs))
	for _, msg := range msgs {
		e, err := normalize.Normalize(msg)
		if err != nil {
			metrics.AddEmailFetched("failed", 1)
			// 上游数据不合法属于服务端错误，不向调用方暴露为 400
			return nil, fmt.Errorf("provider returned malformed data: %v", err)
		}
		emails = append(emails, e)
	}
	metrics.AddEmailFetched("success", len(emails))

	s.logger.Info("emails fetched", zap.Int("requested", limit), zap.Int("count", len(emails)))
	return emails, nil
}
