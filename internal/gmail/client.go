// Package gmail retrieves recent messages from the Gmail REST API on behalf
// of a signed-in user.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"mailsorter/pkg/metrics"
	"mailsorter/pkg/otel"
	"mailsorter/pkg/util"
)

const userID = "me"

// Client is stateless; the access token travels with each call.
type Client struct {
	endpoint string
	base     http.RoundTripper
	logger   *zap.Logger
}

type Option func(*Client)

// WithEndpoint points the client at a different API root (tests, proxies).
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithTransport sets the round tripper underneath the oauth2 transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

func NewClient(logger *zap.Logger, opts ...Option) *Client {
	c := &Client{logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) service(ctx context.Context, accessToken string) (*gmailv1.Service, error) {
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   c.base,
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	return gmailv1.NewService(ctx, opts...)
}

// FetchRecent lists the newest maxResults message ids, then fetches each one
// in full format concurrently. The result keeps list order. Any failed get
// fails the whole call.
func (c *Client) FetchRecent(ctx context.Context, accessToken string, maxResults int64) ([]*gmailv1.Message, error) {
	ctx, span := otel.StartSpan(ctx, "gmail.FetchRecent")
	defer span.End()
	span.SetAttributes(attribute.Int64("gmail.max_results", maxResults))

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	start := time.Now()
	list, err := svc.Users.Messages.List(userID).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		metrics.RecordProviderCallLatency("list", "error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, wrapProviderError("list messages", err)
	}
	metrics.RecordProviderCallLatency("list", "success", time.Since(start))

	out := make([]*gmailv1.Message, len(list.Messages))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range list.Messages {
		g.Go(func() error {
			start := time.Now()
			msg, err := svc.Users.Messages.Get(userID, ref.Id).Format("full").Context(gctx).Do()
			if err != nil {
				metrics.RecordProviderCallLatency("get", "error", time.Since(start))
				return wrapProviderError("get message "+ref.Id, err)
			}
			metrics.RecordProviderCallLatency("get", "success", time.Since(start))
			out[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get failed")
		c.logger.Warn("gmail fetch failed", zap.Int("listed", len(out)), zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("gmail.fetched", len(out)))
	return out, nil
}

// wrapProviderError 将 401 和权限不足的 403 归类为未授权，其余保留原始 googleapi 错误
func wrapProviderError(op string, err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && util.IsProviderAuthError(gErr) {
		return fmt.Errorf("%s: %w: %w", op, util.ErrUnauthorized, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
