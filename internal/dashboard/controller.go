package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mailsorter/internal/model"
	"mailsorter/internal/storage"
	"mailsorter/pkg/util"
)

var (
	ErrBusy             = errors.New("another operation is in progress")
	ErrNotAuthenticated = fmt.Errorf("%s: %w", msgNotAuthenticated, util.ErrUnauthorized)
	ErrNoEmails         = errors.New(msgFetchFirst)
	ErrAPIKeyRequired   = errors.New("OpenAI API key is required")
	ErrUnknownFilter    = fmt.Errorf("unknown filter: %w", util.ErrInvalidInput)
)

// API is the server surface the controller needs.
type API interface {
	FetchEmails(ctx context.Context, accessToken string, maxResults int) ([]model.Email, error)
	Classify(ctx context.Context, emails []model.Email, apiKey string) ([]model.Email, error)
}

// Controller serializes transitions on State. Network calls run without the
// lock held; the phase keeps a second fetch or classify out meanwhile.
type Controller struct {
	mu     sync.Mutex
	state  State
	loaded bool

	api    API
	store  storage.Store
	logger *zap.Logger
}

func NewController(api API, store storage.Store, logger *zap.Logger) *Controller {
	return &Controller{state: NewState(), api: api, store: store, logger: logger}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load rehydrates the email list and key from storage. It runs at most once
// and is implied by every other operation.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

func (c *Controller) loadLocked(ctx context.Context) error {
	if c.loaded {
		return nil
	}

	key, _, err := c.store.Get(ctx, storage.KeyAPIKey)
	if err != nil {
		return fmt.Errorf("load %s: %w", storage.KeyAPIKey, err)
	}

	var emails []model.Email
	raw, ok, err := c.store.Get(ctx, storage.KeyEmails)
	if err != nil {
		return fmt.Errorf("load %s: %w", storage.KeyEmails, err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &emails); err != nil {
			// 本地数据损坏时视为无历史状态
			c.logger.Warn("stored emails are not valid JSON, starting empty", zap.Error(err))
			emails = nil
		}
	}

	c.state = Rehydrate(emails, key)
	c.loaded = true
	return nil
}

// Fetch replaces the email list with the newest messages from the server.
func (c *Controller) Fetch(ctx context.Context, accessToken string, maxResults int) error {
	c.mu.Lock()
	if err := c.loadLocked(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	next, ok := c.state.BeginFetch(accessToken)
	c.state = next
	c.mu.Unlock()
	if !ok {
		if next.Busy() {
			return ErrBusy
		}
		return ErrNotAuthenticated
	}

	emails, err := c.api.FetchEmails(ctx, accessToken, maxResults)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.FinishFetch(emails, err)
	if err != nil {
		return err
	}
	return c.persistEmailsLocked(ctx)
}

// Classify labels the current list with the stored key.
func (c *Controller) Classify(ctx context.Context) error {
	c.mu.Lock()
	if err := c.loadLocked(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	wasBusy := c.state.Busy()
	next, ok := c.state.BeginClassify()
	c.state = next
	emails, key := next.Emails, next.APIKey
	c.mu.Unlock()
	if !ok {
		switch {
		case wasBusy:
			return ErrBusy
		case next.NeedsAPIKey:
			return ErrAPIKeyRequired
		default:
			return ErrNoEmails
		}
	}

	out, err := c.api.Classify(ctx, emails, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.FinishClassify(out, err)
	if err != nil {
		return err
	}
	return c.persistEmailsLocked(ctx)
}

// SetAPIKey stores the model key. An empty key removes it.
func (c *Controller) SetAPIKey(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(ctx); err != nil {
		return err
	}

	c.state = c.state.SetAPIKey(key)
	if key == "" {
		return c.store.Delete(ctx, storage.KeyAPIKey)
	}
	return c.store.Set(ctx, storage.KeyAPIKey, key)
}

// SelectFilter changes the derived view; it never touches the network.
func (c *Controller) SelectFilter(filter string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, ok := c.state.SelectFilter(filter)
	if !ok {
		return fmt.Errorf("%q: %w", filter, ErrUnknownFilter)
	}
	c.state = next
	return nil
}

func (c *Controller) persistEmailsLocked(ctx context.Context) error {
	b, err := json.Marshal(c.state.Emails)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, storage.KeyEmails, string(b)); err != nil {
		c.logger.Warn("failed to persist emails", zap.Error(err))
		return fmt.Errorf("persist emails: %w", err)
	}
	return nil
}
