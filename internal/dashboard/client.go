package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	contracts "mailsorter/contracts/api"
	"mailsorter/internal/model"
	"mailsorter/pkg/trace"
	"mailsorter/pkg/util"
)

// Session is the signed-in user as reported by the server.
type Session = contracts.SessionResponse

// APIError is a non-2xx reply carrying the server's {"error": ...} text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Unwrap lets callers match 401s against util.ErrUnauthorized.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return util.ErrUnauthorized
	}
	if e.Status == http.StatusBadRequest {
		return util.ErrInvalidInput
	}
	return nil
}

// Client talks to the mailsorter HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) Session(ctx context.Context, sessionToken string) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodGet, "/api/auth/session", sessionToken, nil, &s)
	return s, err
}

// FetchEmails calls POST /api/emails. maxResults <= 0 leaves the server default.
func (c *Client) FetchEmails(ctx context.Context, accessToken string, maxResults int) ([]model.Email, error) {
	body := contracts.FetchEmailsRequest{AccessToken: accessToken}
	if maxResults > 0 {
		body.MaxResults = &maxResults
	}
	var resp contracts.EmailsResponse
	if err := c.do(ctx, http.MethodPost, "/api/emails", "", body, &resp); err != nil {
		return nil, err
	}
	return resp.Emails, nil
}

func (c *Client) Classify(ctx context.Context, emails []model.Email, apiKey string) ([]model.Email, error) {
	body := contracts.ClassifyRequest{Emails: emails, OpenAIKey: apiKey}
	var resp contracts.EmailsResponse
	if err := c.do(ctx, http.MethodPost, "/api/classify", "", body, &resp); err != nil {
		return nil, err
	}
	return resp.Emails, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if id := trace.FromContext(ctx); id != "" {
		req.Header.Set(trace.HeaderName(), id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e contracts.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
