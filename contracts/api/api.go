// Package api holds the JSON bodies exchanged between the browser or CLI and
// the HTTP API.
package api

import "mailsorter/internal/model"

// FetchEmailsRequest POST /api/emails 的请求体
type FetchEmailsRequest struct {
	AccessToken string `json:"accessToken"`
	MaxResults  *int   `json:"maxResults,omitempty"`
}

// ClassifyRequest POST /api/classify 的请求体
type ClassifyRequest struct {
	Emails    []model.Email `json:"emails"`
	OpenAIKey string        `json:"openaiKey"`
}

// EmailsResponse is returned by both email endpoints.
type EmailsResponse struct {
	Emails []model.Email `json:"emails"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionResponse GET /api/auth/session 的响应
type SessionResponse struct {
	AccessToken string `json:"accessToken"`
	Email       string `json:"email"`
	Expires     string `json:"expires,omitempty"`
}
