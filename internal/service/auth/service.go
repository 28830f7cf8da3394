// Package auth runs the Google OAuth code flow and turns the provider tokens
// into a signed session token for the browser.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"

	"mailsorter/pkg/config"
	"mailsorter/pkg/util"
)

const defaultSessionTTL = 24 * time.Hour

var ErrMissingCode = fmt.Errorf("missing authorization code: %w", util.ErrInvalidInput)

// Scopes requested at sign-in. Read-only mailbox access is all retrieval needs.
var Scopes = []string{"openid", "email", "profile", gmailv1.GmailReadonlyScope}

type Service struct {
	oauth  *oauth2.Config
	secret string
	ttl    time.Duration
}

type Option func(*Service)

// WithEndpoint replaces Google's OAuth endpoint.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(s *Service) { s.oauth.Endpoint = ep }
}

func NewService(g config.GoogleConfig, sess config.SessionConfig, opts ...Option) *Service {
	ttl := time.Duration(sess.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	s := &Service{
		oauth: &oauth2.Config{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			RedirectURL:  g.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
		secret: sess.Secret,
		ttl:    ttl,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewState returns a random OAuth state value.
func (s *Service) NewState() string {
	return uuid.NewString()
}

// LoginURL builds the consent URL. Offline access plus forced consent makes
// Google issue a refresh token on every sign-in.
func (s *Service) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the authorization code for provider tokens and returns a
// signed session token carrying them.
func (s *Service) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", ErrMissingCode
	}
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			return "", fmt.Errorf("code exchange rejected: %w: %w", util.ErrUnauthorized, err)
		}
		return "", fmt.Errorf("code exchange failed: %w", err)
	}

	session, err := util.GenerateSessionJWT(tok.AccessToken, tok.RefreshToken, emailFromIDToken(tok), s.ttl, s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return session, nil
}

// Session validates a session token and returns its claims.
func (s *Service) Session(token string) (*util.SessionClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("missing session: %w", util.ErrUnauthorized)
	}
	claims, err := util.ParseSessionJWT(token, s.secret)
	if err != nil {
		return nil, fmt.Errorf("invalid session: %w: %w", util.ErrUnauthorized, err)
	}
	return claims, nil
}

// emailFromIDToken reads the email claim without verifying the signature; the
// id_token came straight from the token endpoint over TLS.
func emailFromIDToken(tok *oauth2.Token) string {
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}
