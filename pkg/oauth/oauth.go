// Package oauth provides the OAuth 2.0 browser flow and token persistence for duofeed.
package oauth

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
)

var (
	// ErrTokenNotFound is returned when no token has been saved for a provider.
	ErrTokenNotFound = errors.New("token not found")
	// ErrInvalidState is returned when the callback state does not match the one sent.
	ErrInvalidState = errors.New("invalid OAuth state")
	// ErrAuthorizationDenied is returned when the provider reports an error on the callback.
	ErrAuthorizationDenied = errors.New("authorization denied")
	// ErrMissingCode is returned when the callback carries no authorization code.
	ErrMissingCode = errors.New("missing authorization code")
)

// GmailConfig returns the OAuth client configuration for read-only Gmail access.
func GmailConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{gmailapi.GmailReadonlyScope},
	}
}

// NewState returns an unguessable value for the state parameter.
func NewState() string {
	return uuid.NewString()
}

// AuthURL returns the consent URL. Offline access is requested so a refresh token is issued.
func AuthURL(cfg *oauth2.Config, state string) string {
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}
