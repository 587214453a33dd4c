package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// TokenStorage persists tokens as JSON files under a directory.
type TokenStorage struct {
	dir string
}

// NewTokenStorage creates a storage rooted at dir.
func NewTokenStorage(dir string) *TokenStorage {
	return &TokenStorage{dir: dir}
}

func (s *TokenStorage) path(provider string) string {
	return filepath.Join(s.dir, filepath.Base(provider)+"_token.json")
}

// Save writes token for provider with owner-only permissions.
func (s *TokenStorage) Save(provider string, token *oauth2.Token) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	return os.WriteFile(s.path(provider), data, 0600)
}

// Load reads the token saved for provider.
func (s *TokenStorage) Load(provider string) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path(provider)) // #nosec G304 -- provider is sanitized
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &token, nil
}

// Client returns an HTTP client authorized with the saved token. Refreshed
// tokens are written back so the next run does not need to refresh again.
func (s *TokenStorage) Client(ctx context.Context, cfg *oauth2.Config, provider string) (*http.Client, error) {
	token, err := s.Load(provider)
	if err != nil {
		return nil, err
	}

	src := &savingSource{
		base:     cfg.TokenSource(ctx, token),
		storage:  s,
		provider: provider,
		last:     token.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, src)), nil
}

type savingSource struct {
	base     oauth2.TokenSource
	storage  *TokenStorage
	provider string

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		if err := s.storage.Save(s.provider, token); err != nil {
			return nil, err
		}
		s.last = token.AccessToken
	}
	return token, nil
}
