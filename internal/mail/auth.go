package mail

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/echomail-ai/echomail/internal/storage"
)

// tokenPath is the storage key for the default account's OAuth token.
var tokenPath = []string{"google", "token", "default"}

// TokenStore persists OAuth tokens through the JSON file store.
type TokenStore struct {
	store *storage.Store
}

// NewTokenStore creates a token store rooted at dir.
func NewTokenStore(dir string) *TokenStore {
	return &TokenStore{store: storage.New(dir)}
}

// Load retrieves the saved token. Returns ErrNotAuthenticated when no
// token has been saved yet.
func (s *TokenStore) Load(ctx context.Context) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := s.store.Get(ctx, tokenPath, &token); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	return &token, nil
}

// Save persists a token.
func (s *TokenStore) Save(ctx context.Context, token *oauth2.Token) error {
	if err := s.store.Put(ctx, tokenPath, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// oauthConfig builds the OAuth2 client config for the Gmail scopes.
func oauthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			gmail.GmailModifyScope,
			gmail.GmailLabelsScope,
			gmail.GmailSendScope,
		},
	}
}

// persistingTokenSource wraps an oauth2.TokenSource and writes refreshed
// tokens back to the store so restarts keep the newest access token.
type persistingTokenSource struct {
	ctx   context.Context
	src   oauth2.TokenSource
	store *TokenStore

	mu   sync.Mutex
	last string
}

func newPersistingTokenSource(ctx context.Context, cfg *oauth2.Config, store *TokenStore, token *oauth2.Token) *persistingTokenSource {
	return &persistingTokenSource{
		ctx:   ctx,
		src:   cfg.TokenSource(ctx, token),
		store: store,
		last:  token.AccessToken,
	}
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	changed := token.AccessToken != p.last
	if changed {
		p.last = token.AccessToken
	}
	p.mu.Unlock()

	if changed {
		// Best effort; a failed write only costs a refresh on restart.
		_ = p.store.Save(p.ctx, token)
	}
	return token, nil
}

// forceRefresh exchanges the refresh token for a fresh access token,
// bypassing any cached one, and persists the result.
func forceRefresh(ctx context.Context, cfg *oauth2.Config, store *TokenStore, token *oauth2.Token) (*oauth2.Token, error) {
	if token.RefreshToken == "" {
		return nil, ErrNotAuthenticated
	}

	stale := &oauth2.Token{RefreshToken: token.RefreshToken}
	fresh, err := cfg.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = token.RefreshToken
	}

	if err := store.Save(ctx, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}
