package tokensource

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

const (
	keyringService = "openai-nim-proxy"
	keyringUser    = "nim-api-key"
)

// Resolve builds a token source for the upstream credential. A key from
// configuration (file or environment) wins; otherwise the OS keyring is
// consulted lazily on first request.
func Resolve(configKey string) oauth2.TokenSource {
	if configKey != "" {
		return Static(configKey)
	}
	return &keyringTokenSource{}
}

// Static wraps a fixed API key as a token source.
func Static(key string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: key,
		TokenType:   "Bearer",
	})
}

// keyringTokenSource reads the API key from the OS keyring on every call.
// Reading per-call means 'auth login' takes effect without a restart.
type keyringTokenSource struct{}

// Compile-time check that keyringTokenSource implements oauth2.TokenSource
var _ oauth2.TokenSource = (*keyringTokenSource)(nil)

func (s *keyringTokenSource) Token() (*oauth2.Token, error) {
	secret, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("NIM API key not configured: set upstream.api_key, NIMPROXY_UPSTREAM__API_KEY, or run 'nimproxy auth login'")
		}
		return nil, fmt.Errorf("failed to read API key from keyring: %w", err)
	}
	if secret == "" {
		return nil, fmt.Errorf("NIM API key in keyring is empty: run 'nimproxy auth login'")
	}

	return &oauth2.Token{AccessToken: secret, TokenType: "Bearer"}, nil
}

// Store saves the API key to the OS keyring.
func Store(key string) error {
	if err := keyring.Set(keyringService, keyringUser, key); err != nil {
		return fmt.Errorf("failed to write API key to keyring: %w", err)
	}
	return nil
}

// Clear removes the API key from the OS keyring. Clearing a key that was
// never stored is not an error.
func Clear() error {
	if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to remove API key from keyring: %w", err)
	}
	return nil
}
