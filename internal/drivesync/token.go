package drivesync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/xtrinch/food-coach/internal/config"
	apperrors "github.com/xtrinch/food-coach/internal/errors"
	"github.com/xtrinch/food-coach/internal/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
	drive "google.golang.org/api/drive/v3"
)

// expiryMargin is how long before the recorded expiry a cached token is
// already considered stale.
const expiryMargin = time.Minute

// Token is a user-delegated Drive access token with its expiry.
type Token struct {
	AccessToken string    `json:"access_token"`
	Expiry      time.Time `json:"expiry"`
}

func (t *Token) valid() bool {
	return t != nil && t.AccessToken != "" && time.Now().Before(t.Expiry.Add(-expiryMargin))
}

// TokenProvider supplies access tokens for remote calls. Invalidate drops
// any cached token so the next Token call re-acquires.
type TokenProvider interface {
	Token(ctx context.Context, forceConsent bool) (string, error)
	Invalidate()
}

// Authenticator performs the actual user consent / token fetch. It is an
// interface so tests can drive the provider without a browser.
type Authenticator interface {
	Consent(ctx context.Context, forceConsent bool) (*Token, error)
}

// CachedTokenProvider caches the token in memory and on disk, reusing it
// until shortly before expiry. Acquisition is single-flighted: concurrent
// callers share one consent/refresh and all receive its outcome.
type CachedTokenProvider struct {
	path string
	auth Authenticator

	mu     sync.Mutex
	cached *Token
	group  singleflight.Group
}

// NewCachedTokenProvider creates a provider persisting tokens at path.
func NewCachedTokenProvider(path string, auth Authenticator) *CachedTokenProvider {
	return &CachedTokenProvider{path: path, auth: auth}
}

// Token returns a usable access token, acquiring one through the
// authenticator when the cache is empty, expired or a forced consent is
// requested.
func (p *CachedTokenProvider) Token(ctx context.Context, forceConsent bool) (string, error) {
	if !forceConsent {
		if tok := p.current(); tok != nil {
			return tok.AccessToken, nil
		}
	}

	v, err, _ := p.group.Do("token", func() (interface{}, error) {
		if !forceConsent {
			// Another caller may have refreshed while we waited.
			if tok := p.current(); tok != nil {
				return tok, nil
			}
		}
		tok, err := p.auth.Consent(ctx, forceConsent)
		if err != nil {
			return nil, err
		}
		p.store(tok)
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(*Token).AccessToken, nil
}

// Invalidate drops the cached token in memory and on disk.
func (p *CachedTokenProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		logger.Warningf("Failed to remove cached Drive token: %v", err)
	}
}

func (p *CachedTokenProvider) current() *Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached.valid() {
		return p.cached
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil
	}
	if !tok.valid() {
		return nil
	}
	p.cached = &tok
	return p.cached
}

func (p *CachedTokenProvider) store(tok *Token) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = tok
	data, err := json.Marshal(tok)
	if err != nil {
		return
	}
	if err := os.WriteFile(p.path, data, 0o600); err != nil {
		logger.Warningf("Failed to persist Drive token: %v", err)
	}
}

// ConsoleAuthenticator walks the user through the three-legged OAuth
// consent flow on the terminal: open the printed URL, paste the code back.
type ConsoleAuthenticator struct {
	config *oauth2.Config
	in     io.Reader
	out    io.Writer
}

// NewConsoleAuthenticator builds the console consent flow from the Drive
// client credentials.
func NewConsoleAuthenticator(cfg config.DriveConfig) *ConsoleAuthenticator {
	return &ConsoleAuthenticator{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{drive.DriveFileScope},
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		},
		in:  os.Stdin,
		out: os.Stdout,
	}
}

// Consent runs one interactive token acquisition.
func (a *ConsoleAuthenticator) Consent(ctx context.Context, forceConsent bool) (*Token, error) {
	if a.config.ClientID == "" {
		return nil, apperrors.NewValidationError("Google Drive client ID not configured. Set GOOGLE_DRIVE_CLIENT_ID.")
	}

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if forceConsent {
		opts = append(opts, oauth2.ApprovalForce)
	}
	url := a.config.AuthCodeURL("state-token", opts...)

	fmt.Fprintf(a.out, "Authorize Drive access by visiting:\n\n  %s\n\nThen paste the authorization code: ", url)
	var code string
	if _, err := fmt.Fscan(a.in, &code); err != nil {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}

	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypePermission, "CONSENT_FAILED", "Google rejected the authorization code")
	}
	return &Token{AccessToken: tok.AccessToken, Expiry: tok.Expiry}, nil
}
