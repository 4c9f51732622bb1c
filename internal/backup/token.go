package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

const (
	KeyringService = "lua-backup"

	tokenExpiryBuffer   = 60 * time.Second
	tokenRequestTimeout = 5 * time.Second
)

var (
	ErrNotConnected       = errors.New("backup remote is not connected")
	ErrRefreshUnavailable = errors.New("token refresh unavailable")
)

// Credential is the opaque access grant for a remote.
type Credential struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

func (credential Credential) valid(now time.Time) bool {
	return credential.AccessToken != "" && now.Before(credential.Expiry)
}

type CredentialStore interface {
	Load() (Credential, bool, error)
	Save(credential Credential) error
	Delete() error
}

// KeyringCredentialStore keeps the credential in the OS keychain.
type KeyringCredentialStore struct {
	Service string
	User    string
}

func NewKeyringCredentialStore(user string) *KeyringCredentialStore {
	return &KeyringCredentialStore{Service: KeyringService, User: user}
}

func (store *KeyringCredentialStore) Load() (Credential, bool, error) {
	secret, err := keyring.Get(store.Service, store.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return Credential{}, false, nil
	}
	if err != nil {
		return Credential{}, false, fmt.Errorf("read keyring: %w", err)
	}

	var credential Credential
	if err := json.Unmarshal([]byte(secret), &credential); err != nil {
		return Credential{}, false, fmt.Errorf("decode stored credential: %w", err)
	}
	return credential, true, nil
}

func (store *KeyringCredentialStore) Save(credential Credential) error {
	encoded, err := json.Marshal(credential)
	if err != nil {
		return err
	}
	if err := keyring.Set(store.Service, store.User, string(encoded)); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}

func (store *KeyringCredentialStore) Delete() error {
	if err := keyring.Delete(store.Service, store.User); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete keyring entry: %w", err)
	}
	return nil
}

// TokenSource hands out access tokens for a remote.
type TokenSource interface {
	Connected() bool
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
	Connect(credential Credential) error
	Disconnect() error
}

// StaticTokenSource is for remotes authorized by configuration alone.
type StaticTokenSource struct{}

func (StaticTokenSource) Connected() bool                       { return true }
func (StaticTokenSource) Token(context.Context) (string, error) { return "", nil }
func (StaticTokenSource) Connect(Credential) error              { return nil }
func (StaticTokenSource) Disconnect() error                     { return nil }

func (StaticTokenSource) Refresh(context.Context) (string, error) {
	return "", ErrRefreshUnavailable
}

// OAuthTokenSource serves a stored OAuth credential and renews it through
// the refresh-token grant once it expires. A rotated refresh token replaces
// the stored one.
type OAuthTokenSource struct {
	Config *oauth2.Config
	Client *http.Client
	Store  CredentialStore
	Now    func() time.Time

	mu sync.Mutex
}

func NewOAuthTokenSource(clientID string, clientSecret string, store CredentialStore) *OAuthTokenSource {
	return &OAuthTokenSource{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{drive.DriveFileScope},
		},
		Client: &http.Client{Timeout: tokenRequestTimeout},
		Store:  store,
		Now:    time.Now,
	}
}

func (source *OAuthTokenSource) Connected() bool {
	_, ok, err := source.Store.Load()
	return err == nil && ok
}

func (source *OAuthTokenSource) Token(ctx context.Context) (string, error) {
	source.mu.Lock()
	credential, ok, err := source.Store.Load()
	source.mu.Unlock()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotConnected
	}
	if credential.valid(source.Now()) {
		return credential.AccessToken, nil
	}
	return source.Refresh(ctx)
}

func (source *OAuthTokenSource) Refresh(ctx context.Context) (string, error) {
	source.mu.Lock()
	defer source.mu.Unlock()

	credential, ok, err := source.Store.Load()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotConnected
	}
	if credential.RefreshToken == "" || source.Config.ClientID == "" {
		return "", ErrRefreshUnavailable
	}

	if source.Client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, source.Client)
	}
	// Without an access token the reuse source always runs the grant.
	token, err := source.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: credential.RefreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return "", &RemoteError{Remote: "OAuth", Status: retrieveErr.Response.StatusCode}
		}
		return "", fmt.Errorf("refresh token: %w", err)
	}

	credential.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		credential.RefreshToken = token.RefreshToken
	}
	credential.Expiry = source.Now().Add(time.Hour - tokenExpiryBuffer)
	if !token.Expiry.IsZero() {
		credential.Expiry = source.Now().Add(time.Until(token.Expiry) - tokenExpiryBuffer)
	}
	if err := source.Store.Save(credential); err != nil {
		return "", err
	}
	return credential.AccessToken, nil
}

func (source *OAuthTokenSource) Connect(credential Credential) error {
	if credential.AccessToken == "" {
		return errors.New("access token is required")
	}
	source.mu.Lock()
	defer source.mu.Unlock()
	return source.Store.Save(credential)
}

func (source *OAuthTokenSource) Disconnect() error {
	source.mu.Lock()
	defer source.mu.Unlock()
	return source.Store.Delete()
}

// CredentialFromGrant builds a credential from an access token lifetime in
// seconds, keeping a one minute safety margin before expiry.
func CredentialFromGrant(accessToken string, refreshToken string, expiresIn int, now time.Time) Credential {
	return Credential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       now.Add(time.Duration(expiresIn)*time.Second - tokenExpiryBuffer),
	}
}
