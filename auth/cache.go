package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// ErrNoToken means the cache holds no token yet.
var ErrNoToken = errors.New("auth: no cached token")

// ErrKeyringUnavailable indicates the system keyring cannot be used.
var ErrKeyringUnavailable = errors.New("auth: system keyring unavailable")

// TokenCache persists the OAuth token between runs. Deleting the cached
// token forces a new authorization.
type TokenCache interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
	Clear() error
	Description() string
}

// FileCache stores the token as JSON in a file only the user can read.
type FileCache struct {
	Path string
}

func (c *FileCache) Load() (*oauth2.Token, error) {
	b, err := os.ReadFile(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("read token cache: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode token cache %s: %w", c.Path, err)
	}
	return &tok, nil
}

func (c *FileCache) Save(tok *oauth2.Token) error {
	b, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o700); err != nil {
		return fmt.Errorf("token cache dir: %w", err)
	}
	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	return os.Rename(tmp, c.Path)
}

func (c *FileCache) Clear() error {
	if err := os.Remove(c.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (c *FileCache) Description() string { return "file " + c.Path }

const (
	// DefaultKeyringService is the service name used in the system keyring.
	DefaultKeyringService = "meeting-analyser"
	// DefaultKeyringUser is the account name used in the system keyring.
	DefaultKeyringUser = "google-oauth-token"
)

// KeyringCache stores the token in the system keyring (macOS Keychain,
// Windows Credential Manager, Linux Secret Service).
type KeyringCache struct {
	Service string
	User    string
}

func NewKeyringCache() *KeyringCache {
	return &KeyringCache{Service: DefaultKeyringService, User: DefaultKeyringUser}
}

func (c *KeyringCache) Load() (*oauth2.Token, error) {
	s, err := keyring.Get(c.Service, c.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(s), &tok); err != nil {
		return nil, fmt.Errorf("decode keyring token: %w", err)
	}
	return &tok, nil
}

func (c *KeyringCache) Save(tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := keyring.Set(c.Service, c.User, string(b)); err != nil {
		return fmt.Errorf("%w: storing token: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

func (c *KeyringCache) Clear() error {
	if err := keyring.Delete(c.Service, c.User); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

func (c *KeyringCache) Description() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain"
	case "windows":
		return "Windows Credential Manager"
	default:
		return "System Keyring (Secret Service)"
	}
}
