// Package auth obtains an authorized HTTP client for the Google APIs with
// the OAuth2 installed-application flow and caches the resulting token.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrMissingCredentials means the OAuth client file is absent.
var ErrMissingCredentials = errors.New("auth: OAuth client credentials not found")

// Scopes needed by a run: read events, export notes and store chart
// images, create presentations.
var Scopes = []string{
	"https://www.googleapis.com/auth/calendar.readonly",
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/drive.file",
	"https://www.googleapis.com/auth/presentations",
}

// CredentialsHelp explains how to obtain the OAuth client file.
const CredentialsHelp = `To create OAuth credentials:
  1. Open https://console.cloud.google.com/ and select or create a project.
  2. Enable the Google Calendar, Google Drive and Google Slides APIs.
  3. Under "APIs & Services" > "Credentials", create an OAuth client ID of
     type "Desktop app".
  4. Download the JSON file and save it as the configured credentials path
     (credentials.json by default).`

// LoadConfig reads the OAuth client file downloaded from the Google Cloud
// console.
func LoadConfig(path string, scopes ...string) (*oauth2.Config, error) {
	if len(scopes) == 0 {
		scopes = Scopes
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s\n\n%s", ErrMissingCredentials, path, CredentialsHelp)
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", path, err)
	}
	return cfg, nil
}

// Flow runs the installed-application authorization: the user opens the
// consent URL, Google redirects to a loopback listener with the code.
type Flow struct {
	Config *oauth2.Config
	Cache  TokenCache
	Log    logrus.FieldLogger

	// Prompt receives the consent URL.
	Prompt io.Writer
	// OpenBrowser, when set, is called with the consent URL.
	OpenBrowser func(url string) error
}

// Client returns an HTTP client that authorizes requests, running the
// consent flow when no usable token is cached. Refreshed tokens are written
// back to the cache.
func (f *Flow) Client(ctx context.Context) (*http.Client, error) {
	tok, err := f.Cache.Load()
	switch {
	case err == nil:
		f.log().WithField("cache", f.Cache.Description()).Debug("using cached token")
	case errors.Is(err, ErrNoToken):
		if tok, err = f.Authorize(ctx); err != nil {
			return nil, err
		}
		if err := f.Cache.Save(tok); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	src := &cachingSource{
		src:   oauth2.ReuseTokenSource(tok, f.Config.TokenSource(ctx, tok)),
		cache: f.Cache,
		last:  tok.AccessToken,
		log:   f.log(),
	}
	return oauth2.NewClient(ctx, src), nil
}

// Authorize obtains a new token through the consent page.
func (f *Flow) Authorize(ctx context.Context) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("auth listener: %w", err)
	}
	cfg := *f.Config
	cfg.RedirectURL = "http://" + ln.Addr().String() + "/callback"

	state, err := randomState()
	if err != nil {
		ln.Close()
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	var once sync.Once
	finish := func(r result) { once.Do(func() { done <- r }) }

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			finish(result{err: errors.New("auth: state mismatch in callback")})
		case q.Get("error") != "":
			http.Error(w, "authorization denied", http.StatusForbidden)
			finish(result{err: fmt.Errorf("auth: %s", q.Get("error"))})
		default:
			io.WriteString(w, "Authorization complete. You can close this window.")
			finish(result{code: q.Get("code")})
		}
	})
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer srv.Close()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	if f.Prompt != nil {
		fmt.Fprintf(f.Prompt, "Open this URL to authorize access:\n\n  %s\n\n", authURL)
	}
	if f.OpenBrowser != nil {
		if err := f.OpenBrowser(authURL); err != nil {
			f.log().WithError(err).Warn("could not open browser")
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		tok, err := cfg.Exchange(ctx, r.code, oauth2.VerifierOption(verifier))
		if err != nil {
			return nil, fmt.Errorf("auth exchange: %w", err)
		}
		f.log().Info("authorization complete")
		return tok, nil
	}
}

func (f *Flow) log() logrus.FieldLogger {
	if f.Log == nil {
		return logrus.StandardLogger()
	}
	return f.Log
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// cachingSource saves every new access token it hands out.
type cachingSource struct {
	mu    sync.Mutex
	src   oauth2.TokenSource
	cache TokenCache
	last  string
	log   logrus.FieldLogger
}

func (s *cachingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.cache.Save(tok); err != nil {
			s.log.WithError(err).Warn("could not save refreshed token")
		}
	}
	return tok, nil
}
