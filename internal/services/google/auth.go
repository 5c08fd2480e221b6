package google

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/julianstephens/trainsync/internal/keyring"
	"github.com/julianstephens/trainsync/internal/logger"
)

// Scopes requested at login.
var Scopes = []string{tasksapi.TasksScope, calendarapi.CalendarEventsScope}

// ErrNotAuthenticated is returned when no token has been stored yet.
var ErrNotAuthenticated = stderrors.New("not signed in to Google (run 'trainsync auth login')")

// LoadOAuthConfig reads an installed-app client credentials file downloaded
// from the Google Cloud console.
func LoadOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("google.credentials_file is not set")
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	cfg, err := googleoauth.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials file: %w", err)
	}
	return cfg, nil
}

// TokenStore persists the OAuth token between runs.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
	Delete() error
}

// KeyringTokenStore keeps the token in the OS keyring.
type KeyringTokenStore struct{}

func (KeyringTokenStore) Load() (*oauth2.Token, error) {
	raw, err := keyring.GetToken()
	if err != nil {
		if stderrors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("stored token is corrupt: %w", err)
	}
	return &tok, nil
}

func (KeyringTokenStore) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return keyring.SetToken(string(data))
}

func (KeyringTokenStore) Delete() error {
	return keyring.DeleteToken()
}

// persistingSource saves refreshed tokens back to the store.
type persistingSource struct {
	mu    sync.Mutex
	base  oauth2.TokenSource
	store TokenStore
	last  string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := s.store.Save(tok); err != nil {
			logger.Warn("Failed to persist refreshed token", "error", err)
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

// TokenSource returns a source that refreshes the stored token as needed.
func TokenSource(ctx context.Context, cfg *oauth2.Config, store TokenStore) (oauth2.TokenSource, error) {
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &persistingSource{
		base:  oauth2.ReuseTokenSource(tok, cfg.TokenSource(ctx, tok)),
		store: store,
		last:  tok.AccessToken,
	}, nil
}

// Options configures the production service pair.
type Options struct {
	CredentialsFile   string
	TaskListID        string
	CalendarID        string
	RequestsPerSecond float64
}

// NewServices builds the Tasks and Calendar adapters sharing one token
// source and one rate limiter.
func NewServices(ctx context.Context, opts Options, store TokenStore) (*Tasks, *Calendar, error) {
	clientOpt, err := ClientOption(ctx, opts.CredentialsFile, store)
	if err != nil {
		return nil, nil, err
	}
	limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)

	tasks, err := NewTasks(ctx, opts.TaskListID, limiter, clientOpt)
	if err != nil {
		return nil, nil, err
	}
	cal, err := NewCalendar(ctx, opts.CalendarID, limiter, clientOpt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	return tasks, cal, nil
}

// ClientOption authenticates API clients with the stored token.
func ClientOption(ctx context.Context, credentialsFile string, store TokenStore) (option.ClientOption, error) {
	cfg, err := LoadOAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}
	ts, err := TokenSource(ctx, cfg, store)
	if err != nil {
		return nil, err
	}
	return option.WithTokenSource(ts), nil
}

// Login runs the installed-app flow. It serves the redirect on a loopback
// port, hands the consent URL to open, and falls back to prompt when the
// browser cannot be opened.
func Login(ctx context.Context, cfg *oauth2.Config, open func(url string) error, prompt func(url string) (string, error)) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}
	defer ln.Close()

	flow := *cfg
	flow.RedirectURL = "http://" + ln.Addr().String() + "/callback"

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := flow.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier))

	codes := make(chan string, 1)
	errs := make(chan error, 1)
	srv := &http.Server{Handler: callbackHandler(state, codes, errs)}
	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	defer srv.Close()

	if err := open(authURL); err != nil {
		logger.Warn("Failed to open browser", "error", err)
		go func() {
			code, err := prompt(authURL)
			if err != nil {
				errs <- err
				return
			}
			codes <- code
		}()
	}

	var code string
	select {
	case code = <-codes:
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := flow.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return tok, nil
}

func callbackHandler(state string, codes chan<- string, errs chan<- error) http.Handler {
	var once sync.Once
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/callback" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "Authorization failed: "+e, http.StatusBadRequest)
			once.Do(func() { errs <- fmt.Errorf("authorization denied: %s", e) })
			return
		}
		if q.Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Missing code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "trainsync is signed in. You can close this tab.")
		once.Do(func() { codes <- code })
	})
}
