// Package session holds the authenticated user and credential for the
// lifetime of the process and keeps them in step with durable storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/elearn/internal/client"
	"github.com/wolfeidau/elearn/internal/models"
	"github.com/wolfeidau/elearn/internal/storage"
	"github.com/wolfeidau/elearn/internal/telemetry"
)

var errCorruptSession = errors.New("stored user data is corrupt")

// AuthAPI is the part of the API client the store needs.
type AuthAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error)
	CurrentUser(ctx context.Context) (*models.User, error)
}

// Session is a consistent snapshot of the store.
type Session struct {
	User      *models.User
	Token     string
	Loading   bool
	LastError string
}

// Authenticated reports whether the snapshot holds both a user and a token.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now, used for credential expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is the process-wide session. User and token are always set and
// cleared together, in memory and in storage, under one lock.
//
// Every change of session bumps a generation counter. Requests that read the
// session (restore verification, RefreshUser) remember the generation they
// started under and drop their result if it moved while they were in flight.
type Store struct {
	api     AuthAPI
	storage storage.Storage
	now     func() time.Time

	restoreOnce sync.Once

	mu         sync.RWMutex
	user       *models.User
	token      string
	loading    bool
	lastError  string
	generation uint64
}

// New creates a store. It reports Loading until Restore has completed.
func New(api AuthAPI, store storage.Storage, opts ...Option) *Store {
	s := &Store{
		api:     api,
		storage: store,
		now:     time.Now,
		loading: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Restore loads the persisted session and verifies it with the server.
// Only the first call has any effect. Verification failure clears the session
// without reporting an error.
func (s *Store) Restore(ctx context.Context) {
	s.restoreOnce.Do(func() {
		s.restore(ctx)
	})
}

func (s *Store) restore(ctx context.Context) {
	defer s.setLoading(false)

	token, user, err := s.readPersisted()
	if err != nil {
		if errors.Is(err, errCorruptSession) {
			log.Warn().Err(err).Msg("clearing corrupt stored session")
			s.Logout()
			return
		}
		log.Warn().Err(err).Msg("failed to read stored session")
		return
	}

	if token == "" && user == nil {
		log.Debug().Msg("no stored session")
		return
	}

	if token == "" || user == nil {
		log.Debug().Msg("clearing partial stored session")
		s.Logout()
		return
	}

	// Optimistically authenticated until the server says otherwise
	s.mu.Lock()
	s.token = token
	s.user = user
	gen := s.generation
	s.mu.Unlock()

	log.Debug().
		Str("token", client.TokenFingerprint(token)).
		Str("user", user.ID.String()).
		Msg("restored stored session")

	if tokenExpired(token, s.now()) {
		log.Debug().Msg("stored credential has expired")
		s.logoutIfCurrent(gen)
		return
	}

	current, err := s.api.CurrentUser(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("stored session failed verification")
		s.logoutIfCurrent(gen)
		return
	}

	s.applyUser(gen, current)
}

// Login authenticates with email and password. On failure LastError holds the
// server's message and the returned error is an *AuthError carrying it.
func (s *Store) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return s.fail(ErrMissingCredentials.Error(), ErrMissingCredentials)
	}

	s.ClearError()
	telemetry.GetMetrics().RecordAuthAttempt(ctx, telemetry.OperationLogin)

	resp, err := s.api.Login(ctx, models.LoginRequest{
		Email:    email,
		Password: password,
	})

	return s.establish(resp, err, msgLoginFailed)
}

// Signup registers an account and signs in with it. The server checks that
// req.ConfirmPassword matches req.Password.
func (s *Store) Signup(ctx context.Context, req models.SignupRequest) error {
	if req.Email == "" || req.Password == "" {
		return s.fail(ErrMissingCredentials.Error(), ErrMissingCredentials)
	}
	if req.FullName == "" || req.ConfirmPassword == "" {
		return s.fail(ErrMissingProfile.Error(), ErrMissingProfile)
	}

	s.ClearError()
	telemetry.GetMetrics().RecordAuthAttempt(ctx, telemetry.OperationSignup)

	resp, err := s.api.Signup(ctx, req)

	return s.establish(resp, err, msgSignupFailed)
}

func (s *Store) establish(resp *models.AuthResponse, err error, fallback string) error {
	if err != nil {
		return s.fail(client.ErrorDetail(err, fallback), err)
	}

	if resp == nil || !resp.Success || resp.Token == "" || resp.User == nil {
		return s.fail(fallback, nil)
	}

	userData, err := json.Marshal(resp.User)
	if err != nil {
		return s.fail(fallback, fmt.Errorf("failed to marshal user: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Storage first: the HTTP client reads the credential from there, so a
	// session that cannot be persisted cannot be used either
	if err := s.storage.Set(map[string]string{
		storage.KeyAuthToken: resp.Token,
		storage.KeyUserData:  string(userData),
	}); err != nil {
		s.lastError = fallback
		return &AuthError{Message: fallback, Err: fmt.Errorf("failed to save session: %w", err)}
	}

	user := *resp.User
	s.token = resp.Token
	s.user = &user
	s.lastError = ""
	s.generation++

	log.Debug().
		Str("token", client.TokenFingerprint(resp.Token)).
		Str("user", user.ID.String()).
		Msg("session established")

	return nil
}

func (s *Store) fail(message string, err error) error {
	s.mu.Lock()
	s.lastError = message
	s.mu.Unlock()

	log.Debug().Err(err).Str("message", message).Msg("authentication failed")

	return &AuthError{Message: message, Err: err}
}

// Logout clears the session in memory and in storage. It never fails; a
// storage error is logged.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
}

// Invalidate tears the session down after the server rejected the credential.
// It is the target of the HTTP client's session-invalidated callback.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		log.Info().Msg("session expired or revoked by the server")
	}

	s.clearLocked()
}

func (s *Store) logoutIfCurrent(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		log.Debug().Msg("session changed during verification, keeping it")
		return
	}

	s.clearLocked()
}

func (s *Store) clearLocked() {
	if s.token != "" || s.user != nil {
		telemetry.GetMetrics().SessionTeardownsTotal.Add(context.Background(), 1)
	}

	s.user = nil
	s.token = ""
	s.lastError = ""
	s.generation++

	if err := s.storage.Delete(storage.KeyAuthToken, storage.KeyUserData); err != nil {
		log.Error().Err(err).Msg("failed to clear stored session")
	}
}

// RefreshUser fetches the profile again. A failure is treated as transient:
// it is logged, false is returned and the session is left alone.
func (s *Store) RefreshUser(ctx context.Context) bool {
	s.mu.RLock()
	token := s.token
	gen := s.generation
	s.mu.RUnlock()

	if token == "" {
		return false
	}

	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to refresh user")
		return false
	}

	return s.applyUser(gen, user)
}

// applyUser replaces the profile if the session is still the one gen refers to.
func (s *Store) applyUser(gen uint64, user *models.User) bool {
	if user == nil {
		return false
	}

	userData, err := json.Marshal(user)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal user")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen || s.token == "" {
		log.Debug().Msg("discarding profile for superseded session")
		return false
	}

	if err := s.storage.Set(map[string]string{storage.KeyUserData: string(userData)}); err != nil {
		log.Warn().Err(err).Msg("failed to save user")
		return false
	}

	u := *user
	s.user = &u

	return true
}

// readPersisted returns the stored token and user. Missing keys give zero
// values; unparseable user data gives errCorruptSession.
func (s *Store) readPersisted() (string, *models.User, error) {
	token, _, err := s.storage.Get(storage.KeyAuthToken)
	if err != nil {
		return "", nil, err
	}

	userData, ok, err := s.storage.Get(storage.KeyUserData)
	if err != nil {
		return "", nil, err
	}
	if !ok || userData == "" {
		return token, nil, nil
	}

	var user models.User
	if err := json.Unmarshal([]byte(userData), &user); err != nil {
		return "", nil, fmt.Errorf("%w: %v", errCorruptSession, err)
	}

	return token, &user, nil
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// IsAuthenticated reports whether both a credential and a user are held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token != "" && s.user != nil
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token returns the current credential, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Loading reports whether the initial restore is still pending.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading
}

// LastError returns the message of the most recent failed login or signup.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastError
}

// ClearError resets LastError.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
}

// Snapshot returns the whole session state from a single read.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Session{
		Token:     s.token,
		Loading:   s.loading,
		LastError: s.lastError,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}
