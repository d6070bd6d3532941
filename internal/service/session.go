package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/sumire/oceanschool/internal/domain"
)

// CredentialStore persists the session keys between runs.
type CredentialStore interface {
	Load(ctx context.Context) (domain.Credentials, error)
	Save(ctx context.Context, creds domain.Credentials) error
	Clear(ctx context.Context) error
}

// AuthAPI is the slice of the backend the session manager talks to.
type AuthAPI interface {
	Login(ctx context.Context, in domain.LoginInput) (domain.TokenPair, error)
	Register(ctx context.Context, in domain.RegisterInput) (domain.User, error)
	Profile(ctx context.Context, userID int64) (domain.User, error)
}

// Navigator sends the user back to the login entry point.
type Navigator interface {
	ToLogin()
}

// NavigatorFunc adapts a plain function to Navigator.
type NavigatorFunc func()

func (f NavigatorFunc) ToLogin() { f() }

// SessionManager owns the authenticated identity: it exchanges, persists,
// restores and invalidates credentials, and hands the access token to the
// dispatch layer.
type SessionManager struct {
	store CredentialStore
	api   AuthAPI
	nav   Navigator
	log   *slog.Logger

	// notifyMu serializes transitions with their delivery so subscribers
	// observe changes in the order they happened.
	notifyMu sync.Mutex

	mu      sync.RWMutex
	session domain.Session
	creds   domain.Credentials
	subs    map[int]func(domain.Session)
	nextSub int
}

// NewSessionManager creates a SessionManager in the UNINITIALIZED state.
func NewSessionManager(store CredentialStore, api AuthAPI, nav Navigator, logger *slog.Logger) *SessionManager {
	if nav == nil {
		nav = NavigatorFunc(func() {})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		store:   store,
		api:     api,
		nav:     nav,
		log:     logger,
		session: domain.Session{State: domain.SessionUninitialized},
		subs:    make(map[int]func(domain.Session)),
	}
}

// Session returns the current session.
func (m *SessionManager) Session() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Token returns the access credential for outbound requests.
func (m *SessionManager) Token() (*oauth2.Token, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.creds.AccessToken == "" {
		return nil, false
	}
	return &oauth2.Token{
		AccessToken:  m.creds.AccessToken,
		RefreshToken: m.creds.RefreshToken,
		TokenType:    "Bearer",
	}, true
}

// Subscribe registers fn to be called after every session change. fn runs on
// the goroutine that caused the change and must not block or start a new
// transition synchronously. The returned func removes the subscription.
func (m *SessionManager) Subscribe(fn func(domain.Session)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Restore resolves the initial session from the stored credential. It is a
// no-op once the session has left UNINITIALIZED.
func (m *SessionManager) Restore(ctx context.Context) domain.Session {
	if s := m.Session(); s.State != domain.SessionUninitialized {
		return s
	}

	creds, err := m.store.Load(ctx)
	if err != nil {
		m.log.Warn("failed to load stored credentials", "error", err)
		creds = domain.Credentials{}
	}
	if creds.AccessToken == "" {
		m.log.Debug("no stored credential")
		m.transition(domain.Session{State: domain.SessionInactive}, nil)
		return m.Session()
	}

	m.mu.Lock()
	m.creds = creds
	m.mu.Unlock()

	user, err := m.api.Profile(ctx, 0)
	if err != nil {
		m.log.Info("stored credential rejected, clearing session", "error", err)
		if err := m.store.Clear(ctx); err != nil {
			m.log.Error("failed to clear stored credentials", "error", err)
		}
		m.transition(domain.Session{State: domain.SessionInactive}, &domain.Credentials{})
		return m.Session()
	}

	user = user.Normalized()
	m.rememberRole(ctx, user.Role)
	m.transition(domain.Session{State: domain.SessionActive, User: &user}, nil)
	m.log.Info("session restored", "username", user.Username, "role", user.Role)
	return m.Session()
}

// Login exchanges username (or email) and password for a credential pair,
// persists it, then loads the identity profile and activates the session.
// A rejected exchange persists nothing. A failed profile fetch is returned
// with the credential left in place.
func (m *SessionManager) Login(ctx context.Context, username, password string) (domain.Session, error) {
	in := domain.LoginInput{Username: username, Password: password}
	if err := domain.Validate(in); err != nil {
		return domain.Session{}, err
	}

	pair, err := m.api.Login(ctx, in)
	if err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest) {
			return domain.Session{}, fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
		}
		return domain.Session{}, fmt.Errorf("login: %w", err)
	}

	creds := domain.Credentials{AccessToken: pair.Access, RefreshToken: pair.Refresh}
	if err := m.store.Save(ctx, creds); err != nil {
		return domain.Session{}, fmt.Errorf("save credentials: %w", err)
	}
	m.mu.Lock()
	m.creds = creds
	m.mu.Unlock()

	user, err := m.api.Profile(ctx, 0)
	if err != nil {
		return domain.Session{}, fmt.Errorf("fetch profile: %w", err)
	}

	user = user.Normalized()
	m.rememberRole(ctx, user.Role)
	m.transition(domain.Session{State: domain.SessionActive, User: &user}, nil)
	m.log.Info("logged in", "username", user.Username, "role", user.Role)
	return m.Session(), nil
}

// Register creates an account. It never establishes a session.
func (m *SessionManager) Register(ctx context.Context, in domain.RegisterInput) (domain.User, error) {
	in.Role = domain.ParseRole(string(in.Role))
	if err := domain.Validate(in); err != nil {
		return domain.User{}, err
	}
	user, err := m.api.Register(ctx, in)
	if err != nil {
		return domain.User{}, fmt.Errorf("register: %w", err)
	}
	return user.Normalized(), nil
}

// Logout clears every stored key and deactivates the session. The state
// change happens even when clearing the store fails.
func (m *SessionManager) Logout(ctx context.Context) error {
	err := m.store.Clear(ctx)
	if err != nil {
		m.log.Error("failed to clear stored credentials", "error", err)
	}
	m.transition(domain.Session{State: domain.SessionInactive}, &domain.Credentials{})
	m.log.Info("logged out")
	return err
}

// HandleUnauthorized tears the session down after an authorization-denied
// response. Concurrent denials redirect once: only the call that actually
// clears something navigates to login.
func (m *SessionManager) HandleUnauthorized(ctx context.Context) {
	m.notifyMu.Lock()

	m.mu.Lock()
	cleared := m.session.State == domain.SessionActive || !m.creds.IsZero()
	m.mu.Unlock()
	if !cleared {
		m.notifyMu.Unlock()
		return
	}

	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		m.log.Error("failed to clear stored credentials", "error", err)
	}
	m.apply(domain.Session{State: domain.SessionInactive}, &domain.Credentials{})
	m.notifyMu.Unlock()

	m.log.Warn("authorization denied, session cleared")
	m.nav.ToLogin()
}

func (m *SessionManager) rememberRole(ctx context.Context, role domain.Role) {
	m.mu.Lock()
	m.creds.Role = role
	creds := m.creds
	m.mu.Unlock()

	if err := m.store.Save(ctx, creds); err != nil {
		m.log.Warn("failed to persist role", "error", err)
	}
}

func (m *SessionManager) transition(next domain.Session, creds *domain.Credentials) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.apply(next, creds)
}

// apply must be called with notifyMu held.
func (m *SessionManager) apply(next domain.Session, creds *domain.Credentials) {
	m.mu.Lock()
	if creds != nil {
		m.creds = *creds
	}
	changed := !sameSession(m.session, next)
	m.session = next
	subs := make([]func(domain.Session), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if !changed {
		return
	}
	m.log.Debug("session state changed", "state", next.State)
	for _, fn := range subs {
		fn(next)
	}
}

func sameSession(a, b domain.Session) bool {
	if a.State != b.State {
		return false
	}
	if a.User == nil || b.User == nil {
		return a.User == b.User
	}
	return a.User.ID == b.User.ID && a.User.Username == b.User.Username && a.User.Role == b.User.Role
}
