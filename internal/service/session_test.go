package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/oceanschool/internal/api"
	"github.com/sumire/oceanschool/internal/domain"
	"github.com/sumire/oceanschool/internal/repository"
)

// backendStub is an echo app standing in for the course platform API.
type backendStub struct {
	calls       atomic.Int32
	profileAuth atomic.Value
}

func newBackend(t *testing.T, profileRole string, register func(e *echo.Echo)) (*backendStub, *api.Client) {
	t.Helper()
	b := &backendStub{}
	e := echo.New()
	e.Pre(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			b.calls.Add(1)
			return next(c)
		}
	})
	e.POST("/login/", func(c echo.Context) error {
		var in domain.LoginInput
		if err := c.Bind(&in); err != nil {
			return err
		}
		if in.Username != "alice" || in.Password != "secret" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		}
		return c.JSON(http.StatusOK, domain.TokenPair{Access: "tok1", Refresh: "tok2"})
	})
	e.GET("/profile/", func(c echo.Context) error {
		auth := c.Request().Header.Get("Authorization")
		b.profileAuth.Store(auth)
		if auth != "Bearer tok1" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
		}
		return c.JSON(http.StatusOK, map[string]any{"id": 1, "username": "alice", "email": "alice@example.com", "role_name": profileRole})
	})
	if register != nil {
		register(e)
	}
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.URL, api.Options{Logger: discardLogger()})
	require.NoError(t, err)
	return b, client
}

type countingNavigator struct{ n atomic.Int32 }

func (c *countingNavigator) ToLogin() { c.n.Add(1) }

func newManager(client *api.Client, store CredentialStore, nav Navigator) *SessionManager {
	m := NewSessionManager(store, client, nav, discardLogger())
	client.SetAuth(m, m)
	return m
}

func TestLoginActivatesSession(t *testing.T) {
	backend, client := newBackend(t, "student", nil)
	store := repository.NewMemoryCredentialStore()
	m := newManager(client, store, &countingNavigator{})

	session, err := m.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	assert.Equal(t, domain.SessionActive, session.State)
	assert.Equal(t, domain.RoleStudent, session.Role())
	assert.Equal(t, "Bearer tok1", backend.profileAuth.Load())

	creds, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Credentials{AccessToken: "tok1", RefreshToken: "tok2", Role: domain.RoleStudent}, creds)

	tok, ok := m.Token()
	require.True(t, ok)
	assert.Equal(t, "tok1", tok.AccessToken)
	assert.Equal(t, "tok2", tok.RefreshToken)
}

func TestLoginNormalizesRole(t *testing.T) {
	for _, raw := range []string{"student", "Instructor", "ADMIN", "moderator"} {
		t.Run(raw, func(t *testing.T) {
			_, client := newBackend(t, raw, nil)
			m := newManager(client, repository.NewMemoryCredentialStore(), nil)

			session, err := m.Login(context.Background(), "alice", "secret")
			require.NoError(t, err)
			assert.Equal(t, domain.ParseRole(raw), session.Role())
		})
	}
}

func TestLoginRejectedPersistsNothing(t *testing.T) {
	_, client := newBackend(t, "student", nil)
	store := repository.NewMemoryCredentialStore()
	nav := &countingNavigator{}
	m := newManager(client, store, nav)

	_, err := m.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	creds, _ := store.Load(context.Background())
	assert.True(t, creds.IsZero())
	assert.Equal(t, domain.SessionUninitialized, m.Session().State)
	assert.Zero(t, nav.n.Load())
}

func TestLoginValidatesInput(t *testing.T) {
	backend, client := newBackend(t, "student", nil)
	m := newManager(client, repository.NewMemoryCredentialStore(), nil)

	_, err := m.Login(context.Background(), "", "secret")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "username", verr.Field)
	assert.Zero(t, backend.calls.Load())
}

func TestRestoreWithoutCredentialMakesNoCalls(t *testing.T) {
	backend, client := newBackend(t, "student", nil)
	m := newManager(client, repository.NewMemoryCredentialStore(), nil)

	session := m.Restore(context.Background())
	assert.Equal(t, domain.SessionInactive, session.State)
	assert.Zero(t, backend.calls.Load())
}

func TestRestoreWithStoredCredential(t *testing.T) {
	_, client := newBackend(t, "instructor", nil)
	store := repository.NewMemoryCredentialStore()
	require.NoError(t, store.Save(context.Background(), domain.Credentials{AccessToken: "tok1", RefreshToken: "tok2"}))
	m := newManager(client, store, nil)

	session := m.Restore(context.Background())
	assert.Equal(t, domain.SessionActive, session.State)
	assert.Equal(t, domain.RoleInstructor, session.Role())

	creds, _ := store.Load(context.Background())
	assert.Equal(t, domain.RoleInstructor, creds.Role)

	// Restore only runs once.
	assert.Equal(t, session, m.Restore(context.Background()))
}

func TestRestoreWithRejectedCredentialClearsStore(t *testing.T) {
	_, client := newBackend(t, "student", nil)
	store := repository.NewMemoryCredentialStore()
	require.NoError(t, store.Save(context.Background(), domain.Credentials{AccessToken: "stale", RefreshToken: "tok2", Role: domain.RoleAdmin}))
	m := newManager(client, store, nil)

	session := m.Restore(context.Background())
	assert.Equal(t, domain.SessionInactive, session.State)

	creds, _ := store.Load(context.Background())
	assert.True(t, creds.IsZero())
	_, ok := m.Token()
	assert.False(t, ok)
}

func TestRegisterDoesNotLogIn(t *testing.T) {
	backend, client := newBackend(t, "student", func(e *echo.Echo) {
		e.POST("/register/", func(c echo.Context) error {
			return c.JSON(http.StatusCreated, map[string]any{"id": 2, "username": "bob", "role_name": "INSTRUCTOR"})
		})
	})
	m := newManager(client, repository.NewMemoryCredentialStore(), nil)

	user, err := m.Register(context.Background(), domain.RegisterInput{
		Username: "bob", Email: "bob@example.com", Password: "longenough", Role: "instructor",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleInstructor, user.Role)
	assert.Equal(t, domain.SessionUninitialized, m.Session().State)
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestRegisterSurfacesFieldErrors(t *testing.T) {
	_, client := newBackend(t, "student", func(e *echo.Echo) {
		e.POST("/register/", func(c echo.Context) error {
			return c.JSON(http.StatusBadRequest, map[string]any{"username": []string{"A user with that username already exists."}})
		})
	})
	m := newManager(client, repository.NewMemoryCredentialStore(), nil)

	_, err := m.Register(context.Background(), domain.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "longenough", Role: domain.RoleStudent,
	})
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Fields, "username")
}

func TestLogoutIsIdempotent(t *testing.T) {
	_, client := newBackend(t, "student", nil)
	store := repository.NewMemoryCredentialStore()
	m := newManager(client, store, nil)
	_, err := m.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	var states []domain.SessionState
	m.Subscribe(func(s domain.Session) { states = append(states, s.State) })

	require.NoError(t, m.Logout(context.Background()))
	require.NoError(t, m.Logout(context.Background()))

	assert.Equal(t, []domain.SessionState{domain.SessionInactive}, states)
	creds, _ := store.Load(context.Background())
	assert.True(t, creds.IsZero())
	_, ok := m.Token()
	assert.False(t, ok)
}

func TestConcurrentUnauthorizedRedirectsOnce(t *testing.T) {
	_, client := newBackend(t, "student", func(e *echo.Echo) {
		e.GET("/notifications/", func(c echo.Context) error {
			return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Token is expired"})
		})
	})
	store := repository.NewMemoryCredentialStore()
	nav := &countingNavigator{}
	m := newManager(client, store, nav)
	_, err := m.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	var inactive atomic.Int32
	m.Subscribe(func(s domain.Session) {
		if s.State == domain.SessionInactive {
			inactive.Add(1)
		}
	})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Notifications(context.Background())
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), nav.n.Load())
	assert.Equal(t, int32(1), inactive.Load())
	assert.Equal(t, domain.SessionInactive, m.Session().State)
	creds, _ := store.Load(context.Background())
	assert.True(t, creds.IsZero())
}

func TestUnauthorizedWhenInactiveDoesNotRedirect(t *testing.T) {
	nav := &countingNavigator{}
	m := NewSessionManager(repository.NewMemoryCredentialStore(), nil, nav, discardLogger())
	m.Restore(context.Background())

	m.HandleUnauthorized(context.Background())
	assert.Zero(t, nav.n.Load())
}
