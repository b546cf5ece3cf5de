package adminsession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dailykart/dailykart/services/storefront/backend"
	"github.com/dailykart/dailykart/services/storefront/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthenticator struct{ mock.Mock }

func (m *MockAuthenticator) LoginAdmin(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) IsAdminSessionValid(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

type MockInvalidator struct{ mock.Mock }

func (m *MockInvalidator) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newSession(t *testing.T) *session.Session {
	t.Helper()
	return session.New("sid", session.NewMemoryStorage())
}

func storedToken(t *testing.T, s *session.Session) string {
	t.Helper()
	tok, err := s.Get(context.Background(), session.KeyAdminToken)
	if errors.Is(err, session.ErrKeyNotFound) {
		return ""
	}
	require.NoError(t, err)
	return tok
}

var networkErr = errors.New("dial tcp 10.0.0.5:8081: connect: connection refused")

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success stores token", func(t *testing.T) {
		// Arrange
		auth := new(MockAuthenticator)
		auth.On("LoginAdmin", mock.Anything, "admin", "secret").Return("tok-1", nil).Once()
		sess := newSession(t)
		admin := NewManager(auth, nil, 0).For(sess)
		assert.Equal(t, Pending, admin.Status().State)

		// Act
		status, err := admin.Login(ctx, "  admin ", " secret\n")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, Authenticated, status.State)
		assert.True(t, status.Fetched)
		assert.Equal(t, "tok-1", storedToken(t, sess))
		tok, ok := admin.Token(ctx)
		assert.True(t, ok)
		assert.Equal(t, "tok-1", tok)
		auth.AssertExpectations(t)
	})

	t.Run("bad credentials store nothing", func(t *testing.T) {
		// Arrange
		auth := new(MockAuthenticator)
		auth.On("LoginAdmin", mock.Anything, "admin", "wrong").
			Return("", &backend.StatusError{StatusCode: 401, Body: `{"error":"Invalid credentials"}`}).Once()
		sess := newSession(t)
		admin := NewManager(auth, nil, 0).For(sess)

		// Act
		status, err := admin.Login(ctx, "admin", "wrong")

		// Assert
		var classified *Error
		require.ErrorAs(t, err, &classified)
		assert.Equal(t, KindInvalidCredentials, classified.Kind)
		assert.Equal(t, "Invalid username or password", classified.Message)
		assert.Equal(t, LoggedOut, status.State)
		assert.Empty(t, storedToken(t, sess))
		auth.AssertExpectations(t)
	})

	t.Run("empty token is a credential rejection", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("LoginAdmin", mock.Anything, "admin", "secret").Return("", nil).Once()
		admin := NewManager(auth, nil, 0).For(newSession(t))

		_, err := admin.Login(ctx, "admin", "secret")

		assert.Equal(t, KindInvalidCredentials, Classify(err).Kind)
	})

	t.Run("network failure keeps previous token", func(t *testing.T) {
		// Arrange
		auth := new(MockAuthenticator)
		auth.On("LoginAdmin", mock.Anything, "admin", "secret").Return("", networkErr).Once()
		sess := newSession(t)
		require.NoError(t, sess.Set(ctx, session.KeyAdminToken, "still-valid"))
		admin := NewManager(auth, nil, 0).For(sess)

		// Act
		status, err := admin.Login(ctx, "admin", "secret")

		// Assert
		require.Error(t, err)
		assert.Equal(t, ConnectivityIssue, status.State)
		assert.Equal(t, KindConnectivityIssue, status.Err.Kind)
		assert.Equal(t, "still-valid", storedToken(t, sess))
		assert.False(t, status.ShouldRedirectToLogin())
		assert.True(t, status.ShowConnectivityWarning())
	})

	t.Run("blank input never reaches backend", func(t *testing.T) {
		auth := new(MockAuthenticator)
		admin := NewManager(auth, nil, 0).For(newSession(t))

		_, err := admin.Login(ctx, "   ", "secret")

		assert.ErrorIs(t, err, ErrMissingCredentials)
		auth.AssertNotCalled(t, "LoginAdmin", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestValidateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("no token means logged out", func(t *testing.T) {
		auth := new(MockAuthenticator)
		status := NewManager(auth, nil, 0).For(newSession(t)).ValidateSession(ctx)

		assert.Equal(t, LoggedOut, status.State)
		assert.True(t, status.ShouldRedirectToLogin())
		auth.AssertNotCalled(t, "IsAdminSessionValid", mock.Anything, mock.Anything)
	})

	t.Run("valid token authenticates and is memoized", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("IsAdminSessionValid", mock.Anything, "tok").Return(true, nil).Once()
		sess := newSession(t)
		require.NoError(t, sess.Set(ctx, session.KeyAdminToken, "tok"))
		m := NewManager(auth, nil, time.Minute)

		first := m.For(sess).ValidateSession(ctx)
		second := m.For(sess).ValidateSession(ctx)

		assert.True(t, first.IsAuthenticated())
		assert.True(t, second.IsAuthenticated())
		auth.AssertExpectations(t)
	})

	t.Run("memo expires after stale time", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("IsAdminSessionValid", mock.Anything, "tok").Return(true, nil).Twice()
		sess := newSession(t)
		require.NoError(t, sess.Set(ctx, session.KeyAdminToken, "tok"))
		m := NewManager(auth, nil, time.Minute)
		now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
		m.now = func() time.Time { return now }

		m.For(sess).ValidateSession(ctx)
		now = now.Add(61 * time.Second)
		status := m.For(sess).ValidateSession(ctx)

		assert.True(t, status.IsAuthenticated())
		auth.AssertExpectations(t)
	})

	t.Run("explicitly invalid token is cleared", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("IsAdminSessionValid", mock.Anything, "expired").Return(false, nil).Once()
		sess := newSession(t)
		require.NoError(t, sess.Set(ctx, session.KeyAdminToken, "expired"))

		status := NewManager(auth, nil, 0).For(sess).ValidateSession(ctx)

		assert.Equal(t, LoggedOut, status.State)
		assert.True(t, status.ShouldRedirectToLogin())
		assert.Empty(t, storedToken(t, sess))
	})

	t.Run("connectivity failure preserves token and does not redirect", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("IsAdminSessionValid", mock.Anything, "tok").Return(false, context.DeadlineExceeded).Once()
		sess := newSession(t)
		require.NoError(t, sess.Set(ctx, session.KeyAdminToken, "tok"))

		status := NewManager(auth, nil, 0).For(sess).ValidateSession(ctx)

		assert.Equal(t, ConnectivityIssue, status.State)
		assert.False(t, status.ShouldRedirectToLogin())
		assert.True(t, status.ShowConnectivityWarning())
		assert.Equal(t, "tok", storedToken(t, sess))
	})

	t.Run("non transient failure clears token", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("IsAdminSessionValid", mock.Anything, "tok").
			Return(false, &backend.StatusError{StatusCode: 500, Body: `{"error":"boom"}`}).Once()
		sess := newSession(t)
		require.NoError(t, sess.Set(ctx, session.KeyAdminToken, "tok"))

		status := NewManager(auth, nil, 0).For(sess).ValidateSession(ctx)

		assert.Equal(t, LoggedOut, status.State)
		assert.Equal(t, KindSystemError, status.Err.Kind)
		assert.Empty(t, storedToken(t, sess))
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	auth := new(MockAuthenticator)
	inv := new(MockInvalidator)
	inv.On("Invalidate", mock.Anything).Return(nil).Once()

	sess := newSession(t)
	require.NoError(t, sess.Set(ctx, session.KeyAdminToken, "tok"))
	require.NoError(t, sess.Set(ctx, session.KeyAdminStatus, `{"checked_at":"2026-01-01T00:00:00Z"}`))
	admin := NewManager(auth, inv, 0).For(sess)

	admin.Logout(ctx)

	assert.Equal(t, LoggedOut, admin.Status().State)
	assert.Empty(t, storedToken(t, sess))
	_, err := sess.Get(ctx, session.KeyAdminStatus)
	assert.ErrorIs(t, err, session.ErrKeyNotFound)
	inv.AssertExpectations(t)
}
