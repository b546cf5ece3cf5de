package adminsession

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dailykart/dailykart/services/storefront/session"
	"go.uber.org/zap"
)

// State of an admin session as seen by the storefront.
type State string

const (
	LoggedOut         State = "logged_out"
	Pending           State = "pending"
	Authenticated     State = "authenticated"
	ConnectivityIssue State = "connectivity_issue"
)

// DefaultStaleTime is how long a confirmed session is trusted before the
// backend is asked again.
const DefaultStaleTime = 60 * time.Second

var ErrMissingCredentials = errors.New("Please enter both username and password")

// Status is the outcome of the latest login or validation.
type Status struct {
	State   State  `json:"state"`
	Fetched bool   `json:"fetched"`
	Err     *Error `json:"-"`
}

func (s Status) IsAuthenticated() bool { return s.State == Authenticated }

// ShouldRedirectToLogin is true only once the check completed and the answer
// is definitively "not logged in". A connectivity problem never redirects.
func (s Status) ShouldRedirectToLogin() bool {
	return s.Fetched && s.State == LoggedOut
}

// ShowConnectivityWarning is true while the session cannot be confirmed.
func (s Status) ShowConnectivityWarning() bool {
	return s.State == ConnectivityIssue
}

// Authenticator is the part of the backend contract this package uses.
type Authenticator interface {
	LoginAdmin(ctx context.Context, username, password string) (string, error)
	IsAdminSessionValid(ctx context.Context, token string) (bool, error)
}

// Invalidator drops cached backend data; the catalog cache implements it.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// KV is the slice of a session the admin credential lives in.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Manager holds the collaborators shared by every admin session.
type Manager struct {
	auth        Authenticator
	invalidator Invalidator
	staleTime   time.Duration
	now         func() time.Time
}

func NewManager(auth Authenticator, invalidator Invalidator, staleTime time.Duration) *Manager {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	return &Manager{auth: auth, invalidator: invalidator, staleTime: staleTime, now: time.Now}
}

// For binds the manager to one browser session.
func (m *Manager) For(kv KV) *Session {
	return &Session{m: m, kv: kv, status: Status{State: Pending}}
}

// Session is the admin state machine of one browser session.
type Session struct {
	m      *Manager
	kv     KV
	status Status
}

// Status returns the latest known status; Pending until Login or ValidateSession ran.
func (s *Session) Status() Status { return s.status }

type memo struct {
	CheckedAt time.Time `json:"checked_at"`
}

// Token returns the stored credential.
func (s *Session) Token(ctx context.Context) (string, bool) {
	tok, err := s.kv.Get(ctx, session.KeyAdminToken)
	if err != nil || tok == "" {
		return "", false
	}
	return tok, true
}

// Login exchanges credentials for a token. A rejection clears any stored
// token; a connectivity failure leaves it in place.
func (s *Session) Login(ctx context.Context, username, password string) (Status, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		s.status = Status{State: LoggedOut, Fetched: true}
		return s.status, ErrMissingCredentials
	}

	s.status = Status{State: Pending}
	token, err := s.m.auth.LoginAdmin(ctx, username, password)
	if err == nil && strings.TrimSpace(token) == "" {
		err = errors.New("Invalid credentials")
	}
	if err != nil {
		classified := Classify(err)
		switch classified.Kind {
		case KindConnectivityIssue:
			s.status = Status{State: ConnectivityIssue, Fetched: true, Err: classified}
		case KindInvalidCredentials:
			s.forget(ctx)
			s.status = Status{State: LoggedOut, Fetched: true, Err: classified}
		default:
			s.status = Status{State: LoggedOut, Fetched: true, Err: classified}
		}
		zap.L().Warn("Admin login failed", zap.String("kind", string(classified.Kind)), zap.Error(err))
		return s.status, classified
	}

	if err := s.kv.Set(ctx, session.KeyAdminToken, token); err != nil {
		classified := &Error{Kind: KindSystemError, Message: MsgSystemError, Err: err}
		s.status = Status{State: LoggedOut, Fetched: true, Err: classified}
		return s.status, classified
	}
	s.remember(ctx)
	s.status = Status{State: Authenticated, Fetched: true}
	return s.status, nil
}

// ValidateSession confirms the stored token with the backend. It never
// retries: a failure is reported as a connectivity issue straight away.
func (s *Session) ValidateSession(ctx context.Context) Status {
	token, err := s.kv.Get(ctx, session.KeyAdminToken)
	switch {
	case errors.Is(err, session.ErrKeyNotFound) || (err == nil && token == ""):
		s.status = Status{State: LoggedOut, Fetched: true}
		return s.status
	case err != nil:
		zap.L().Warn("Failed to read admin token from session storage", zap.Error(err))
		s.status = Status{State: ConnectivityIssue, Fetched: true, Err: &Error{Kind: KindConnectivityIssue, Message: MsgConnectivityIssue, Err: err}}
		return s.status
	}

	if s.fresh(ctx) {
		s.status = Status{State: Authenticated, Fetched: true}
		return s.status
	}

	s.status = Status{State: Pending}
	valid, err := s.m.auth.IsAdminSessionValid(ctx, token)
	switch {
	case err != nil:
		classified := Classify(err)
		if classified.Transient() {
			s.status = Status{State: ConnectivityIssue, Fetched: true, Err: classified}
		} else {
			s.forget(ctx)
			s.status = Status{State: LoggedOut, Fetched: true, Err: classified}
		}
		zap.L().Warn("Admin session validation failed", zap.String("kind", string(classified.Kind)), zap.Error(err))
	case !valid:
		s.forget(ctx)
		s.status = Status{State: LoggedOut, Fetched: true}
	default:
		s.remember(ctx)
		s.status = Status{State: Authenticated, Fetched: true}
	}
	return s.status
}

// Logout clears the credential and every cached backend answer.
func (s *Session) Logout(ctx context.Context) {
	s.forget(ctx)
	if s.m.invalidator != nil {
		if err := s.m.invalidator.Invalidate(ctx); err != nil {
			zap.L().Warn("Failed to invalidate caches on logout", zap.Error(err))
		}
	}
	s.status = Status{State: LoggedOut, Fetched: true}
}

func (s *Session) fresh(ctx context.Context) bool {
	raw, err := s.kv.Get(ctx, session.KeyAdminStatus)
	if err != nil {
		return false
	}
	var m memo
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return false
	}
	age := s.m.now().Sub(m.CheckedAt)
	return age >= 0 && age < s.m.staleTime
}

func (s *Session) remember(ctx context.Context) {
	b, _ := json.Marshal(memo{CheckedAt: s.m.now()})
	if err := s.kv.Set(ctx, session.KeyAdminStatus, string(b)); err != nil {
		zap.L().Warn("Failed to store admin status", zap.Error(err))
	}
}

func (s *Session) forget(ctx context.Context) {
	for _, key := range []string{session.KeyAdminToken, session.KeyAdminStatus} {
		if err := s.kv.Delete(ctx, key); err != nil {
			zap.L().Warn("Failed to clear admin session key", zap.String("key", key), zap.Error(err))
		}
	}
}
