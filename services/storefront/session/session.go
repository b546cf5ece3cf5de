package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCookieName carries the session id. It is issued without Max-Age so
// the browser drops it when the session ends.
const DefaultCookieName = "dk_session"

// Keys stored inside a session.
const (
	KeyCart        = "cart"
	KeyAdminToken  = "admin_token"
	KeyAdminStatus = "admin_status"
	KeyFlash       = "flash"
)

const contextKey = "dailykart.session"

// Session binds a session id to its storage.
type Session struct {
	id    string
	store Storage
}

func New(id string, store Storage) *Session {
	return &Session{id: id, store: store}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Get(ctx context.Context, key string) (string, error) {
	return s.store.Get(ctx, s.id, key)
}

func (s *Session) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.id, key, value)
}

func (s *Session) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.id, key)
}

func (s *Session) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, s.id)
}

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// AddFlash stores a notice; failures are logged because a lost notice is harmless.
func (s *Session) AddFlash(ctx context.Context, level, message string) {
	b, _ := json.Marshal(Flash{Level: level, Message: message})
	if err := s.Set(ctx, KeyFlash, string(b)); err != nil {
		zap.L().Warn("Failed to store flash message", zap.Error(err))
	}
}

// PopFlash returns and removes the pending notice.
func (s *Session) PopFlash(ctx context.Context) (Flash, bool) {
	raw, err := s.Get(ctx, KeyFlash)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			zap.L().Warn("Failed to read flash message", zap.Error(err))
		}
		return Flash{}, false
	}
	_ = s.Delete(ctx, KeyFlash)

	var f Flash
	if err := json.Unmarshal([]byte(raw), &f); err != nil || f.Message == "" {
		return Flash{}, false
	}
	return f, true
}

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
}

// Middleware attaches a *Session to every request, issuing a new id when the
// cookie is missing or malformed.
func Middleware(store Storage, opts CookieOptions) gin.HandlerFunc {
	name := opts.Name
	if name == "" {
		name = DefaultCookieName
	}
	return func(c *gin.Context) {
		sid, err := c.Cookie(name)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(name, sid, 0, "/", "", opts.Secure, true)
		}
		c.Set(contextKey, New(sid, store))
		c.Next()
	}
}

// FromContext returns the request's session. It panics when Middleware is not
// installed, which is a wiring bug.
func FromContext(c *gin.Context) *Session {
	return c.MustGet(contextKey).(*Session)
}
