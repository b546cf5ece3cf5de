package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStorageImplementations(t *testing.T) {
	_, client := setupTestRedis(t)
	backends := map[string]Storage{
		"memory": NewMemoryStorage(),
		"redis":  NewRedisStorage(client, time.Hour),
	}

	for name, store := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "s1", KeyCart)
			assert.ErrorIs(t, err, ErrKeyNotFound)

			require.NoError(t, store.Set(ctx, "s1", KeyCart, `{"items":[]}`))
			require.NoError(t, store.Set(ctx, "s1", KeyAdminToken, "tok"))
			require.NoError(t, store.Set(ctx, "s2", KeyCart, "other"))

			v, err := store.Get(ctx, "s1", KeyCart)
			require.NoError(t, err)
			assert.Equal(t, `{"items":[]}`, v)

			require.NoError(t, store.Delete(ctx, "s1", KeyAdminToken))
			_, err = store.Get(ctx, "s1", KeyAdminToken)
			assert.ErrorIs(t, err, ErrKeyNotFound)

			require.NoError(t, store.Clear(ctx, "s1"))
			_, err = store.Get(ctx, "s1", KeyCart)
			assert.ErrorIs(t, err, ErrKeyNotFound)

			v, err = store.Get(ctx, "s2", KeyCart)
			require.NoError(t, err)
			assert.Equal(t, "other", v, "sessions are isolated")
		})
	}
}

func TestRedisStorageKeepsOneHashPerSession(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStorage(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", KeyCart, `{"items":[]}`))
	require.NoError(t, store.Set(ctx, "s1", KeyAdminToken, "tok"))

	assert.Equal(t, []string{"session:s1"}, mr.Keys())
	fields, err := mr.HKeys("session:s1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{KeyCart, KeyAdminToken}, fields)
	assert.Equal(t, "tok", mr.HGet("session:s1", KeyAdminToken))
}

func TestRedisStorageSlidingExpiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStorage(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", KeyCart, "a"))
	assert.Equal(t, time.Minute, mr.TTL("session:s1"))

	mr.FastForward(45 * time.Second)
	require.NoError(t, store.Set(ctx, "s1", KeyCart, "b"))
	mr.FastForward(45 * time.Second)

	v, err := store.Get(ctx, "s1", KeyCart)
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "s1", KeyCart)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStorageSurfacesConnectionErrors(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStorage(client, time.Minute)
	mr.Close()

	_, err := store.Get(context.Background(), "s1", KeyCart)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrKeyNotFound)
}

func TestFlashIsOneShot(t *testing.T) {
	s := New("sid", NewMemoryStorage())
	ctx := context.Background()

	_, ok := s.PopFlash(ctx)
	assert.False(t, ok)

	s.AddFlash(ctx, "success", "Added to cart")
	f, ok := s.PopFlash(ctx)
	assert.True(t, ok)
	assert.Equal(t, Flash{Level: "success", Message: "Added to cart"}, f)

	_, ok = s.PopFlash(ctx)
	assert.False(t, ok)
}

func TestMiddlewareIssuesSessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryStorage()

	r := gin.New()
	r.Use(Middleware(store, CookieOptions{}))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, FromContext(c).ID())
	})

	t.Run("new visitor gets a session cookie without max-age", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, DefaultCookieName, cookies[0].Name)
		assert.Equal(t, w.Body.String(), cookies[0].Value)
		assert.Zero(t, cookies[0].MaxAge)
		assert.True(t, cookies[0].HttpOnly)
		assert.NotContains(t, w.Header().Get("Set-Cookie"), "Max-Age")
	})

	t.Run("existing session is reused", func(t *testing.T) {
		sid := "3f1c2a9e-6a43-4c5e-9d62-0b7f4f0d2c11"
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: sid})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, sid, w.Body.String())
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("malformed id is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "../../etc"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.NotEqual(t, "../../etc", w.Body.String())
		assert.Len(t, w.Result().Cookies(), 1)
	})
}
