package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vipclub/config"
	"vipclub/internal/auth"
	"vipclub/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var jwtCfg = &config.JWTConfig{Secret: "s3cret", Audience: "authenticated", AccessExpiry: time.Hour}

func whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "email": GetEmail(c)})
}

func do(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := gin.New()
	r.GET("/", AuthRequired(jwtCfg), whoami)

	tok, err := auth.GenerateAccessToken(jwtCfg, "user-1", "a@example.com", "authenticated")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer nope").Code)

	w := do(r, "Bearer "+tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"user-1"`)
}

func TestOptionalAuth(t *testing.T) {
	r := gin.New()
	r.GET("/", OptionalAuth(jwtCfg), whoami)

	w := do(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":""`)

	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer broken").Code)

	tok, err := auth.GenerateAccessToken(jwtCfg, "user-2", "", "")
	require.NoError(t, err)
	assert.Contains(t, do(r, "Bearer "+tok).Body.String(), `"user_id":"user-2"`)
}

type fakeProfiles map[string]*models.Profile

func (f fakeProfiles) GetByID(id string) (*models.Profile, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, errors.New("not found")
}

func TestAdminRequired(t *testing.T) {
	profiles := fakeProfiles{
		"admin": {ID: "admin", IsAdmin: true},
		"user":  {ID: "user"},
	}
	r := gin.New()
	r.GET("/", AuthRequired(jwtCfg), AdminRequired(profiles), whoami)

	for id, want := range map[string]int{"admin": http.StatusOK, "user": http.StatusForbidden, "ghost": http.StatusForbidden} {
		tok, err := auth.GenerateAccessToken(jwtCfg, id, "", "")
		require.NoError(t, err)
		assert.Equal(t, want, do(r, "Bearer "+tok).Code, id)
	}
}

type vipSet map[string]bool

func (v vipSet) IsVIP(id string) (bool, error) { return v[id], nil }

func TestRequireVIP(t *testing.T) {
	r := gin.New()
	r.GET("/", AuthRequired(jwtCfg), RequireVIP(vipSet{"vip": true}), whoami)

	tok, _ := auth.GenerateAccessToken(jwtCfg, "vip", "", "")
	assert.Equal(t, http.StatusOK, do(r, "Bearer "+tok).Code)
	tok, _ = auth.GenerateAccessToken(jwtCfg, "free", "", "")
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer "+tok).Code)
}

func TestInMemoryRateLimiter(t *testing.T) {
	l := NewInMemoryRateLimiter(2, time.Minute)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)
	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := gin.New()
	r.GET("/", RateLimit(NewInMemoryRateLimiter(1, time.Minute), logger), whoami)

	assert.Equal(t, http.StatusOK, do(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "").Code)
}

func TestRateLimitFailsOpenWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := gin.New()
	r.GET("/", RateLimit(NewRedisRateLimiter(client, "test:", 1, time.Minute), logger), whoami)
	assert.Equal(t, http.StatusOK, do(r, "").Code)
	assert.Equal(t, http.StatusOK, do(r, "").Code)
}
